package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
)

// runPipeline reads frames at the configured interval until stopCh closes.
//
// Every frame is kept for the preview stream; only every Nth frame
// (frame_stride) is sent through detection and evaluation.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(a.tuning.GetFrameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.Camera().ReadFrame()
			if err != nil {
				Logf("error reading frame: %v", err)
				continue
			}

			a.encodeJPEG(frame)
			if a.IsEnabled() {
				a.ProcessFrame(frame, time.Now())
			}
			frame.Close()
		}
	}
}

// ProcessFrame runs detection and evaluation on one captured frame. It
// returns the report and true when the frame was evaluated; frames skipped
// by the stride or by a transient detection failure return false.
//
// Detection errors and empty results count as failures. Once
// max_detect_failures consecutive failures have been seen the exercise is
// evaluated with no pose, so the report degrades to "No pose detected"
// without resetting the rep count.
func (a *App) ProcessFrame(frame *gocv.Mat, ts time.Time) (exercise.Report, bool) {
	a.mu.Lock()
	n := a.frames
	a.frames++
	det := a.detector
	a.mu.Unlock()

	if n%a.tuning.GetFrameStride() != 0 {
		return exercise.Report{}, false
	}

	var pose *detector.Pose
	res, err := det.Detect(frame)
	if err != nil {
		Logf("pose detection failed: %v", err)
	} else {
		pose = a.layout.Normalize(res, ts)
	}

	a.mu.Lock()
	if pose == nil {
		a.failures++
		if a.failures < a.tuning.GetMaxDetectFailures() {
			a.mu.Unlock()
			return exercise.Report{}, false
		}
	} else {
		a.failures = 0
	}

	report := a.exercise.Evaluate(pose)
	if pose != nil {
		report.Quality = a.layout.Quality(detector.NewAccessor(pose, a.tuning.GetVisibilityThreshold()))
	} else {
		report.Timestamp = ts
		report.Quality = detector.QualityNone
	}
	a.last = &report
	callbacks := append([]ReportFunc(nil), a.callbacks...)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(report)
	}
	return report, true
}
