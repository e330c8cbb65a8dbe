package detector

import (
	"fmt"
	"time"
)

// Landmark is one raw keypoint as emitted by the upstream model. BlazePose
// reports "visibility"; COCO models report "score".
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Score      float64 `json:"score"`
}

// Confidence returns Visibility, or Score when no visibility was reported.
func (lm *Landmark) Confidence() float64 {
	if lm.Visibility == 0 {
		return lm.Score
	}
	return lm.Visibility
}

// Result is the raw output of one detection call: zero or more pose
// instances, each an index-ordered slice of landmarks. Entries may be nil.
type Result struct {
	Landmarks [][]*Landmark `json:"landmarks"`
}

// Layout maps a model's landmark indices onto Joint identifiers.
type Layout struct {
	Name   string
	Size   int
	Joints []Joint // Joints[i] is the joint reported at index i
}

// BlazePose33 is the MediaPipe Pose Landmarker layout.
var BlazePose33 = func() Layout {
	l := Layout{Name: "blazepose33", Size: int(NumJoints), Joints: make([]Joint, NumJoints)}
	for j := Joint(0); j < NumJoints; j++ {
		l.Joints[j] = j
	}
	return l
}()

// COCO17 is the 17-keypoint COCO layout used by MoveNet and YOLO-pose models.
var COCO17 = Layout{
	Name: "coco17",
	Size: 17,
	Joints: []Joint{
		Nose, LeftEye, RightEye, LeftEar, RightEar,
		LeftShoulder, RightShoulder, LeftElbow, RightElbow,
		LeftWrist, RightWrist, LeftHip, RightHip,
		LeftKnee, RightKnee, LeftAnkle, RightAnkle,
	},
}

// LayoutByName returns a known layout.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case BlazePose33.Name, "":
		return BlazePose33, nil
	case COCO17.Name:
		return COCO17, nil
	default:
		return Layout{}, fmt.Errorf("unknown landmark layout %q", name)
	}
}

// Normalize converts the first pose instance in r into a Pose.
// Returns nil when no person was detected.
// Landmarks beyond the layout size and nil entries are ignored.
func (l Layout) Normalize(r Result, ts time.Time) *Pose {
	if len(r.Landmarks) == 0 || len(r.Landmarks[0]) == 0 {
		return nil
	}

	raw := r.Landmarks[0]
	pose := &Pose{Timestamp: ts}

	for i := 0; i < l.Size && i < len(raw) && i < len(l.Joints); i++ {
		lm := raw[i]
		if lm == nil {
			continue
		}
		pose.Set(l.Joints[i], Observation{
			X:          lm.X,
			Y:          lm.Y,
			Z:          lm.Z,
			Visibility: lm.Confidence(),
		})
	}

	return pose
}

// Quality describes how much of the skeleton is visible in a frame.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
	QualityNone   Quality = "none"
)

// Quality grades the frame by the share of visible layout joints:
// at least 25/33 is high, at least 20/33 is medium.
func (l Layout) Quality(acc Accessor) Quality {
	if !acc.HasPose() || l.Size == 0 {
		return QualityNone
	}

	visible := 0
	for _, j := range l.Joints {
		if _, ok := acc.Get(j); ok {
			visible++
		}
	}

	ratio := float64(visible) / float64(l.Size)
	switch {
	case ratio >= 25.0/33.0:
		return QualityHigh
	case ratio >= 20.0/33.0:
		return QualityMedium
	default:
		return QualityLow
	}
}
