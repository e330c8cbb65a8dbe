package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	results []Result
	index   int
	err     error
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult makes every Detect call return r.
func (m *MockDetector) SetResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = []Result{r}
	m.index = 0
}

// SetSequence makes Detect return the given results in order, repeating the last one.
func (m *MockDetector) SetSequence(results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	if len(m.results) == 0 {
		return Result{}, nil
	}

	r := m.results[m.index]
	if m.index < len(m.results)-1 {
		m.index++
	}
	return r, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ResultFromPose converts a Pose back into a raw BlazePose33 result.
func ResultFromPose(p *Pose) Result {
	if p == nil {
		return Result{}
	}

	raw := make([]*Landmark, NumJoints)
	for j, o := range p.Joints {
		if o == nil {
			continue
		}
		raw[j] = &Landmark{X: o.X, Y: o.Y, Z: o.Z, Visibility: o.Visibility}
	}
	return Result{Landmarks: [][]*Landmark{raw}}
}

// Fixture segment lengths in normalized image units.
const (
	fixtureShin  = 0.2
	fixtureThigh = 0.2
	fixtureTorso = 0.3
)

// sagittal returns knee, hip and shoulder offsets in the sagittal plane for
// a leg with the ankle at the origin. The first coordinate points forward,
// the second down the image.
func sagittal(kneeAngle, hipAngle float64) (knee, hip, shoulder [2]float64) {
	k := kneeAngle * math.Pi / 180
	h := hipAngle * math.Pi / 180

	knee = [2]float64{0, -fixtureShin}

	// Thigh leaves the knee rotated kneeAngle from the shin direction (down).
	hip = [2]float64{
		knee[0] - fixtureThigh*math.Sin(k),
		knee[1] + fixtureThigh*math.Cos(k),
	}

	// Torso leaves the hip rotated -hipAngle from the hip->knee direction.
	dx, dy := knee[0]-hip[0], knee[1]-hip[1]
	n := math.Hypot(dx, dy)
	dx, dy = dx/n, dy/n
	tx := dx*math.Cos(-h) - dy*math.Sin(-h)
	ty := dx*math.Sin(-h) + dy*math.Cos(-h)
	shoulder = [2]float64{hip[0] + fixtureTorso*tx, hip[1] + fixtureTorso*ty}

	return knee, hip, shoulder
}

// SideViewPose returns a left-side view pose whose 2D knee angle
// (hip-knee-ankle) and hip angle (shoulder-hip-knee) equal the arguments.
// Right-side joints are present but occluded (visibility 0.3).
func SideViewPose(kneeAngle, hipAngle float64) *Pose {
	const ankleX, ankleY = 0.5, 0.9
	knee, hip, shoulder := sagittal(kneeAngle, hipAngle)

	p := &Pose{}
	place := func(left, right Joint, fx, fy float64) {
		p.Set(left, Observation{X: ankleX + fx, Y: ankleY + fy, Visibility: 0.95})
		p.Set(right, Observation{X: ankleX + fx + 0.01, Y: ankleY + fy, Visibility: 0.3})
	}

	place(LeftAnkle, RightAnkle, 0, 0)
	place(LeftHeel, RightHeel, -0.03, 0.01)
	place(LeftFootIndex, RightFootIndex, 0.08, 0.01)
	place(LeftKnee, RightKnee, knee[0], knee[1])
	place(LeftHip, RightHip, hip[0], hip[1])
	place(LeftShoulder, RightShoulder, shoulder[0], shoulder[1])
	place(LeftElbow, RightElbow, shoulder[0]+0.05, shoulder[1]+0.12)
	place(LeftWrist, RightWrist, shoulder[0]+0.1, shoulder[1]+0.2)
	p.Set(Nose, Observation{X: ankleX + shoulder[0] + 0.05, Y: ankleY + shoulder[1] - 0.1, Visibility: 0.9})

	return p
}

// FrontViewPose returns a front-facing pose. The knee and hip flexion is
// expressed along Z so that 3D angles equal the arguments while the 2D
// projection stays close to straight.
func FrontViewPose(kneeAngle, hipAngle float64) *Pose {
	const ankleY = 0.9
	knee, hip, shoulder := sagittal(kneeAngle, hipAngle)

	p := &Pose{}
	place := func(j Joint, x float64, s [2]float64) {
		p.Set(j, Observation{X: x, Y: ankleY + s[1], Z: -s[0], Visibility: 0.95})
	}

	origin := [2]float64{0, 0}
	place(LeftAnkle, 0.4, origin)
	place(RightAnkle, 0.6, origin)
	place(LeftKnee, 0.4, knee)
	place(RightKnee, 0.6, knee)
	place(LeftHip, 0.4, hip)
	place(RightHip, 0.6, hip)
	place(LeftShoulder, 0.4, shoulder)
	place(RightShoulder, 0.6, shoulder)
	place(LeftElbow, 0.35, [2]float64{shoulder[0], shoulder[1] + 0.12})
	place(RightElbow, 0.65, [2]float64{shoulder[0], shoulder[1] + 0.12})
	place(LeftWrist, 0.36, [2]float64{shoulder[0], shoulder[1] + 0.22})
	place(RightWrist, 0.64, [2]float64{shoulder[0], shoulder[1] + 0.22})
	place(Nose, 0.5, [2]float64{shoulder[0], shoulder[1] - 0.1})

	return p
}
