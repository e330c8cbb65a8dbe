// Package detector provides pose detection interfaces and the normalized
// per-frame landmark types consumed by the form-feedback pipeline.
package detector

import (
	"fmt"
	"time"
)

// Joint identifies a named body landmark. The numbering follows the
// BlazePose 33-landmark convention; other model layouts are mapped onto it.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type Joint int

const (
	Nose Joint = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumJoints
)

var jointNames = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer", "right_eye_inner",
	"right_eye", "right_eye_outer", "left_ear", "right_ear", "mouth_left",
	"mouth_right", "left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky", "left_index",
	"right_index", "left_thumb", "right_thumb", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle", "left_heel",
	"right_heel", "left_foot_index", "right_foot_index",
}

// String returns the snake_case landmark name.
func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// DefaultVisibility is the confidence a joint must exceed to count as visible.
const DefaultVisibility = 0.5

// Observation is one landmark for one frame. X and Y are normalized image
// coordinates in [0,1]; Z is relative depth and zero when the model has none.
type Observation struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose is the normalized observation set for a single frame.
// A nil entry means the joint was not reported.
type Pose struct {
	Joints    [NumJoints]*Observation
	Timestamp time.Time
}

// Set stores an observation for the given joint.
func (p *Pose) Set(j Joint, o Observation) {
	if j < 0 || j >= NumJoints {
		return
	}
	obs := o
	p.Joints[j] = &obs
}

// Clear removes the observation for the given joint.
func (p *Pose) Clear(j Joint) {
	if j < 0 || j >= NumJoints {
		return
	}
	p.Joints[j] = nil
}

// Accessor performs confidence-gated joint lookups on a Pose.
type Accessor struct {
	pose      *Pose
	threshold float64
}

// NewAccessor returns an Accessor over pose. A joint is visible when its
// visibility is strictly greater than threshold.
func NewAccessor(pose *Pose, threshold float64) Accessor {
	return Accessor{pose: pose, threshold: threshold}
}

// WithThreshold returns a copy of the accessor using a stricter or looser gate.
func (a Accessor) WithThreshold(threshold float64) Accessor {
	return Accessor{pose: a.pose, threshold: threshold}
}

// Threshold returns the visibility gate.
func (a Accessor) Threshold() float64 {
	return a.threshold
}

// HasPose reports whether a pose was detected at all.
func (a Accessor) HasPose() bool {
	return a.pose != nil
}

// Timestamp returns the frame time, or the zero time without a pose.
func (a Accessor) Timestamp() time.Time {
	if a.pose == nil {
		return time.Time{}
	}
	return a.pose.Timestamp
}

// Get returns the joint if it was detected with visibility above the threshold.
func (a Accessor) Get(j Joint) (Observation, bool) {
	o, ok := a.GetRaw(j)
	if !ok || !(o.Visibility > a.threshold) {
		return Observation{}, false
	}
	return o, true
}

// GetRaw returns the joint regardless of its visibility.
func (a Accessor) GetRaw(j Joint) (Observation, bool) {
	if a.pose == nil || j < 0 || j >= NumJoints || a.pose.Joints[j] == nil {
		return Observation{}, false
	}
	return *a.pose.Joints[j], true
}

// Visible reports whether all the given joints pass the visibility gate.
func (a Accessor) Visible(joints ...Joint) bool {
	for _, j := range joints {
		if _, ok := a.Get(j); !ok {
			return false
		}
	}
	return true
}

// CountVisible returns how many joints pass the visibility gate.
func (a Accessor) CountVisible() int {
	n := 0
	for j := Joint(0); j < NumJoints; j++ {
		if _, ok := a.Get(j); ok {
			n++
		}
	}
	return n
}
