package orientation

import (
	"math"

	"github.com/ayusman/gymcoach/internal/detector"
)

// FrontalWidthRatio is the nominal shoulder width divided by torso height for
// an adult facing the camera squarely.
const FrontalWidthRatio = 0.7

// EstimateYaw estimates how far the torso is rotated away from the camera, in
// degrees from 0 (facing) to 90 (side on).
//
// Rotation about the vertical axis foreshortens shoulder width by cos(yaw)
// while torso height is unaffected, so yaw = acos(ratio / FrontalWidthRatio).
// This assumes an upright torso and average proportions, and cannot tell left
// from right rotation. The value is intended for display only.
func EstimateYaw(acc detector.Accessor) (float64, bool) {
	ls, ok := acc.Get(detector.LeftShoulder)
	if !ok {
		return 0, false
	}
	rs, ok := acc.Get(detector.RightShoulder)
	if !ok {
		return 0, false
	}

	// Torso height from whichever hips are visible.
	var hipY float64
	var n int
	for _, j := range []detector.Joint{detector.LeftHip, detector.RightHip} {
		if h, ok := acc.Get(j); ok {
			hipY += h.Y
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	hipY /= float64(n)

	height := math.Abs(hipY - (ls.Y+rs.Y)/2)
	if height == 0 {
		return 0, false
	}

	ratio := math.Abs(ls.X-rs.X) / height / FrontalWidthRatio
	ratio = math.Min(ratio, 1)
	return math.Round(math.Acos(ratio)*180/math.Pi*100) / 100, true
}
