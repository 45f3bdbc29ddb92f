package orbit

import "fmt"

// Keyframe fixes the scene rotation, in degrees per axis, at a frame.
type Keyframe struct {
	Frame int
	X     float64
	Y     float64
	Z     float64
}

const (
	numSegments      = 6
	segmentIncrement = 60.0
	fullTurn         = 360.0
)

// Axis increments per segment: Z, XZ, X, XY, Y, YZ.
var segmentAxes = [numSegments][3]bool{
	{false, false, true},
	{true, false, true},
	{true, false, false},
	{true, true, false},
	{false, true, false},
	{false, true, true},
}

// Plan produces the ordered keyframe sequence for a loop of totalFrames
// frames. Segment keyframes land at multiples of totalFrames/6 (truncating
// division), so when totalFrames is not divisible by six the last natural
// segment runs long or short; the final keyframe is still pinned at
// totalFrames. A keyframe inserted at an occupied frame replaces it, matching
// the renderer's keyframe semantics.
func Plan(totalFrames int) ([]Keyframe, error) {
	if totalFrames < 1 {
		return nil, fmt.Errorf("total frames must be at least 1, got %d", totalFrames)
	}

	framesPerSegment := totalFrames / numSegments

	frames := []Keyframe{{Frame: 1}}
	insert := func(kf Keyframe) {
		for i := range frames {
			if frames[i].Frame == kf.Frame {
				frames[i] = kf
				return
			}
		}
		frames = append(frames, kf)
	}

	var x, y, z float64
	for seg := 0; seg < numSegments; seg++ {
		axes := segmentAxes[seg]
		if axes[0] {
			x += segmentIncrement
		}
		if axes[1] {
			y += segmentIncrement
		}
		if axes[2] {
			z += segmentIncrement
		}
		insert(Keyframe{Frame: (seg + 1) * framesPerSegment, X: x, Y: y, Z: z})
	}

	// Close the loop: force the last frame back to the start orientation.
	insert(Keyframe{Frame: totalFrames, X: fullTurn, Y: fullTurn, Z: fullTurn})

	sortKeyframes(frames)
	return frames, nil
}

func sortKeyframes(frames []Keyframe) {
	// Insertion order is already nearly sorted; frames only need reordering
	// when truncation places a segment keyframe at or below frame 1.
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j].Frame < frames[j-1].Frame; j-- {
			frames[j], frames[j-1] = frames[j-1], frames[j]
		}
	}
}
