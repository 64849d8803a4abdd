package dedup

import internal "github.com/ZanzyTHEbar/frame-sieve/sieve"

// DefaultThreshold is the score below which two frames are duplicates.
// It is in the comparator's units and is not normalised by image size.
var DefaultThreshold = internal.DefaultThreshold

// DefaultMinRegionArea is handed to the comparator to suppress noise.
var DefaultMinRegionArea = internal.DefaultMinRegionArea

// Decision is the verdict for one ordered pair of frames
type Decision int

const (
	Distinct Decision = iota
	Duplicate
)

func (d Decision) String() string {
	if d == Duplicate {
		return "duplicate"
	}
	return "distinct"
}

// Decide classifies a score. Only scores strictly below threshold are duplicates.
func Decide(score, threshold float64) Decision {
	if score < threshold {
		return Duplicate
	}
	return Distinct
}
