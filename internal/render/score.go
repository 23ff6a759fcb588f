package render

import "math"

// Band is the colour bucket of a relevance score
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// BandFor buckets a displayed score: low below 50, medium below 75, high otherwise.
func BandFor(score int) Band {
	switch {
	case score < 50:
		return BandLow
	case score < 75:
		return BandMedium
	default:
		return BandHigh
	}
}

// TargetScore turns an optional raw score into the integer the animation
// ends on. Missing and NaN become 0; everything is clamped to [0,100].
func TargetScore(raw *float64) int {
	if raw == nil || math.IsNaN(*raw) {
		return 0
	}
	v := math.Round(*raw)
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}

// frameValue is the score shown at step i of n when animating towards target.
func frameValue(target, i, n int) int {
	if i >= n {
		return target
	}
	return int(math.Round(float64(target) * float64(i) / float64(n)))
}
