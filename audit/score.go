package audit

import "math"

const (
	goodPoints    = 25.0
	warningPoints = 12.5
)

// Points returns the contribution of a single tier to the score.
func Points(t Tier) float64 {
	switch t {
	case TierGood:
		return goodPoints
	case TierWarning:
		return warningPoints
	default:
		return 0
	}
}

// Score sums the points of the four signals and rounds half away from zero.
// The result is always within [0, 100].
func Score(title, meta, headings, images SignalResult) int {
	total := Points(title.Status) +
		Points(meta.Status) +
		Points(headings.Status) +
		Points(images.Status)
	return int(math.Round(total))
}
