package render

import (
	"math"

	"edlengine/internal/edl"
)

// fadeGain returns the amplitude multiplier at progress p in [0,1] for the
// given shape and direction. p is clamped to [0,1] here.
func fadeGain(shape edl.FadeShape, p float64, fadeIn bool) float32 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	switch shape {
	case edl.FadeEqualPower:
		if fadeIn {
			return float32(math.Sqrt(p))
		}
		return float32(math.Sqrt(1 - p))
	default: // Linear
		if fadeIn {
			return float32(p)
		}
		return float32(1 - p)
	}
}

// fadeInSpan and fadeOutSpan return the absolute timeline [start, end)
// sample range over which a fade is active, given the clip's own bounds. Fade-in anchors at
// clip start; fade-out anchors at clip end. The fade's own domain may
// extend before/after the clip; callers intersect with clip bounds before
// applying it (§9 open question, resolved as "intersected with clip
// range").
func fadeInSpan(clipT0 int64, f edl.CompiledFade) (int64, int64) {
	return clipT0, clipT0 + f.DurationSamples
}

func fadeOutSpan(clipT1 int64, f edl.CompiledFade) (int64, int64) {
	return clipT1 - f.DurationSamples, clipT1
}

func intersect(aStart, aEnd, bStart, bEnd int64) (int64, int64, bool) {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}
