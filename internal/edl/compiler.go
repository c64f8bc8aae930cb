package edl

import (
	"math"
	"sort"

	"edlengine/internal/enginerr"
)

// CompiledFade is a normalized, render-ready fade spec.
type CompiledFade struct {
	DurationSamples int64
	Shape           FadeShape
}

func (f CompiledFade) empty() bool { return f.DurationSamples <= 0 }

// CompiledClip holds non-owning references (by id) to its clip and media
// plus the precomputed geometry the renderer consumes.
type CompiledClip struct {
	ClipID       string
	MediaID      string
	MediaPath    string
	StartInMedia int64
	T0, T1       int64 // [T0, T1) in timeline samples
	GainLinear   float32
	Muted        bool
	FadeIn       CompiledFade
	FadeOut      CompiledFade
}

// CompiledTrack carries its clips pre-sorted by T0 (stable among equal
// T0, matching insertion order).
type CompiledTrack struct {
	TrackID    string
	GainLinear float32
	Muted      bool
	Clips      []CompiledClip
}

// CompiledEdl is the render-ready plan produced by Compile. It holds only
// references into the snapshot it was built from and must not outlive the
// render it serves.
type CompiledEdl struct {
	SampleRate int
	Tracks     []CompiledTrack
}

func dbToLinear(db float64) float32 {
	return float32(math.Pow(10, db/20))
}

func lowerFade(f *Fade) CompiledFade {
	if f == nil || f.DurationSamples <= 0 {
		return CompiledFade{}
	}
	shape := f.Shape
	if shape != FadeLinear && shape != FadeEqualPower {
		shape = FadeLinear
	}
	return CompiledFade{DurationSamples: f.DurationSamples, Shape: shape}
}

// Compile lowers a validated snapshot into a CompiledEdl: linear gains,
// absolute timeline bounds, normalized fades, and clips stable-sorted by
// T0 within each track. Missing media at this stage is an internal
// invariant violation — the store already guaranteed referential
// integrity at validation time.
func Compile(snap Snapshot) (CompiledEdl, error) {
	mediaByID := make(map[string]Media, len(snap.Edl.Media))
	for _, m := range snap.Edl.Media {
		mediaByID[m.ID] = m
	}

	out := CompiledEdl{SampleRate: snap.Edl.SampleRate}
	for _, t := range snap.Edl.Tracks {
		ct := CompiledTrack{
			TrackID:    t.ID,
			GainLinear: dbToLinear(t.GainDb),
			Muted:      t.Muted,
			Clips:      make([]CompiledClip, 0, len(t.Clips)),
		}

		for _, c := range t.Clips {
			m, ok := mediaByID[c.MediaID]
			if !ok {
				return CompiledEdl{}, enginerr.Internalf(
					"compiler invariant violated: clip references unknown media",
					"clip_id", c.ID, "media_id", c.MediaID)
			}

			ct.Clips = append(ct.Clips, CompiledClip{
				ClipID:       c.ID,
				MediaID:      c.MediaID,
				MediaPath:    m.Path,
				StartInMedia: c.StartInMedia,
				T0:           c.StartInTimeline,
				T1:           c.StartInTimeline + c.Duration,
				GainLinear:   dbToLinear(c.GainDb),
				Muted:        c.Muted,
				FadeIn:       lowerFade(c.FadeIn),
				FadeOut:      lowerFade(c.FadeOut),
			})
		}

		sort.SliceStable(ct.Clips, func(i, j int) bool {
			return ct.Clips[i].T0 < ct.Clips[j].T0
		})

		out.Tracks = append(out.Tracks, ct)
	}

	return out, nil
}
