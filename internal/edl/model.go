// Package edl implements the declarative timeline model, its validation,
// the content-addressed snapshot store, and the compiler that lowers a
// validated snapshot into a render-ready plan.
package edl

// FadeShape is the normalized amplitude-ramp curve applied at a clip
// boundary.
type FadeShape string

const (
	FadeLinear     FadeShape = "LINEAR"
	FadeEqualPower FadeShape = "EQUAL_POWER"
)

// Fade is a sample-count-bounded amplitude ramp. DurationSamples == 0 is
// equivalent to no fade at all.
type Fade struct {
	DurationSamples int64     `json:"duration_samples"`
	Shape           FadeShape `json:"shape"`
}

// Media is a reference to an on-disk (or staged) audio file. SampleRate and
// Channels below are the declared values; the authoritative values come
// from actually opening the file during validation.
type Media struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Clip places a time range of a Media reference onto a Track at a timeline
// position.
type Clip struct {
	ID              string  `json:"id"`
	MediaID         string  `json:"media_id"`
	StartInMedia    int64   `json:"start_in_media"`
	StartInTimeline int64   `json:"start_in_timeline"`
	Duration        int64   `json:"duration"`
	GainDb          float64 `json:"gain_db"`
	Muted           bool    `json:"muted"`
	FadeIn          *Fade   `json:"fade_in,omitempty"`
	FadeOut         *Fade   `json:"fade_out,omitempty"`
}

// Track is an ordered list of clips with its own gain and mute state.
type Track struct {
	ID     string  `json:"id"`
	GainDb float64 `json:"gain_db"`
	Muted  bool    `json:"muted"`
	Clips  []Clip  `json:"clips"`
}

// Edl is the declarative, client-supplied timeline. Revision is
// informational on input; the Store overwrites it on successful replace.
type Edl struct {
	ID         string  `json:"id"`
	SampleRate int     `json:"sample_rate"`
	Revision   string  `json:"revision,omitempty"`
	Media      []Media `json:"media"`
	Tracks     []Track `json:"tracks"`
}

// SupportedSampleRates enumerates the only sample rates an EDL may declare.
var SupportedSampleRates = map[int]bool{
	44100: true,
	48000: true,
	96000: true,
}

// Snapshot is the immutable record produced by a successful Store.replace:
// a validated EDL plus server-assigned identity metadata.
type Snapshot struct {
	Edl        Edl
	Revision   string
	TrackCount int
	ClipCount  int
}

// Clone returns a deep copy of the snapshot so that Store.get callers
// cannot observe or be raced by a future replace.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Edl = s.Edl.Clone()
	return out
}

// Clone deep-copies an Edl, including nested track/clip/fade slices.
func (e Edl) Clone() Edl {
	out := e
	out.Media = append([]Media(nil), e.Media...)
	out.Tracks = make([]Track, len(e.Tracks))
	for i, t := range e.Tracks {
		nt := t
		nt.Clips = make([]Clip, len(t.Clips))
		for j, c := range t.Clips {
			nc := c
			if c.FadeIn != nil {
				f := *c.FadeIn
				nc.FadeIn = &f
			}
			if c.FadeOut != nil {
				f := *c.FadeOut
				nc.FadeOut = &f
			}
			nt.Clips[j] = nc
		}
		out.Tracks[i] = nt
	}
	return out
}

func (e Edl) trackCount() int { return len(e.Tracks) }

func (e Edl) clipCount() int {
	n := 0
	for _, t := range e.Tracks {
		n += len(t.Clips)
	}
	return n
}

func (e Edl) mediaByID(id string) (Media, bool) {
	for _, m := range e.Media {
		if m.ID == id {
			return m, true
		}
	}
	return Media{}, false
}
