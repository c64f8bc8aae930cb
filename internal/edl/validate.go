package edl

import (
	"fmt"

	"edlengine/internal/enginerr"
	"edlengine/internal/media"
)

// MediaOpener is the subset of the media cache the validator needs, kept as
// an interface so Store tests can substitute a fake without touching the
// filesystem.
type MediaOpener interface {
	Open(path string) (media.Handle, error)
	Info(h media.Handle) (media.Info, error)
}

// validated is the result of a successful Validate call: a confirmed EDL
// plus the file-backed geometry for every declared media entry. Compile
// does not read the geometry; it works from the stored Snapshot alone.
type validated struct {
	edl       Edl
	mediaInfo map[string]media.Info
}

// Validate enforces every rule in §4.2: structural non-emptiness, sample
// rate membership, media file existence and rate agreement, clip bounds,
// and fade well-formedness. Each failure names the offending entity.
func Validate(e Edl, opener MediaOpener) (validated, error) {
	if e.ID == "" {
		return validated{}, enginerr.Invalid("edl.id must not be empty")
	}
	if !SupportedSampleRates[e.SampleRate] {
		return validated{}, enginerr.Invalid(fmt.Sprintf("edl.sample_rate %d is not one of 44100, 48000, 96000", e.SampleRate))
	}
	if len(e.Media) == 0 {
		return validated{}, enginerr.Invalid("edl.media must not be empty")
	}
	if len(e.Tracks) == 0 {
		return validated{}, enginerr.Invalid("edl.tracks must not be empty")
	}

	mediaInfo := make(map[string]media.Info, len(e.Media))
	seenMediaIDs := make(map[string]bool, len(e.Media))
	for _, m := range e.Media {
		if m.ID == "" {
			return validated{}, enginerr.Invalid("media.id must not be empty")
		}
		if seenMediaIDs[m.ID] {
			return validated{}, enginerr.Invalid("duplicate media id", "media_id", m.ID)
		}
		seenMediaIDs[m.ID] = true
		if m.Path == "" {
			return validated{}, enginerr.Invalid("media.path must not be empty", "media_id", m.ID)
		}

		handle, err := opener.Open(m.Path)
		if err != nil {
			return validated{}, enginerr.Invalid(
				fmt.Sprintf("media file could not be opened: %v", err),
				"media_id", m.ID, "path", m.Path)
		}
		info, err := opener.Info(handle)
		if err != nil {
			return validated{}, enginerr.Invalid(
				fmt.Sprintf("media file could not be probed: %v", err),
				"media_id", m.ID, "path", m.Path)
		}
		if m.SampleRate != 0 && m.SampleRate != info.SampleRate {
			return validated{}, enginerr.Invalid(
				fmt.Sprintf("declared sample_rate %d does not match file sample_rate %d", m.SampleRate, info.SampleRate),
				"media_id", m.ID, "path", m.Path)
		}
		if info.SampleRate != e.SampleRate {
			return validated{}, enginerr.Invalid(
				fmt.Sprintf("media sample_rate %d does not match edl sample_rate %d", info.SampleRate, e.SampleRate),
				"media_id", m.ID, "path", m.Path)
		}
		mediaInfo[m.ID] = info
	}

	seenTrackIDs := make(map[string]bool, len(e.Tracks))
	for _, t := range e.Tracks {
		if t.ID == "" {
			return validated{}, enginerr.Invalid("track.id must not be empty")
		}
		if seenTrackIDs[t.ID] {
			return validated{}, enginerr.Invalid("duplicate track id", "track_id", t.ID)
		}
		seenTrackIDs[t.ID] = true

		for _, c := range t.Clips {
			if err := validateClip(c, mediaInfo, t.ID); err != nil {
				return validated{}, err
			}
		}
	}

	return validated{edl: e, mediaInfo: mediaInfo}, nil
}

func validateClip(c Clip, mediaInfo map[string]media.Info, trackID string) error {
	if c.ID == "" {
		return enginerr.Invalid("clip.id must not be empty", "track_id", trackID)
	}
	if c.MediaID == "" {
		return enginerr.Invalid("clip.media_id must not be empty", "clip_id", c.ID)
	}
	info, ok := mediaInfo[c.MediaID]
	if !ok {
		return enginerr.Invalid("clip references unknown media", "clip_id", c.ID, "media_id", c.MediaID)
	}
	if c.StartInMedia < 0 {
		return enginerr.Invalid("clip.start_in_media must be >= 0", "clip_id", c.ID)
	}
	if c.Duration <= 0 {
		return enginerr.Invalid("clip.duration must be > 0", "clip_id", c.ID)
	}
	if c.StartInTimeline < 0 {
		return enginerr.Invalid("clip.start_in_timeline must be >= 0", "clip_id", c.ID)
	}
	if c.StartInMedia+c.Duration > info.LengthInSamples {
		return enginerr.Invalid(
			fmt.Sprintf("clip extends past media length (%d > %d)", c.StartInMedia+c.Duration, info.LengthInSamples),
			"clip_id", c.ID, "media_id", c.MediaID)
	}
	if err := validateFade(c.FadeIn, c.ID, "fade_in"); err != nil {
		return err
	}
	if err := validateFade(c.FadeOut, c.ID, "fade_out"); err != nil {
		return err
	}
	return nil
}

func validateFade(f *Fade, clipID, which string) error {
	if f == nil {
		return nil
	}
	if f.DurationSamples < 0 {
		return enginerr.Invalid(which+".duration_samples must be >= 0", "clip_id", clipID)
	}
	switch f.Shape {
	case FadeLinear, FadeEqualPower, "":
	default:
		return enginerr.Invalid(which+".shape must be LINEAR or EQUAL_POWER", "clip_id", clipID)
	}
	return nil
}
