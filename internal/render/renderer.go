// Package render implements the engine's C4 component: block-based mixing
// of a compiled EDL window into PCM, with progress reporting and WAV
// serialization.
package render

import (
	"context"
	"time"

	"edlengine/internal/edl"
	"edlengine/internal/enginerr"
	"edlengine/internal/logger"
	"edlengine/internal/media"
)

const blockSize = 4096

// Range is a half-open window of timeline samples: [Start, Start+Duration).
type Range struct {
	Start    int64
	Duration int64
}

// ProgressFunc is invoked synchronously from the render goroutine after
// every block. Implementations must be cheap and must not block on
// anything that could serialize concurrent renders.
type ProgressFunc func(fraction float64)

// MediaSource is the subset of the media cache the renderer needs.
type MediaSource interface {
	Open(path string) (media.Handle, error)
	Info(h media.Handle) (media.Info, error)
	Read(h media.Handle, startFrame, numFrames int64) ([]float32, int64, error)
}

// Buffer is a rendered window: Frames frames of Channels-wide interleaved
// float32 samples, Data having length Frames*Channels.
type Buffer struct {
	Channels int
	Frames   int64
	Data     []float32
}

type openMedia struct {
	handle   media.Handle
	channels int
}

// RenderToBuffer mixes every track of compiled into an in-memory buffer
// covering r, applying per-clip gain and fades and summing tracks
// channel-wise. Output width is max(2, max media channel count); output
// length is exactly r.Duration frames regardless of block size.
func RenderToBuffer(ctx context.Context, compiled edl.CompiledEdl, r Range, source MediaSource, onProgress ProgressFunc) (Buffer, error) {
	if r.Duration <= 0 {
		return Buffer{}, enginerr.Invalid("range.duration_samples must be > 0")
	}
	if r.Start < 0 {
		return Buffer{}, enginerr.Invalid("range.start_samples must be >= 0")
	}

	opened, channels, err := openAllMedia(compiled, source)
	if err != nil {
		return Buffer{}, err
	}

	out := Buffer{
		Channels: channels,
		Frames:   r.Duration,
		Data:     make([]float32, channels*int(r.Duration)),
	}

	mixBuf := make([]float32, channels*blockSize)
	clipBuf := make([]float32, channels*blockSize)

	rangeEnd := r.Start + r.Duration
	framesDone := int64(0)
	blockCount := 0
	clipsTouched := make(map[string]bool)
	started := time.Now()

	for b0 := r.Start; b0 < rangeEnd; b0 += blockSize {
		select {
		case <-ctx.Done():
			return Buffer{}, enginerr.Cancelledf("render cancelled")
		default:
		}

		b1 := b0 + blockSize
		if b1 > rangeEnd {
			b1 = rangeEnd
		}
		blockLen := int(b1 - b0)

		for i := range mixBuf[:blockLen*channels] {
			mixBuf[i] = 0
		}

		for _, track := range compiled.Tracks {
			if track.Muted {
				continue
			}
			for _, clip := range track.Clips {
				if clip.Muted {
					continue
				}
				start, end, ok := intersect(clip.T0, clip.T1, b0, b1)
				if !ok {
					continue
				}

				om, ok := opened[clip.MediaID]
				if !ok {
					return Buffer{}, enginerr.Internalf("compiler invariant violated: media not opened", "media_id", clip.MediaID)
				}

				clipsTouched[clip.ClipID] = true
				srcFrame := clip.StartInMedia + (start - clip.T0)
				n := end - start
				dstOffset := int(start - b0)

				for i := range clipBuf[:blockLen*channels] {
					clipBuf[i] = 0
				}

				frames, framesRead, rerr := source.Read(om.handle, srcFrame, n)
				if rerr != nil {
					return Buffer{}, enginerr.Internalf(
						"media read failed during render: "+rerr.Error(),
						"clip_id", clip.ClipID, "path", clip.MediaPath)
				}

				srcChannels := om.channels
				for f := int64(0); f < framesRead; f++ {
					dstFrame := dstOffset + int(f)
					if dstFrame < 0 || dstFrame >= blockLen {
						continue
					}
					// A mono source is broadcast to every output channel;
					// a source with at least as many channels as the
					// output is truncated to min(dst,src) per §4.4.
					for ch := 0; ch < channels; ch++ {
						srcCh := ch
						if srcCh >= srcChannels {
							srcCh = srcChannels - 1
						}
						clipBuf[dstFrame*channels+ch] = frames[int(f)*srcChannels+srcCh] * clip.GainLinear
					}
				}

				applyFade(clipBuf, channels, blockLen, b0, clip.T0, clip.T1, clip.FadeIn, true)
				applyFade(clipBuf, channels, blockLen, b0, clip.T0, clip.T1, clip.FadeOut, false)

				for i := 0; i < blockLen*channels; i++ {
					mixBuf[i] += clipBuf[i] * track.GainLinear
				}
			}
		}

		copy(out.Data[int(b0-r.Start)*channels:int(b1-r.Start)*channels], mixBuf[:blockLen*channels])

		framesDone += int64(blockLen)
		blockCount++
		if onProgress != nil {
			onProgress(float64(framesDone) / float64(r.Duration))
		}
	}

	logger.Debug("render window mixed",
		logger.Int64("frames", framesDone),
		logger.Int("blocks", blockCount),
		logger.Int("clips_touched", len(clipsTouched)),
		logger.String("elapsed", time.Since(started).String()))

	return out, nil
}

func applyFade(buf []float32, channels, blockLen int, b0, clipT0, clipT1 int64, f edl.CompiledFade, fadeIn bool) {
	if f.DurationSamples <= 0 {
		return
	}

	var fadeStart, fadeEnd int64
	if fadeIn {
		fadeStart, fadeEnd = fadeInSpan(clipT0, f)
	} else {
		fadeStart, fadeEnd = fadeOutSpan(clipT1, f)
	}

	effStart, effEnd, ok := intersect(fadeStart, fadeEnd, clipT0, clipT1)
	if !ok {
		return
	}

	blockStart := b0
	blockEnd := b0 + int64(blockLen)
	start, end, ok := intersect(effStart, effEnd, blockStart, blockEnd)
	if !ok {
		return
	}

	for s := start; s < end; s++ {
		p := float64(s-fadeStart) / float64(f.DurationSamples)
		g := fadeGain(f.Shape, p, fadeIn)
		idx := int(s - b0)
		for ch := 0; ch < channels; ch++ {
			buf[idx*channels+ch] *= g
		}
	}
}

func openAllMedia(compiled edl.CompiledEdl, source MediaSource) (map[string]openMedia, int, error) {
	opened := make(map[string]openMedia)
	channels := 2

	for _, track := range compiled.Tracks {
		for _, clip := range track.Clips {
			if _, ok := opened[clip.MediaID]; ok {
				continue
			}
			h, err := source.Open(clip.MediaPath)
			if err != nil {
				return nil, 0, enginerr.Internalf(
					"media reader failed during render: "+err.Error(),
					"clip_id", clip.ClipID, "path", clip.MediaPath)
			}
			info, err := source.Info(h)
			if err != nil {
				return nil, 0, enginerr.Internalf("media probe failed during render: "+err.Error(), "path", clip.MediaPath)
			}
			if info.Channels > channels {
				channels = info.Channels
			}
			opened[clip.MediaID] = openMedia{handle: h, channels: info.Channels}
		}
	}

	return opened, channels, nil
}
