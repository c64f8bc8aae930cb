package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"edlengine/internal/edl"
	"edlengine/internal/enginerr"
	"edlengine/internal/logger"
	"edlengine/internal/render"
)

const heartbeatInterval = 2 * time.Second

// Engine is C5: it owns the store, compiler, renderer, and broadcaster and
// is the only component that translates between wire requests and the
// internal model.
type Engine struct {
	store       *edl.Store
	source      render.MediaSource
	broadcaster *Broadcaster
}

func New(store *edl.Store, source render.MediaSource) *Engine {
	return &Engine{store: store, source: source, broadcaster: NewBroadcaster()}
}

// FileInfo mirrors §6's LoadFileResponse.file_info: the decoded geometry
// of a probed audio file plus its size on disk.
type FileInfo struct {
	Path            string
	SampleRate      int
	NumChannels     int
	DurationSeconds float64
	FileSizeBytes   int64
}

// LoadFile opens path through the shared media cache and reports its
// decoded geometry. It does not touch the EDL store: this is a
// standalone probe used by the legacy LoadFileRequest surface, grounded
// on the same media cache every clip validation and render uses.
func (e *Engine) LoadFile(path string) (FileInfo, error) {
	h, err := e.source.Open(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := e.source.Info(h)
	if err != nil {
		return FileInfo{}, err
	}

	size := int64(0)
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}

	durationSec := 0.0
	if info.SampleRate > 0 {
		durationSec = float64(info.LengthInSamples) / float64(info.SampleRate)
	}

	return FileInfo{
		Path:            path,
		SampleRate:      info.SampleRate,
		NumChannels:     info.Channels,
		DurationSeconds: durationSec,
		FileSizeBytes:   size,
	}, nil
}

// UpdateEdlResult is the synchronous response to UpdateEdl.
type UpdateEdlResult struct {
	EdlID      string
	Revision   string
	TrackCount int
	ClipCount  int
}

// UpdateEdl validates and stores e. On success it broadcasts EdlApplied; on
// failure it broadcasts EdlError so passive subscribers observe it, and
// returns the validation error unchanged. replaceFlag is accepted but
// currently has no effect on store semantics — reserved for a future merge
// mode per §4.5.
func (e *Engine) UpdateEdl(edlValue edl.Edl, replaceFlag bool) (UpdateEdlResult, error) {
	snap, err := e.store.Replace(edlValue)
	if err != nil {
		logger.Warn("edl update rejected", logger.String("edl_id", edlValue.ID), logger.Err(err))
		e.broadcaster.Broadcast(edlError(edlValue.ID, err.Error()))
		return UpdateEdlResult{}, err
	}

	logger.Info("edl applied",
		logger.String("edl_id", snap.Edl.ID),
		logger.String("revision", snap.Revision),
		logger.Int("track_count", snap.TrackCount),
		logger.Int("clip_count", snap.ClipCount))

	e.broadcaster.Broadcast(edlApplied(snap.Edl.ID, snap.Revision, snap.TrackCount, snap.ClipCount))

	return UpdateEdlResult{
		EdlID:      snap.Edl.ID,
		Revision:   snap.Revision,
		TrackCount: snap.TrackCount,
		ClipCount:  snap.ClipCount,
	}, nil
}

// RenderEdlWindowRequest is the input to RenderEdlWindow.
type RenderEdlWindowRequest struct {
	EdlID    string
	Range    render.Range
	OutPath  string
	BitDepth int
}

// RenderEdlWindow compiles the current snapshot (captured at call start,
// unaffected by concurrent UpdateEdl calls) and renders r to a WAV file,
// streaming Progress events and exactly one terminal event (Complete or
// EdlError) on events. The channel is closed when the render ends, whether
// by completion, error, or ctx cancellation.
func (e *Engine) RenderEdlWindow(ctx context.Context, req RenderEdlWindowRequest) <-chan Event {
	events := make(chan Event, subscriberQueueDepth)

	go func() {
		defer close(events)

		snap, ok := e.store.Get()
		if !ok {
			events <- edlError(req.EdlID, "No EDL currently loaded")
			return
		}
		if snap.Edl.ID != req.EdlID {
			events <- edlError(req.EdlID, "EDL ID mismatch")
			return
		}

		compiled, err := edl.Compile(snap)
		if err != nil {
			logger.Error("compile failed", logger.String("edl_id", req.EdlID), logger.Err(err))
			events <- edlError(req.EdlID, err.Error())
			return
		}

		started := time.Now()
		bitDepth := render.NormalizeBitDepth(req.BitDepth)

		onProgress := func(fraction float64) {
			elapsed := time.Since(started).Seconds()
			eta := 0.0
			if fraction > 0 {
				eta = elapsed/fraction - elapsed
			}
			select {
			case events <- progress(fraction, eta):
			default:
			}
		}

		err = render.RenderToWav(ctx, compiled, req.Range, req.OutPath, bitDepth, e.source, onProgress)
		if err != nil {
			if enginerr.KindOf(err) == enginerr.Cancelled {
				logger.Info("render cancelled", logger.String("edl_id", req.EdlID))
				return
			}
			logger.Error("render failed", logger.String("edl_id", req.EdlID), logger.Err(err))
			events <- edlError(req.EdlID, err.Error())
			return
		}

		sum, err := sha256File(req.OutPath)
		if err != nil {
			logger.Error("failed to hash output", logger.String("path", req.OutPath), logger.Err(err))
			events <- edlError(req.EdlID, "failed to hash output: "+err.Error())
			return
		}

		durationSec := float64(req.Range.Duration) / float64(compiled.SampleRate)
		events <- complete(req.OutPath, durationSec, sum)
	}()

	return events
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Subscribe registers sessionID (generating one with uuid if empty) with
// the broadcaster and returns a channel of events: an initial
// BackendStatus, an EdlApplied if a snapshot currently exists, then
// broadcast events interleaved with periodic heartbeats, until ctx is
// cancelled.
func (e *Engine) Subscribe(ctx context.Context, sessionID string) (string, <-chan Event) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	initial := []Event{backendStatus("ready")}
	if snap, ok := e.store.Get(); ok {
		initial = append(initial, edlApplied(snap.Edl.ID, snap.Revision, snap.TrackCount, snap.ClipCount))
	}
	upstream := e.broadcaster.Register(sessionID, initial...)
	out := make(chan Event, subscriberQueueDepth)

	go func() {
		defer close(out)
		defer e.broadcaster.Unregister(sessionID)

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		started := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-upstream:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ticker.C:
				select {
				case out <- heartbeat(time.Since(started).Milliseconds()):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sessionID, out
}
