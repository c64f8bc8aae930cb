package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edlengine/internal/edl"
	"edlengine/internal/media"
	"edlengine/internal/render"
)

// fakeSource is a minimal render.MediaSource/edl.MediaOpener double backed
// by an in-memory table of fixed-geometry, all-silent media.
type fakeSource struct {
	info map[string]media.Info
}

func (f *fakeSource) Open(path string) (media.Handle, error) {
	if _, ok := f.info[path]; !ok {
		return media.Handle{}, os.ErrNotExist
	}
	return media.Handle{}, nil
}

func (f *fakeSource) Info(h media.Handle) (media.Info, error) {
	for _, info := range f.info {
		return info, nil
	}
	return media.Info{}, os.ErrNotExist
}

func (f *fakeSource) Read(h media.Handle, startFrame, numFrames int64) ([]float32, int64, error) {
	for _, info := range f.info {
		n := numFrames
		if startFrame+n > info.LengthInSamples {
			n = info.LengthInSamples - startFrame
		}
		if n < 0 {
			n = 0
		}
		return make([]float32, n*int64(info.Channels)), n, nil
	}
	return nil, 0, os.ErrNotExist
}

func testEdl(path string) edl.Edl {
	return edl.Edl{
		ID:         "edl-1",
		SampleRate: 48000,
		Media:      []edl.Media{{ID: "m1", Path: path}},
		Tracks: []edl.Track{
			{ID: "t1", Clips: []edl.Clip{
				{ID: "c1", MediaID: "m1", StartInMedia: 0, StartInTimeline: 0, Duration: 1000},
			}},
		},
	}
}

func newTestEngine(path string) *Engine {
	source := &fakeSource{info: map[string]media.Info{
		path: {SampleRate: 48000, Channels: 2, LengthInSamples: 5000},
	}}
	store := edl.NewStore(source)
	return New(store, source)
}

func TestEngineUpdateEdlBroadcastsEdlApplied(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	sub := eng.broadcaster.Register("watcher")

	result, err := eng.UpdateEdl(testEdl("/audio/a.wav"), false)
	if err != nil {
		t.Fatalf("update edl: %v", err)
	}
	if result.EdlID != "edl-1" || result.Revision == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	ev := recvWithTimeout(t, sub)
	if ev.Type != EventEdlApplied {
		t.Fatalf("expected EdlApplied broadcast, got %s", ev.Type)
	}
}

func TestEngineUpdateEdlBroadcastsEdlErrorOnFailure(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	sub := eng.broadcaster.Register("watcher")

	bad := testEdl("/audio/a.wav")
	bad.ID = ""
	if _, err := eng.UpdateEdl(bad, false); err == nil {
		t.Fatal("expected invalid edl to be rejected")
	}

	ev := recvWithTimeout(t, sub)
	if ev.Type != EventEdlError {
		t.Fatalf("expected EdlError broadcast, got %s", ev.Type)
	}
}

func TestEngineRenderEdlWindowNoEdlLoaded(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")

	events := eng.RenderEdlWindow(context.Background(), RenderEdlWindowRequest{
		EdlID: "edl-1",
		Range: renderRange(0, 100),
	})

	ev := recvWithTimeout(t, events)
	if ev.Type != EventEdlError {
		t.Fatalf("expected EdlError when no edl is loaded, got %s", ev.Type)
	}
}

func TestEngineRenderEdlWindowIDMismatch(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	if _, err := eng.UpdateEdl(testEdl("/audio/a.wav"), false); err != nil {
		t.Fatalf("update edl: %v", err)
	}

	events := eng.RenderEdlWindow(context.Background(), RenderEdlWindowRequest{
		EdlID: "wrong-id",
		Range: renderRange(0, 100),
	})

	ev := recvWithTimeout(t, events)
	if ev.Type != EventEdlError {
		t.Fatalf("expected EdlError for mismatched edl id, got %s", ev.Type)
	}
}

func TestEngineRenderEdlWindowEmptyRangeIsRejected(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	if _, err := eng.UpdateEdl(testEdl("/audio/a.wav"), false); err != nil {
		t.Fatalf("update edl: %v", err)
	}

	dir := t.TempDir()
	events := eng.RenderEdlWindow(context.Background(), RenderEdlWindowRequest{
		EdlID:   "edl-1",
		Range:   renderRange(0, 0),
		OutPath: filepath.Join(dir, "out.wav"),
	})

	var terminal []Event
	for ev := range events {
		terminal = append(terminal, ev)
	}
	if len(terminal) != 1 || terminal[0].Type != EventEdlError {
		t.Fatalf("expected exactly one EdlError for zero-duration range, got %+v", terminal)
	}
}

func TestEngineRenderEdlWindowSucceeds(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	if _, err := eng.UpdateEdl(testEdl("/audio/a.wav"), false); err != nil {
		t.Fatalf("update edl: %v", err)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	events := eng.RenderEdlWindow(context.Background(), RenderEdlWindowRequest{
		EdlID:   "edl-1",
		Range:   renderRange(0, 1000),
		OutPath: out,
	})

	var sawComplete bool
	for ev := range events {
		if ev.Type == EventComplete {
			sawComplete = true
			if ev.Complete.Sha256 == "" {
				t.Fatal("expected a non-empty sha256 in the complete event")
			}
		}
		if ev.Type == EventEdlError {
			t.Fatalf("unexpected edl error during render: %+v", ev.EdlError)
		}
	}
	if !sawComplete {
		t.Fatal("expected a terminal Complete event")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestEngineSubscribeSendsReadyThenEdlApplied(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	if _, err := eng.UpdateEdl(testEdl("/audio/a.wav"), false); err != nil {
		t.Fatalf("update edl: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, events := eng.Subscribe(ctx, "")

	first := recvWithTimeout(t, events)
	if first.Type != EventBackendStatus {
		t.Fatalf("expected BackendStatus first, got %s", first.Type)
	}
	second := recvWithTimeout(t, events)
	if second.Type != EventEdlApplied {
		t.Fatalf("expected EdlApplied second, got %s", second.Type)
	}
}

func TestEngineSubscribeGeneratesSessionIDWhenEmpty(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, _ := eng.Subscribe(ctx, "")
	if id == "" {
		t.Fatal("expected a generated session id")
	}
}

func TestEngineSubscribeStopsOnContextCancel(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")
	ctx, cancel := context.WithCancel(context.Background())

	_, events := eng.Subscribe(ctx, "s1")
	recvWithTimeout(t, events) // ready

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			// draining any trailing buffered events is fine
			for range events {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected subscribe channel to close after context cancellation")
	}
}

func renderRange(start, duration int64) render.Range {
	return render.Range{Start: start, Duration: duration}
}

func TestEngineLoadFileReportsGeometry(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")

	info, err := eng.LoadFile("/audio/a.wav")
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if info.SampleRate != 48000 || info.NumChannels != 2 {
		t.Fatalf("unexpected file info: %+v", info)
	}
	if info.DurationSeconds <= 0 {
		t.Fatalf("expected a positive duration, got %v", info.DurationSeconds)
	}
}

func TestEngineLoadFileUnknownPathFails(t *testing.T) {
	eng := newTestEngine("/audio/a.wav")

	if _, err := eng.LoadFile("/audio/missing.wav"); err == nil {
		t.Fatal("expected an error for an unopened path")
	}
}
