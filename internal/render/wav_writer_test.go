package render

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"edlengine/internal/edl"
	"edlengine/internal/media"
)

func TestRenderToWavHeaderLayout(t *testing.T) {
	dir := t.TempDir()
	compiled, cache := monoFixtureEdl(t, dir)
	out := filepath.Join(dir, "out.wav")

	if err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out, BitDepthInt16, cache, nil); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 44 {
		t.Fatalf("expected at least a 44-byte header, got %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Fatalf("missing fmt/data chunk markers")
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 2 {
		t.Fatalf("expected 2 channels in header, got %d", channels)
	}
	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	if bitsPerSample != 16 {
		t.Fatalf("expected 16 bits per sample, got %d", bitsPerSample)
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	wantDataSize := uint32(4 * 2 * 2) // 4 frames * 2 channels * 2 bytes
	if dataSize != wantDataSize {
		t.Fatalf("expected data size %d, got %d", wantDataSize, dataSize)
	}
}

func TestRenderToWavFloat32FormatTag(t *testing.T) {
	dir := t.TempDir()
	compiled, cache := monoFixtureEdl(t, dir)
	out := filepath.Join(dir, "out.wav")

	if err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out, BitDepthFloat32, cache, nil); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	formatTag := binary.LittleEndian.Uint16(data[20:22])
	if formatTag != 3 {
		t.Fatalf("expected IEEE float format tag 3, got %d", formatTag)
	}
}

func TestRenderToWavIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	compiled, cache := monoFixtureEdl(t, dir)
	out1 := filepath.Join(dir, "out1.wav")
	out2 := filepath.Join(dir, "out2.wav")

	if err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out1, BitDepthInt16, cache, nil); err != nil {
		t.Fatalf("render 1: %v", err)
	}
	if err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out2, BitDepthInt16, cache, nil); err != nil {
		t.Fatalf("render 2: %v", err)
	}

	b1, err := os.ReadFile(out1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(out2)
	if err != nil {
		t.Fatal(err)
	}
	if len(b1) != len(b2) {
		t.Fatalf("expected identical output length across renders")
	}
	for i := range b1 {
		if b1[i] != b2[i] {
			t.Fatalf("byte %d differs between identical renders", i)
		}
	}
}

func TestRenderToWavCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	compiled, cache := monoFixtureEdl(t, dir)
	out := filepath.Join(dir, "nested", "deep", "out.wav")

	if err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out, BitDepthInt16, cache, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestRenderToWavRemovesPartialFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")

	compiled := edl.CompiledEdl{
		SampleRate: 48000,
		Tracks: []edl.CompiledTrack{
			{
				TrackID: "t1", GainLinear: 1,
				Clips: []edl.CompiledClip{
					{ClipID: "c1", MediaID: "missing", MediaPath: filepath.Join(dir, "nope.wav"), StartInMedia: 0, T0: 0, T1: 4, GainLinear: 1},
				},
			},
		},
	}
	cache := media.NewCache(media.S3Config{})

	err := RenderToWav(context.Background(), compiled, Range{Start: 0, Duration: 4}, out, BitDepthInt16, cache, nil)
	if err == nil {
		t.Fatal("expected render to fail for missing media")
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Fatal("expected no output file to remain after a failed render")
	}
}

func TestNormalizeBitDepthDefaultsToFloat32(t *testing.T) {
	if NormalizeBitDepth(8) != BitDepthFloat32 {
		t.Fatal("expected unsupported bit depth to default to float32")
	}
	if NormalizeBitDepth(16) != BitDepthInt16 {
		t.Fatal("expected 16 to map to int16")
	}
	if NormalizeBitDepth(24) != BitDepthInt24 {
		t.Fatal("expected 24 to map to int24")
	}
}
