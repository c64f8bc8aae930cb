package render

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"edlengine/internal/edl"
	"edlengine/internal/enginerr"
)

// BitDepth enumerates the output sample formats RenderToWav can emit.
type BitDepth int

const (
	BitDepthInt16   BitDepth = 16
	BitDepthInt24   BitDepth = 24
	BitDepthFloat32 BitDepth = 32
)

// NormalizeBitDepth maps a requested integer bit depth onto a supported
// BitDepth, defaulting unknown values to 32-bit float per §4.4.
func NormalizeBitDepth(requested int) BitDepth {
	switch requested {
	case 16:
		return BitDepthInt16
	case 24:
		return BitDepthInt24
	default:
		return BitDepthFloat32
	}
}

func (b BitDepth) bytesPerSample() int {
	switch b {
	case BitDepthInt16:
		return 2
	case BitDepthInt24:
		return 3
	default:
		return 4
	}
}

func (b BitDepth) formatTag() uint16 {
	if b == BitDepthFloat32 {
		return 3
	}
	return 1
}

// RenderToWav renders r of compiled and writes it to outPath as a WAV file
// at the given bit depth, destructively replacing any existing file. The
// parent directory is created if missing. On any failure after the output
// file has been created, the partial file is removed.
func RenderToWav(ctx context.Context, compiled edl.CompiledEdl, r Range, outPath string, bitDepth BitDepth, source MediaSource, onProgress ProgressFunc) error {
	buf, err := RenderToBuffer(ctx, compiled, r, source, onProgress)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return enginerr.Invalid("output directory could not be created: " + err.Error())
	}
	os.Remove(outPath)

	f, err := os.Create(outPath)
	if err != nil {
		return enginerr.IoErr("failed to create output file: " + err.Error())
	}

	if err := writeWav(f, buf, compiled.SampleRate, bitDepth); err != nil {
		f.Close()
		os.Remove(outPath)
		return enginerr.IoErr("failed to write wav data: " + err.Error())
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return enginerr.IoErr("failed to close output file: " + err.Error())
	}
	return nil
}

func writeWav(f *os.File, buf Buffer, sampleRate int, bitDepth BitDepth) error {
	bytesPerSample := bitDepth.bytesPerSample()
	blockAlign := buf.Channels * bytesPerSample
	byteRate := sampleRate * blockAlign
	dataSize := uint32(int(buf.Frames) * blockAlign)
	riffSize := 36 + dataSize

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], riffSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], bitDepth.formatTag())
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(bytesPerSample*8))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}

	out := make([]byte, len(buf.Data)*bytesPerSample)
	for i, sample := range buf.Data {
		encodeSample(out[i*bytesPerSample:(i+1)*bytesPerSample], sample, bitDepth)
	}
	_, err := f.Write(out)
	return err
}

func encodeSample(dst []byte, x float32, bitDepth BitDepth) {
	switch bitDepth {
	case BitDepthFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(x))
	case BitDepthInt16:
		v := clampToInt(x, 1<<15-1)
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case BitDepthInt24:
		v := clampToInt(x, 1<<23-1)
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
	}
}

func clampToInt(x float32, maxVal int32) int32 {
	c := x
	if c > 1 {
		c = 1
	}
	if c < -1 {
		c = -1
	}
	return int32(math.Round(float64(c) * float64(maxVal)))
}
