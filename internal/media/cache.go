// Package media implements the engine's C1 component: a process-lifetime
// cache of opened audio file handles shared by validation and rendering.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"edlengine/internal/enginerr"
	"edlengine/internal/logger"
)

// Info is the decoded geometry of an opened media file.
type Info struct {
	SampleRate      int
	Channels        int
	LengthInSamples int64
}

// Handle is an opaque reference into the cache; its zero value is invalid.
type Handle struct {
	path string
}

type entry struct {
	file   *os.File
	format wavFormat
}

// S3Config configures the optional s3:// media staging path. An empty
// Endpoint disables staging: s3:// paths fail to open with NotFound.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	StageDir  string
}

// Cache is the concurrent-safe media reader cache. One *os.File is opened
// per distinct path for the process lifetime; a second Open for an
// already-open path returns the same handle.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	s3cfg    S3Config
	s3client *minio.Client
	s3once   sync.Once
}

func NewCache(s3cfg S3Config) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		s3cfg:   s3cfg,
	}
}

// Open resolves path (a local filesystem path or an s3://bucket/key URI),
// parses its WAV header on first use, and returns a handle reusable across
// callers. Concurrent Opens of the same path return the same handle without
// re-parsing.
func (c *Cache) Open(path string) (Handle, error) {
	resolved, err := c.resolvePath(path)
	if err != nil {
		return Handle{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[resolved]; ok {
		return Handle{path: resolved}, nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		return Handle{}, enginerr.NotFoundf("media file not found", "path", path)
	}

	wf, err := parseWavHeader(f)
	if err != nil {
		f.Close()
		return Handle{}, enginerr.Invalid("unsupported media format: "+err.Error(), "path", path)
	}

	c.entries[resolved] = &entry{file: f, format: wf}
	return Handle{path: resolved}, nil
}

// resolvePath stages s3:// URIs to a local file once, then returns a local
// path for both forms.
func (c *Cache) resolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "s3://") {
		if abs, err := filepath.Abs(path); err == nil {
			return abs, nil
		}
		return path, nil
	}
	return c.stageFromS3(path)
}

func (c *Cache) stageFromS3(uri string) (string, error) {
	if c.s3cfg.Endpoint == "" {
		return "", enginerr.NotFoundf("s3 media staging not configured", "path", uri)
	}

	var initErr error
	c.s3once.Do(func() {
		c.s3client, initErr = minio.New(c.s3cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(c.s3cfg.AccessKey, c.s3cfg.SecretKey, ""),
			Secure: c.s3cfg.UseSSL,
		})
	})
	if initErr != nil {
		return "", enginerr.Internalf("failed to init s3 client: "+initErr.Error())
	}

	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	bucket, key := c.s3cfg.Bucket, rest
	if len(parts) == 2 {
		bucket, key = parts[0], parts[1]
	}

	stagePath := filepath.Join(c.s3cfg.StageDir, bucket, key)
	if _, err := os.Stat(stagePath); err == nil {
		return stagePath, nil
	}

	if err := os.MkdirAll(filepath.Dir(stagePath), 0o755); err != nil {
		return "", enginerr.IoErr("failed to create media stage directory: " + err.Error())
	}

	obj, err := c.s3client.GetObject(context.Background(), bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", enginerr.NotFoundf("s3 object not found", "path", uri)
	}
	defer obj.Close()

	out, err := os.Create(stagePath)
	if err != nil {
		return "", enginerr.IoErr("failed to stage s3 object: " + err.Error())
	}
	defer out.Close()

	if _, err := io.Copy(out, obj); err != nil {
		os.Remove(stagePath)
		return "", enginerr.IoErr("failed to download s3 object: " + err.Error())
	}

	logger.Info("staged s3 media object", logger.String("uri", uri), logger.String("local_path", stagePath))
	return stagePath, nil
}

// Info returns the decoded sample geometry for an open handle.
func (c *Cache) Info(h Handle) (Info, error) {
	c.mu.Lock()
	e, ok := c.entries[h.path]
	c.mu.Unlock()
	if !ok {
		return Info{}, enginerr.Internalf("invalid media handle", "path", h.path)
	}
	return Info{
		SampleRate:      e.format.sampleRate,
		Channels:        e.format.channels,
		LengthInSamples: e.format.lengthInSamples(),
	}, nil
}

// Read decodes numFrames interleaved frames starting at startFrame into a
// freshly allocated buffer, returning the number of frames actually
// decoded. Reading past the end of the file yields fewer frames with no
// error; a negative or beyond-end startFrame is an error.
func (c *Cache) Read(h Handle, startFrame, numFrames int64) ([]float32, int64, error) {
	c.mu.Lock()
	e, ok := c.entries[h.path]
	c.mu.Unlock()
	if !ok {
		return nil, 0, enginerr.Internalf("invalid media handle", "path", h.path)
	}

	length := e.format.lengthInSamples()
	if startFrame < 0 || startFrame > length {
		return nil, 0, enginerr.Invalid(fmt.Sprintf("start_frame %d out of range [0,%d]", startFrame, length))
	}
	if numFrames <= 0 {
		return []float32{}, 0, nil
	}

	buf := make([]float32, numFrames*int64(e.format.channels))
	n, err := readFrames(e.file, e.format, buf, startFrame, numFrames)
	if err != nil {
		return nil, 0, enginerr.Internalf("media read failed: "+err.Error(), "path", h.path)
	}
	return buf[:n*int64(e.format.channels)], n, nil
}

// Path returns the resolved local path backing a handle, used in error
// messages that must name the offending media file.
func (c *Cache) Path(h Handle) string { return h.path }
