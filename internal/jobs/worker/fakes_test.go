package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/thinkbank-worker/internal/capability"
	"github.com/yungbote/thinkbank-worker/internal/ingestion/pipeline"
	apperrors "github.com/yungbote/thinkbank-worker/internal/pkg/errors"
)

// memQueue mimics the Redis list: Push prepends, Pop takes from the tail.
type memQueue struct {
	mu       sync.Mutex
	items    []string
	popErrs  int
	listErr  error
	popCalls int
}

func (q *memQueue) Push(_ context.Context, ids ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		q.items = append([]string{id}, q.items...)
	}
	return nil
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	q.mu.Lock()
	q.popCalls++
	if q.popErrs > 0 {
		q.popErrs--
		q.mu.Unlock()
		return "", false, errors.New("connection refused")
	}
	if n := len(q.items); n > 0 {
		id := q.items[n-1]
		q.items = q.items[:n-1]
		q.mu.Unlock()
		return id, true, nil
	}
	q.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-t.C:
		return "", false, nil
	}
}

func (q *memQueue) List(context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	return append([]string(nil), q.items...), nil
}

func (q *memQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *memQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.items...)
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	opens   int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
}

func (s *memStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, apperrors.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Close() error { return nil }

type stubCaps struct {
	caption  string
	genErr   error
	zh       string
	label    string
	classErr error
	textErr  error
}

func (c *stubCaps) EmbedText(context.Context, string) ([]float32, error) {
	if c.textErr != nil {
		return nil, c.textErr
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func (c *stubCaps) EmbedImage(context.Context, []byte, string) ([]float32, error) {
	return []float32{0.5, 0.6, 0.7}, nil
}

func (c *stubCaps) Caption(context.Context, []byte, string, string) (string, error) {
	return c.caption, nil
}

func (c *stubCaps) Classify(context.Context, []byte, string, []string) (string, error) {
	return c.label, c.classErr
}

func (c *stubCaps) Generate(context.Context, string, capability.GenerateOptions) (string, error) {
	return c.zh, c.genErr
}

type panicPipeline struct{}

func (panicPipeline) Process(context.Context, pipeline.Input, pipeline.Reporter) (*pipeline.Output, error) {
	panic("decoder exploded")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
