package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	apperrors "github.com/yungbote/thinkbank-worker/internal/pkg/errors"
)

// Store reads raw asset bytes. Open returns an error wrapping
// errors.ErrNotFound when the object does not exist.
type Store interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Close() error
}

// TempFile is a fetched object on local disk. Remove is safe to call more than
// once.
type TempFile struct {
	Path string
	Size int64
}

func (f *TempFile) Remove() {
	if f == nil || f.Path == "" {
		return
	}
	_ = os.Remove(f.Path)
}

// FetchToTemp copies bucket/key into a new file under dir (os.TempDir when
// empty). On error nothing is left on disk.
func FetchToTemp(ctx context.Context, s Store, dir, bucket, key string) (*TempFile, error) {
	if s == nil {
		return nil, fmt.Errorf("object store not configured")
	}
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: bucket and key required", apperrors.ErrInvalidArgument)
	}

	rc, err := s.Open(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", bucket, key, err)
	}
	defer rc.Close()

	f, err := os.CreateTemp(dir, "asset-*"+safeExt(key))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := &TempFile{Path: f.Name()}

	n, copyErr := io.Copy(f, rc)
	closeErr := f.Close()
	if copyErr != nil {
		tmp.Remove()
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, copyErr)
	}
	if closeErr != nil {
		tmp.Remove()
		return nil, fmt.Errorf("close temp file: %w", closeErr)
	}
	tmp.Size = n
	return tmp, nil
}

func safeExt(key string) string {
	ext := path.Ext(key)
	if len(ext) > 10 || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	return ext
}
