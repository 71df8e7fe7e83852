package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/thinkbank-worker/internal/clients/gcp"
	apperrors "github.com/yungbote/thinkbank-worker/internal/pkg/errors"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type GCSConfig struct {
	// EmulatorHost points at a fake-gcs-server style emulator; empty means GCS.
	EmulatorHost string
	ReadTimeout  time.Duration
}

type gcsStore struct {
	log         *logger.Logger
	client      *storage.Client
	readTimeout time.Duration
}

func NewGCSStore(ctx context.Context, cfg GCSConfig, log *logger.Logger) (Store, error) {
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(gcp.ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadOnly))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	log = log.With("service", "GCSStore")
	log.Info("Object store initialized", "backend", "gcs", "emulator_host", cfg.EmulatorHost)
	return &gcsStore{log: log, client: client, readTimeout: timeout}, nil
}

func (s *gcsStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	// The reader outlives this call; cancel only once it is closed.
	ctx2, cancel := context.WithTimeout(ctx, s.readTimeout)
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", apperrors.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *gcsStore) Close() error { return s.client.Close() }

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
