package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/thinkbank-worker/internal/clients/objectstore"
	repos "github.com/yungbote/thinkbank-worker/internal/data/repos/assets"
	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/ingestion/pipeline"
	"github.com/yungbote/thinkbank-worker/internal/observability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
	"github.com/yungbote/thinkbank-worker/internal/pkg/pointers"
)

var tracer = otel.Tracer("github.com/yungbote/thinkbank-worker/internal/jobs/worker")

// Queue is the part of the task queue the worker needs.
type Queue interface {
	Push(ctx context.Context, ids ...string) error
	Pop(ctx context.Context, timeout time.Duration) (string, bool, error)
	List(ctx context.Context) ([]string, error)
	Len(ctx context.Context) (int64, error)
}

type Config struct {
	// WorkerID identifies this process in claims. Defaults to the hostname.
	WorkerID          string
	PopTimeout        time.Duration
	ErrorBackoff      time.Duration
	ClaimLease        time.Duration
	// AssetTimeout bounds one asset's fetch, pipeline and persistence.
	AssetTimeout      time.Duration
	// ReconcileInterval spaces the periodic re-enqueue of stranded assets.
	ReconcileInterval time.Duration
	// TempDir holds downloaded objects; empty means os.TempDir.
	TempDir           string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.WorkerID) == "" {
		c.WorkerID = DefaultWorkerID()
	}
	if c.PopTimeout <= 0 {
		c.PopTimeout = 5 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = 30 * time.Minute
	}
	if c.AssetTimeout <= 0 {
		c.AssetTimeout = 10 * time.Minute
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 5 * time.Minute
	}
	return c
}

func DefaultWorkerID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "worker-" + uuid.NewString()[:8]
}

type Deps struct {
	Log      *logger.Logger
	Assets   repos.AssetRepo
	Tasks    repos.ProcessingTaskRepo
	Queue    Queue
	Store    objectstore.Store
	Pipeline pipeline.Service
	Metrics  *observability.Metrics
}

type Worker struct {
	cfg      Config
	log      *logger.Logger
	assets   repos.AssetRepo
	tasks    repos.ProcessingTaskRepo
	queue    Queue
	store    objectstore.Store
	pipeline pipeline.Service
	metrics  *observability.Metrics

	now func() time.Time
}

func New(cfg Config, deps Deps) (*Worker, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Assets == nil || deps.Queue == nil || deps.Store == nil || deps.Pipeline == nil {
		return nil, fmt.Errorf("worker requires asset repo, queue, object store and pipeline")
	}
	cfg = cfg.withDefaults()
	return &Worker{
		cfg:      cfg,
		log:      deps.Log.With("component", "AssetWorker", "worker_id", cfg.WorkerID),
		assets:   deps.Assets,
		tasks:    deps.Tasks,
		queue:    deps.Queue,
		store:    deps.Store,
		pipeline: deps.Pipeline,
		metrics:  deps.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (w *Worker) ID() string { return w.cfg.WorkerID }

// Run consumes the queue until ctx is cancelled. Queue errors are retried
// after ErrorBackoff; it returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker loop started", "pop_timeout", w.cfg.PopTimeout.String(), "claim_lease", w.cfg.ClaimLease.String())
	for {
		if ctx.Err() != nil {
			w.log.Info("Worker loop stopped")
			return nil
		}

		id, ok, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.metrics.IncLoopError()
			w.log.Warn("Queue pop failed", "error", err, "backoff", w.cfg.ErrorBackoff.String())
			sleepCtx(ctx, w.cfg.ErrorBackoff)
			continue
		}
		if !ok {
			w.sampleDepth(ctx)
			continue
		}

		if err := w.handle(ctx, id); err != nil {
			w.metrics.IncLoopError()
			w.log.Warn("Task deferred after infrastructure error", "task", id, "error", err, "backoff", w.cfg.ErrorBackoff.String())
			sleepCtx(ctx, w.cfg.ErrorBackoff)
		}
	}
}

func (w *Worker) sampleDepth(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	if n, err := w.queue.Len(ctx); err == nil {
		w.metrics.SetQueueDepth(n)
	}
}

// errTransient marks failures of the database itself while handling a task.
// The task is put back on the queue and the loop backs off.
var errTransient = errors.New("transient infrastructure error")

// handle processes one task. Asset-level failures are recorded on the row and
// return nil; only infrastructure errors that left the asset untouched are
// returned.
func (w *Worker) handle(parent context.Context, raw string) (err error) {
	id, perr := uuid.Parse(strings.TrimSpace(raw))
	if perr != nil {
		w.log.Warn("Dropping malformed task id", "task", raw, "error", perr)
		w.metrics.ObserveAsset("", observability.OutcomeDropped, 0)
		return nil
	}

	// The asset runs to completion even when the loop is being cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.cfg.AssetTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "worker.asset")
	span.SetAttributes(attribute.String("asset.id", id.String()))
	defer span.End()

	log := w.log.With("asset_id", id.String())
	start := time.Now()
	kind := ""

	defer func() {
		if r := recover(); r != nil {
			log.Error("Asset processing panic", "panic", r, "stack", string(debug.Stack()))
			w.fail(ctx, log, id, fmt.Errorf("panic: %v", r))
			w.metrics.ObserveAsset(kind, observability.OutcomeFailed, time.Since(start))
			span.SetStatus(codes.Error, "panic")
			err = nil
		}
	}()

	dbc := dbctx.Of(ctx)
	asset, gerr := w.assets.GetByID(dbc, id)
	if gerr != nil {
		w.requeue(ctx, log, raw)
		return fmt.Errorf("%w: load asset %s: %v", errTransient, id, gerr)
	}
	if asset == nil {
		log.Warn("Asset row not found; dropping task")
		w.metrics.ObserveAsset("", observability.OutcomeDropped, 0)
		return nil
	}

	now := w.now()
	claimed, cerr := w.assets.Claim(dbc, id, w.cfg.WorkerID, now, w.cfg.ClaimLease)
	if cerr != nil {
		w.requeue(ctx, log, raw)
		return fmt.Errorf("%w: claim asset %s: %v", errTransient, id, cerr)
	}
	if !claimed {
		log.Info("Asset claimed by another worker; skipping until reconciliation", "claimed_by", asset.ClaimedBy)
		w.metrics.ObserveAsset("", observability.OutcomeRefused, 0)
		return nil
	}

	kind = string(pipeline.Route(asset.MimeType))
	span.SetAttributes(attribute.String("asset.kind", kind), attribute.String("asset.mime_type", asset.MimeType))
	w.metrics.InflightInc()
	defer w.metrics.InflightDec()
	w.track(ctx, log, id, repos.TaskUpdate{Status: types.StatusProcessing, Stage: types.StageDownloading, Progress: 0.1, StartedAt: pointers.Ptr(now)})

	outcome, procErr := w.process(ctx, log, asset)
	if procErr != nil {
		span.RecordError(procErr)
		span.SetStatus(codes.Error, procErr.Error())
		w.fail(ctx, log, id, procErr)
		w.metrics.ObserveAsset(kind, observability.OutcomeFailed, time.Since(start))
		return nil
	}

	w.track(ctx, log, id, repos.TaskUpdate{Status: types.StatusCompleted, Stage: types.StageCompleted, Progress: 1, CompletedAt: pointers.Ptr(w.now())})
	w.metrics.ObserveAsset(kind, outcome, time.Since(start))
	log.Info("Asset processed", "kind", kind, "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// process fetches the object, runs the pipeline and persists the result.
func (w *Worker) process(ctx context.Context, log *logger.Logger, asset *types.Asset) (string, error) {
	in := pipeline.Input{AssetID: asset.ID, MimeType: asset.MimeType}

	if pipeline.Route(asset.MimeType) != pipeline.KindUnsupported {
		tmp, err := objectstore.FetchToTemp(ctx, w.store, w.cfg.TempDir, asset.BucketName, asset.ObjectName)
		if err != nil {
			return "", fmt.Errorf("fetch object: %w", err)
		}
		defer tmp.Remove()
		in.Path = tmp.Path
		log.Debug("Object fetched", "bucket", asset.BucketName, "object", asset.ObjectName, "bytes", tmp.Size)
	}

	report := func(stage string, progress float64) {
		w.track(ctx, log, asset.ID, repos.TaskUpdate{Status: types.StatusProcessing, Stage: stage, Progress: progress})
	}
	out, err := w.pipeline.Process(ctx, in, report)
	if err != nil {
		return "", err
	}
	for _, step := range out.Fallbacks {
		w.metrics.IncFallback(step)
	}
	if len(out.Fallbacks) > 0 {
		log.Info("Best-effort steps fell back", "steps", out.Fallbacks, "diagnostics", out.Diagnostics)
	}

	if err := w.assets.Complete(dbctx.Of(ctx), asset.ID, out.Enrichment); err != nil {
		return "", fmt.Errorf("persist results: %w", err)
	}
	if out.Kind == pipeline.KindUnsupported {
		log.Info("No pipeline for mime type; completed without enrichment", "mime_type", asset.MimeType)
		return observability.OutcomeUnsupported, nil
	}
	return observability.OutcomeCompleted, nil
}

func (w *Worker) fail(ctx context.Context, log *logger.Logger, id uuid.UUID, cause error) {
	log.Error("Asset processing failed", "error", cause)
	if err := w.assets.MarkFailed(dbctx.Of(ctx), id); err != nil {
		log.Error("Could not mark asset failed", "error", err)
	}
	w.track(ctx, log, id, repos.TaskUpdate{
		Status:       types.StatusFailed,
		Stage:        types.StageFailed,
		Progress:     1,
		ErrorMessage: cause.Error(),
		CompletedAt:  pointers.Ptr(w.now()),
	})
}

// track records a stage transition. Failures never affect the asset.
func (w *Worker) track(ctx context.Context, log *logger.Logger, id uuid.UUID, u repos.TaskUpdate) {
	if w.tasks == nil {
		return
	}
	if err := w.tasks.Record(dbctx.Of(ctx), id, u); err != nil {
		log.Warn("Processing task update failed", "stage", u.Stage, "error", err)
	}
}

func (w *Worker) requeue(ctx context.Context, log *logger.Logger, raw string) {
	if err := w.queue.Push(ctx, raw); err != nil {
		log.Error("Could not requeue task; startup recovery will pick it up", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
