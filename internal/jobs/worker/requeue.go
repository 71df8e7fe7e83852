package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	repos "github.com/yungbote/thinkbank-worker/internal/data/repos/assets"
	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

// Requeuer puts assets back in front of the worker.
type Requeuer struct {
	log    *logger.Logger
	assets repos.AssetRepo
	tasks  repos.ProcessingTaskRepo
	queue  Queue
}

func NewRequeuer(log *logger.Logger, assets repos.AssetRepo, tasks repos.ProcessingTaskRepo, queue Queue) *Requeuer {
	return &Requeuer{
		log:    log.With("component", "Requeuer"),
		assets: assets,
		tasks:  tasks,
		queue:  queue,
	}
}

// Requeue resets the given assets to PENDING and pushes them. Unless force is
// set only FAILED assets are touched. It returns the ids pushed.
func (r *Requeuer) Requeue(ctx context.Context, ids []uuid.UUID, force bool) ([]uuid.UUID, error) {
	reset, err := r.assets.ResetToPending(dbctx.Of(ctx), ids, !force)
	if err != nil {
		return nil, fmt.Errorf("reset assets: %w", err)
	}
	if len(reset) == 0 {
		r.log.Info("Nothing to requeue", "requested", len(ids))
		return reset, nil
	}

	tasks := make([]string, len(reset))
	for i, id := range reset {
		tasks[i] = id.String()
		if r.tasks != nil {
			if err := r.tasks.Record(dbctx.Of(ctx), id, repos.TaskUpdate{Status: types.StatusPending, Stage: types.StageQueued}); err != nil {
				r.log.Warn("Processing task reset failed", "asset_id", id, "error", err)
			}
		}
	}
	if err := r.queue.Push(ctx, tasks...); err != nil {
		return nil, fmt.Errorf("push %d tasks: %w", len(tasks), err)
	}
	r.log.Info("Assets requeued", "requested", len(ids), "requeued", len(reset), "force", force)
	return reset, nil
}

// RequeueAllFailed requeues every FAILED asset.
func (r *Requeuer) RequeueAllFailed(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := r.assets.ListIDsByStatus(dbctx.Of(ctx), types.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list failed assets: %w", err)
	}
	return r.Requeue(ctx, ids, false)
}
