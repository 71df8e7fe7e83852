package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
)

// Recover re-enqueues PENDING and PROCESSING assets that are not already on
// the queue, oldest first, and returns how many ids it pushed. Ids pushed by a
// producer between the two reads may end up queued twice; the claim and the
// idempotent upsert absorb that.
func (w *Worker) Recover(ctx context.Context) (int, error) {
	return w.reconcile(ctx, "startup", false)
}

// Reconcile is Recover for a running fleet: PROCESSING assets whose claim is
// still inside its lease are left to their owner. A task dropped on a refused
// claim comes back here once the lease runs out.
func (w *Worker) Reconcile(ctx context.Context) (int, error) {
	return w.reconcile(ctx, "periodic", true)
}

// RunReconciler calls Reconcile every ReconcileInterval until ctx is
// cancelled. Errors are logged and retried on the next tick.
func (w *Worker) RunReconciler(ctx context.Context) error {
	t := time.NewTicker(w.cfg.ReconcileInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := w.Reconcile(ctx); err != nil && ctx.Err() == nil {
				w.metrics.IncLoopError()
				w.log.Warn("Reconciliation failed", "error", err)
			}
		}
	}
}

func (w *Worker) reconcile(ctx context.Context, pass string, skipLive bool) (int, error) {
	var (
		rows   []*types.Asset
		queued []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = w.assets.ListRecoverable(dbctx.Of(gctx))
		if err != nil {
			return fmt.Errorf("list recoverable assets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		queued, err = w.queue.List(gctx)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(queued)+len(rows))
	for _, id := range queued {
		seen[id] = struct{}{}
	}
	now := w.now()
	missing := make([]string, 0, len(rows))
	leased := 0
	for _, row := range rows {
		id := row.ID.String()
		if _, ok := seen[id]; ok {
			continue
		}
		if skipLive && w.leaseLive(row, now) {
			leased++
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		if err := w.queue.Push(ctx, missing...); err != nil {
			return 0, fmt.Errorf("re-enqueue %d tasks: %w", len(missing), err)
		}
	}
	w.metrics.AddRecovered(len(missing))
	if pass == "startup" || len(missing) > 0 {
		w.log.Info("Recovery finished",
			"pass", pass,
			"candidates", len(rows),
			"already_queued", len(rows)-len(missing)-leased,
			"leased", leased,
			"requeued", len(missing),
		)
	}
	return len(missing), nil
}

// leaseLive reports whether a PROCESSING row is still inside its claim lease.
func (w *Worker) leaseLive(a *types.Asset, now time.Time) bool {
	if a.ProcessingStatus != types.StatusProcessing || a.ProcessingStartedAt == nil {
		return false
	}
	return now.Before(a.ProcessingStartedAt.Add(w.cfg.ClaimLease))
}
