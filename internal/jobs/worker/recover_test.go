package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
)

func TestRecover_EnqueuesMissingOldestFirst(t *testing.T) {
	h := newHarness(t, &stubCaps{}, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(status string, offset time.Duration) func(a *types.Asset) {
		return func(a *types.Asset) {
			a.ProcessingStatus = status
			a.CreatedAt = base.Add(offset)
		}
	}

	processing := h.addAsset(t, "text/plain", nil, at(types.StatusProcessing, 2*time.Minute))
	oldest := h.addAsset(t, "text/plain", nil, at(types.StatusPending, time.Minute))
	queued := h.addAsset(t, "text/plain", nil, at(types.StatusPending, 3*time.Minute))
	h.addAsset(t, "text/plain", nil, at(types.StatusCompleted, 0))
	h.addAsset(t, "text/plain", nil, at(types.StatusFailed, 0))

	require.NoError(t, h.queue.Push(context.Background(), queued.ID.String()))

	n, err := h.w.Recover(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Head first: the oldest asset sits at the tail and pops first.
	require.Equal(t, []string{processing.ID.String(), oldest.ID.String(), queued.ID.String()}, h.queue.snapshot())

	n, err = h.w.Recover(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, h.queue.snapshot(), 3)
}

func TestRecover_QueueErrorAbortsStartup(t *testing.T) {
	h := newHarness(t, &stubCaps{}, nil)
	h.addAsset(t, "text/plain", nil, nil)
	h.queue.listErr = errors.New("redis down")

	_, err := h.w.Recover(context.Background())
	require.ErrorContains(t, err, "redis down")
	require.Empty(t, h.queue.items)
}

func TestRequeuer(t *testing.T) {
	h := newHarness(t, &stubCaps{}, nil)
	failed := h.addAsset(t, "text/plain", nil, func(a *types.Asset) {
		a.ProcessingStatus = types.StatusFailed
		a.ClaimedBy = "worker-a"
	})
	done := h.addAsset(t, "text/plain", nil, func(a *types.Asset) { a.ProcessingStatus = types.StatusCompleted })

	r := NewRequeuer(h.w.log, h.assets, h.tasks, h.queue)
	ids, err := r.Requeue(context.Background(), []uuid.UUID{failed.ID, done.ID}, false)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{failed.ID}, ids)
	require.Equal(t, []string{failed.ID.String()}, h.queue.snapshot())

	got := h.reload(t, failed.ID)
	require.Equal(t, types.StatusPending, got.ProcessingStatus)
	require.Empty(t, got.ClaimedBy)
	require.Nil(t, got.ProcessingStartedAt)

	task, err := h.tasks.GetByAssetID(dbctx.Of(context.Background()), failed.ID)
	require.NoError(t, err)
	require.Equal(t, types.StageQueued, task.Stage)

	ids, err = r.Requeue(context.Background(), []uuid.UUID{done.ID}, true)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{done.ID}, ids)
	require.Equal(t, types.StatusPending, h.reload(t, done.ID).ProcessingStatus)
}

func TestRequeuer_AllFailed(t *testing.T) {
	h := newHarness(t, &stubCaps{}, nil)
	a := h.addAsset(t, "text/plain", nil, func(a *types.Asset) { a.ProcessingStatus = types.StatusFailed })
	b := h.addAsset(t, "text/plain", nil, func(a *types.Asset) { a.ProcessingStatus = types.StatusFailed })
	h.addAsset(t, "text/plain", nil, nil)

	ids, err := NewRequeuer(h.w.log, h.assets, nil, h.queue).RequeueAllFailed(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)
	require.Len(t, h.queue.snapshot(), 2)
}
