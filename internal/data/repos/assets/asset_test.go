package assets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/thinkbank-worker/internal/data/repos/testutil"
	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
)

// eachDB runs fn against in-memory SQLite and, when TEST_POSTGRES_DSN is set,
// inside a rolled-back Postgres transaction.
func eachDB(t *testing.T, fn func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context)) {
	t.Run("sqlite", func(t *testing.T) {
		gdb := testutil.SQLite(t)
		fn(t, gdb, dbctx.Of(context.Background()))
	})
	t.Run("postgres", func(t *testing.T) {
		gdb := testutil.Postgres(t)
		tx := testutil.Tx(t, gdb)
		fn(t, gdb, dbctx.Of(context.Background()).WithTx(tx))
	})
}

func vec(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func newAsset(mime, status string, createdAt time.Time) *types.Asset {
	return &types.Asset{
		ID:               uuid.New(),
		BucketName:       "thinkbank-assets",
		ObjectName:       "uploads/" + uuid.NewString(),
		MimeType:         mime,
		ProcessingStatus: status,
		CreatedAt:        createdAt,
	}
}

func strPtr(s string) *string { return &s }

func TestAssetRepoCreateAndGet(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		a := newAsset("image/png", "", time.Time{})
		a.Metadata = datatypes.JSONMap{"uploader": "u1"}
		if _, err := repo.Create(dbc, []*types.Asset{a}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := repo.GetByID(dbc, a.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID: got=%v err=%v", got, err)
		}
		if got.ProcessingStatus != types.StatusPending {
			t.Fatalf("status=%q want PENDING", got.ProcessingStatus)
		}
		if got.Metadata["uploader"] != "u1" {
			t.Fatalf("metadata=%v", got.Metadata)
		}
		if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
			t.Fatalf("GetByID(missing): got=%v err=%v", missing, err)
		}
	})
}

func TestAssetRepoListRecoverableOldestFirst(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

		newest := newAsset("text/plain", types.StatusPending, base.Add(3*time.Minute))
		oldest := newAsset("image/png", types.StatusProcessing, base.Add(1*time.Minute))
		middle := newAsset("application/pdf", types.StatusPending, base.Add(2*time.Minute))
		done := newAsset("image/png", types.StatusCompleted, base)
		failed := newAsset("image/png", types.StatusFailed, base)
		if _, err := repo.Create(dbc, []*types.Asset{newest, oldest, middle, done, failed}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := repo.ListRecoverable(dbc)
		if err != nil {
			t.Fatalf("ListRecoverable: %v", err)
		}
		want := []uuid.UUID{oldest.ID, middle.ID, newest.ID}
		if len(got) != len(want) {
			t.Fatalf("len=%d want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Fatalf("order[%d]=%s want %s", i, got[i].ID, want[i])
			}
		}
	})
}

func TestAssetRepoClaim(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		a := newAsset("image/png", types.StatusPending, time.Time{})
		if _, err := repo.Create(dbc, []*types.Asset{a}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		now := time.Now().UTC()
		lease := 30 * time.Minute

		if ok, err := repo.Claim(dbc, a.ID, "worker-a", now, lease); err != nil || !ok {
			t.Fatalf("first claim: ok=%v err=%v", ok, err)
		}
		if ok, err := repo.Claim(dbc, a.ID, "worker-b", now.Add(time.Minute), lease); err != nil || ok {
			t.Fatalf("competing claim should be refused: ok=%v err=%v", ok, err)
		}
		// A restarted worker with the same id reclaims its own stranded asset.
		if ok, err := repo.Claim(dbc, a.ID, "worker-a", now.Add(2*time.Minute), lease); err != nil || !ok {
			t.Fatalf("reclaim by owner: ok=%v err=%v", ok, err)
		}
		if ok, err := repo.Claim(dbc, a.ID, "worker-b", now.Add(2*time.Minute+lease+time.Minute), lease); err != nil || !ok {
			t.Fatalf("claim after lease expiry: ok=%v err=%v", ok, err)
		}

		got, err := repo.GetByID(dbc, a.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.ProcessingStatus != types.StatusProcessing || got.ClaimedBy != "worker-b" {
			t.Fatalf("status=%q claimed_by=%q", got.ProcessingStatus, got.ClaimedBy)
		}

		if ok, err := repo.Claim(dbc, uuid.New(), "worker-a", now, lease); err != nil || ok {
			t.Fatalf("claim of missing row: ok=%v err=%v", ok, err)
		}
	})
}

func TestAssetRepoCompleteMergesMetadataAndUpserts(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		embRepo := NewEmbeddingRepo(gdb, testutil.Logger(t))

		a := newAsset("image/png", types.StatusProcessing, time.Time{})
		a.Metadata = datatypes.JSONMap{"uploader": "u1", "category": "stale"}
		if _, err := repo.Create(dbc, []*types.Asset{a}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		first := &assets.Enrichment{
			Caption:        strPtr("a cat on a table"),
			Category:       "Animal",
			SemanticVector: vec(assets.SemanticDims, 0.1),
			VisualVector:   vec(assets.VisualDims, 0.2),
		}
		if err := repo.Complete(dbc, a.ID, first); err != nil {
			t.Fatalf("Complete(first): %v", err)
		}

		second := &assets.Enrichment{
			Caption:        strPtr("a cat on a chair"),
			Category:       "Animal",
			SemanticVector: vec(assets.SemanticDims, 0.3),
			VisualVector:   vec(assets.VisualDims, 0.4),
		}
		if err := repo.Complete(dbc, a.ID, second); err != nil {
			t.Fatalf("Complete(second): %v", err)
		}

		got, err := repo.GetByID(dbc, a.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.ProcessingStatus != types.StatusCompleted {
			t.Fatalf("status=%q", got.ProcessingStatus)
		}
		if got.Caption == nil || *got.Caption != "a cat on a chair" {
			t.Fatalf("caption=%v", got.Caption)
		}
		if got.Metadata["uploader"] != "u1" || got.Category() != "Animal" {
			t.Fatalf("metadata=%v", got.Metadata)
		}

		n, err := embRepo.CountByAssetID(dbc, a.ID)
		if err != nil || n != 1 {
			t.Fatalf("embedding rows=%d err=%v", n, err)
		}
		emb, err := embRepo.GetByAssetID(dbc, a.ID)
		if err != nil || emb == nil || emb.SemanticVector == nil || emb.VisualVector == nil {
			t.Fatalf("GetByAssetID: emb=%v err=%v", emb, err)
		}
		if s := emb.SemanticVector.Slice(); len(s) != assets.SemanticDims || s[0] != 0.3 {
			t.Fatalf("semantic not overwritten: len=%d first=%v", len(s), s[0])
		}
		if v := emb.VisualVector.Slice(); len(v) != assets.VisualDims || v[0] != 0.4 {
			t.Fatalf("visual not overwritten: len=%d first=%v", len(v), v[0])
		}

		// A semantic-only run leaves the visual column alone.
		if err := repo.Complete(dbc, a.ID, &assets.Enrichment{SemanticVector: vec(assets.SemanticDims, 0.5)}); err != nil {
			t.Fatalf("Complete(semantic only): %v", err)
		}
		emb, err = embRepo.GetByAssetID(dbc, a.ID)
		if err != nil || emb == nil || emb.VisualVector == nil {
			t.Fatalf("GetByAssetID after partial: emb=%v err=%v", emb, err)
		}
		if emb.SemanticVector.Slice()[0] != 0.5 || emb.VisualVector.Slice()[0] != 0.4 {
			t.Fatalf("partial upsert clobbered columns")
		}
	})
}

func TestAssetRepoCompleteWithoutVectors(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		embRepo := NewEmbeddingRepo(gdb, testutil.Logger(t))

		a := newAsset("application/pdf", types.StatusProcessing, time.Time{})
		if _, err := repo.Create(dbc, []*types.Asset{a}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		e := &assets.Enrichment{Caption: strPtr(""), ContentText: strPtr(""), Category: "Document"}
		if err := repo.Complete(dbc, a.ID, e); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		got, _ := repo.GetByID(dbc, a.ID)
		if got.ContentText == nil || *got.ContentText != "" || got.Caption == nil || *got.Caption != "" {
			t.Fatalf("content_text=%v caption=%v", got.ContentText, got.Caption)
		}
		if n, err := embRepo.CountByAssetID(dbc, a.ID); err != nil || n != 0 {
			t.Fatalf("embedding rows=%d err=%v", n, err)
		}
	})
}

func TestAssetRepoCompleteDropsStaleEmbedding(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		embRepo := NewEmbeddingRepo(gdb, testutil.Logger(t))

		a := newAsset("text/plain", types.StatusProcessing, time.Time{})
		if _, err := repo.Create(dbc, []*types.Asset{a}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := embRepo.Upsert(dbc, a.ID, make([]float32, 1024), nil); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		e := &assets.Enrichment{Caption: strPtr(""), ContentText: strPtr(""), DropEmbedding: true}
		if err := repo.Complete(dbc, a.ID, e); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if n, err := embRepo.CountByAssetID(dbc, a.ID); err != nil || n != 0 {
			t.Fatalf("embedding rows=%d err=%v", n, err)
		}
		got, _ := repo.GetByID(dbc, a.ID)
		if got.ProcessingStatus != types.StatusCompleted {
			t.Fatalf("status=%s", got.ProcessingStatus)
		}
	})
}

func TestAssetRepoResetToPending(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		failed := newAsset("image/png", types.StatusFailed, time.Time{})
		done := newAsset("image/png", types.StatusCompleted, time.Time{})
		if _, err := repo.Create(dbc, []*types.Asset{failed, done}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if ok, err := repo.Claim(dbc, done.ID, "w", time.Now(), time.Minute); err != nil || !ok {
			t.Fatalf("Claim: ok=%v err=%v", ok, err)
		}
		if err := repo.Complete(dbc, done.ID, nil); err != nil {
			t.Fatalf("Complete: %v", err)
		}

		reset, err := repo.ResetToPending(dbc, []uuid.UUID{failed.ID, done.ID}, true)
		if err != nil {
			t.Fatalf("ResetToPending: %v", err)
		}
		if len(reset) != 1 || reset[0] != failed.ID {
			t.Fatalf("reset=%v want [%s]", reset, failed.ID)
		}
		got, _ := repo.GetByID(dbc, failed.ID)
		if got.ProcessingStatus != types.StatusPending || got.ClaimedBy != "" || got.ProcessingStartedAt != nil {
			t.Fatalf("after reset: %+v", got)
		}
		got, _ = repo.GetByID(dbc, done.ID)
		if got.ProcessingStatus != types.StatusCompleted {
			t.Fatalf("completed asset touched: %q", got.ProcessingStatus)
		}

		forced, err := repo.ResetToPending(dbc, []uuid.UUID{done.ID}, false)
		if err != nil || len(forced) != 1 {
			t.Fatalf("forced reset=%v err=%v", forced, err)
		}
	})
}

func TestAssetRepoCountsAndFailed(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewAssetRepo(gdb, testutil.Logger(t))
		a := newAsset("image/png", types.StatusProcessing, time.Time{})
		b := newAsset("image/png", types.StatusPending, time.Time{})
		if _, err := repo.Create(dbc, []*types.Asset{a, b}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := repo.MarkFailed(dbc, a.ID); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
		ids, err := repo.ListIDsByStatus(dbc, types.StatusFailed)
		if err != nil || len(ids) != 1 || ids[0] != a.ID {
			t.Fatalf("ListIDsByStatus: ids=%v err=%v", ids, err)
		}
		counts, err := repo.CountByStatus(dbc)
		if err != nil {
			t.Fatalf("CountByStatus: %v", err)
		}
		if counts[types.StatusFailed] < 1 || counts[types.StatusPending] < 1 {
			t.Fatalf("counts=%v", counts)
		}
	})
}
