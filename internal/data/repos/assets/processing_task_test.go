package assets

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/thinkbank-worker/internal/data/repos/testutil"
	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
)

func TestProcessingTaskRepoRecord(t *testing.T) {
	eachDB(t, func(t *testing.T, gdb *gorm.DB, dbc dbctx.Context) {
		repo := NewProcessingTaskRepo(gdb, testutil.Logger(t))
		assetID := testutil.SeedAsset(t, dbc.Ctx, dbc.DB(gdb), "image/png", nil).ID
		started := time.Now().UTC().Truncate(time.Second)

		if err := repo.Record(dbc, assetID, TaskUpdate{
			Status:    types.StatusProcessing,
			Stage:     types.StageDownloading,
			Progress:  0.1,
			StartedAt: &started,
		}); err != nil {
			t.Fatalf("Record(start): %v", err)
		}
		if err := repo.Record(dbc, assetID, TaskUpdate{
			Status:   types.StatusProcessing,
			Stage:    types.StageEmbedding,
			Progress: 0.7,
		}); err != nil {
			t.Fatalf("Record(embedding): %v", err)
		}

		got, err := repo.GetByAssetID(dbc, assetID)
		if err != nil || got == nil {
			t.Fatalf("GetByAssetID: got=%v err=%v", got, err)
		}
		if got.Stage != types.StageEmbedding || got.Progress != 0.7 {
			t.Fatalf("stage=%q progress=%v", got.Stage, got.Progress)
		}
		if got.StartedAt == nil {
			t.Fatalf("started_at lost on later update")
		}

		done := started.Add(time.Minute)
		if err := repo.Record(dbc, assetID, TaskUpdate{
			Status:       types.StatusFailed,
			Stage:        types.StageFailed,
			Progress:     1,
			ErrorMessage: "embed: boom",
			CompletedAt:  &done,
		}); err != nil {
			t.Fatalf("Record(failed): %v", err)
		}
		got, _ = repo.GetByAssetID(dbc, assetID)
		if got.Status != types.StatusFailed || got.ErrorMessage != "embed: boom" || got.CompletedAt == nil {
			t.Fatalf("final=%+v", got)
		}
	})
}
