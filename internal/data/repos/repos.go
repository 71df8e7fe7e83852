package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/thinkbank-worker/internal/data/repos/assets"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type AssetRepo = assets.AssetRepo
type EmbeddingRepo = assets.EmbeddingRepo
type ProcessingTaskRepo = assets.ProcessingTaskRepo

type TaskUpdate = assets.TaskUpdate

// Set is every repo the worker process uses, sharing one *gorm.DB.
type Set struct {
	Assets     AssetRepo
	Embeddings EmbeddingRepo
	Tasks      ProcessingTaskRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	log.Info("Wiring repos...")
	return Set{
		Assets:     assets.NewAssetRepo(db, log),
		Embeddings: assets.NewEmbeddingRepo(db, log),
		Tasks:      assets.NewProcessingTaskRepo(db, log),
	}
}
