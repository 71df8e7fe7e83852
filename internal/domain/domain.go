package domain

import (
	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
)

type (
	Asset          = assets.Asset
	AssetEmbedding = assets.AssetEmbedding
	ProcessingTask = assets.ProcessingTask
)

const (
	StatusPending    = assets.StatusPending
	StatusProcessing = assets.StatusProcessing
	StatusCompleted  = assets.StatusCompleted
	StatusFailed     = assets.StatusFailed

	StageQueued      = assets.StageQueued
	StageDownloading = assets.StageDownloading
	StageProcessing  = assets.StageProcessing
	StageEmbedding   = assets.StageEmbedding
	StageCompleted   = assets.StageCompleted
	StageFailed      = assets.StageFailed
)

// Models lists every table the worker owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&assets.Asset{},
		&assets.AssetEmbedding{},
		&assets.ProcessingTask{},
	}
}
