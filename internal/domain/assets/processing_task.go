package assets

import (
	"time"

	"github.com/google/uuid"
)

const (
	StageQueued      = "QUEUED"
	StageDownloading = "DOWNLOADING"
	StageProcessing  = "PROCESSING"
	StageEmbedding   = "EMBEDDING"
	StageCompleted   = "COMPLETED"
	StageFailed      = "FAILED"
)

// ProcessingTask is the progress ledger shown to users while an asset moves
// through the worker. It is informational: asset.processing_status stays the
// source of truth.
type ProcessingTask struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
	Status       string     `gorm:"column:status;type:varchar(32);not null;default:'PENDING'" json:"status"`
	Stage        string     `gorm:"column:stage;type:varchar(32);not null;default:'QUEUED'" json:"stage"`
	Progress     float64    `gorm:"column:progress;not null;default:0" json:"progress"`
	ErrorMessage string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ProcessingTask) TableName() string { return "processing_tasks" }
