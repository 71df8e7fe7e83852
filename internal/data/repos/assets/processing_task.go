package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type TaskUpdate struct {
	Status       string
	Stage        string
	Progress     float64
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

type ProcessingTaskRepo interface {
	// Record creates or updates the task row for assetID.
	Record(dbc dbctx.Context, assetID uuid.UUID, u TaskUpdate) error
	GetByAssetID(dbc dbctx.Context, assetID uuid.UUID) (*types.ProcessingTask, error)
}

type processingTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProcessingTaskRepo(db *gorm.DB, baseLog *logger.Logger) ProcessingTaskRepo {
	return &processingTaskRepo{db: db, log: baseLog.With("repo", "ProcessingTaskRepo")}
}

func (r *processingTaskRepo) Record(dbc dbctx.Context, assetID uuid.UUID, u TaskUpdate) error {
	row := &types.ProcessingTask{
		ID:           uuid.New(),
		AssetID:      assetID,
		Status:       u.Status,
		Stage:        u.Stage,
		Progress:     u.Progress,
		ErrorMessage: u.ErrorMessage,
		StartedAt:    u.StartedAt,
		CompletedAt:  u.CompletedAt,
	}
	cols := []string{"status", "stage", "progress", "error_message"}
	if u.StartedAt != nil {
		cols = append(cols, "started_at")
	}
	if u.CompletedAt != nil {
		cols = append(cols, "completed_at")
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(row).Error
}

func (r *processingTaskRepo) GetByAssetID(dbc dbctx.Context, assetID uuid.UUID) (*types.ProcessingTask, error) {
	var out []*types.ProcessingTask
	if err := dbc.DB(r.db).Where("asset_id = ?", assetID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
