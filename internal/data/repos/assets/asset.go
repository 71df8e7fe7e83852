package assets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/domain/assets"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type AssetRepo interface {
	Create(dbc dbctx.Context, rows []*types.Asset) ([]*types.Asset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error)

	// ListRecoverable returns PENDING and PROCESSING assets, oldest first.
	ListRecoverable(dbc dbctx.Context) ([]*types.Asset, error)
	ListIDsByStatus(dbc dbctx.Context, status string) ([]uuid.UUID, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)

	// Claim moves the asset to PROCESSING for workerID. It returns false when
	// another worker holds an unexpired claim or the row does not exist.
	Claim(dbc dbctx.Context, id uuid.UUID, workerID string, now time.Time, lease time.Duration) (bool, error)
	// Complete writes the enrichment and marks the asset COMPLETED in one
	// transaction.
	Complete(dbc dbctx.Context, id uuid.UUID, e *assets.Enrichment) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID) error
	// ResetToPending clears the claim and sets PENDING. With onlyFailed, ids
	// not in FAILED are left alone. It returns the ids actually reset.
	ResetToPending(dbc dbctx.Context, ids []uuid.UUID, onlyFailed bool) ([]uuid.UUID, error)
}

type assetRepo struct {
	db         *gorm.DB
	log        *logger.Logger
	embeddings EmbeddingRepo
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{
		db:         db,
		log:        baseLog.With("repo", "AssetRepo"),
		embeddings: NewEmbeddingRepo(db, baseLog),
	}
}

func (r *assetRepo) Create(dbc dbctx.Context, rows []*types.Asset) ([]*types.Asset, error) {
	if len(rows) == 0 {
		return []*types.Asset{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error) {
	var out []*types.Asset
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *assetRepo) ListRecoverable(dbc dbctx.Context) ([]*types.Asset, error) {
	var out []*types.Asset
	if err := dbc.DB(r.db).
		Select("id", "created_at", "processing_status").
		Where("processing_status IN ?", []string{types.StatusPending, types.StatusProcessing}).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) ListIDsByStatus(dbc dbctx.Context, status string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	if status == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.Asset{}).
		Where("processing_status = ?", status).
		Order("created_at ASC").
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		ProcessingStatus string
		N                int64
	}
	if err := dbc.DB(r.db).
		Model(&types.Asset{}).
		Select("processing_status, COUNT(*) AS n").
		Group("processing_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ProcessingStatus] = row.N
	}
	return out, nil
}

func (r *assetRepo) Claim(dbc dbctx.Context, id uuid.UUID, workerID string, now time.Time, lease time.Duration) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	now = now.UTC()
	res := dbc.DB(r.db).
		Model(&types.Asset{}).
		Where("id = ?", id).
		Where(
			"(processing_status <> ? OR claimed_by = ? OR processing_started_at IS NULL OR processing_started_at < ?)",
			types.StatusProcessing, workerID, now.Add(-lease),
		).
		Updates(map[string]interface{}{
			"processing_status":     types.StatusProcessing,
			"claimed_by":            workerID,
			"processing_started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assetRepo) Complete(dbc dbctx.Context, id uuid.UUID, e *assets.Enrichment) error {
	if e == nil {
		e = &assets.Enrichment{}
	}
	return r.inTx(dbc, func(txc dbctx.Context) error {
		q := txc.DB(r.db)
		if q.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row types.Asset
		if err := q.Select("id", "metadata").Where("id = ?", id).Take(&row).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"processing_status": types.StatusCompleted,
		}
		if e.Caption != nil {
			updates["caption"] = *e.Caption
		}
		if e.ContentText != nil {
			updates["content_text"] = *e.ContentText
		}
		if e.Category != "" {
			updates["metadata"] = mergeMetadata(row.Metadata, map[string]interface{}{
				assets.MetadataCategory: e.Category,
			})
		}
		if err := txc.DB(r.db).Model(&types.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if e.DropEmbedding {
			return r.embeddings.DeleteByAssetID(txc, id)
		}
		if !e.HasVectors() {
			return nil
		}
		return r.embeddings.Upsert(txc, id, e.SemanticVector, e.VisualVector)
	})
}

func (r *assetRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.Asset{}).
		Where("id = ?", id).
		Update("processing_status", types.StatusFailed).Error
}

func (r *assetRepo) ResetToPending(dbc dbctx.Context, ids []uuid.UUID, onlyFailed bool) ([]uuid.UUID, error) {
	var reset []uuid.UUID
	if len(ids) == 0 {
		return reset, nil
	}
	err := r.inTx(dbc, func(txc dbctx.Context) error {
		q := txc.DB(r.db).Model(&types.Asset{}).Where("id IN ?", ids)
		if onlyFailed {
			q = q.Where("processing_status = ?", types.StatusFailed)
		}
		if err := q.Order("created_at ASC").Pluck("id", &reset).Error; err != nil {
			return err
		}
		if len(reset) == 0 {
			return nil
		}
		return txc.DB(r.db).
			Model(&types.Asset{}).
			Where("id IN ?", reset).
			Updates(map[string]interface{}{
				"processing_status":     types.StatusPending,
				"claimed_by":            "",
				"processing_started_at": nil,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// inTx runs fn in the caller's transaction when there is one, otherwise in a
// new one.
func (r *assetRepo) inTx(dbc dbctx.Context, fn func(txc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

func mergeMetadata(base datatypes.JSONMap, add map[string]interface{}) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(base)+len(add))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range add {
		out[k] = v
	}
	return out
}
