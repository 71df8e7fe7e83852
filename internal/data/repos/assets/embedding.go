package assets

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
	"github.com/yungbote/thinkbank-worker/internal/pkg/dbctx"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

type EmbeddingRepo interface {
	// Upsert writes the non-nil vectors for assetID. Columns passed as nil are
	// left untouched on an existing row.
	Upsert(dbc dbctx.Context, assetID uuid.UUID, semantic, visual []float32) error
	GetByAssetID(dbc dbctx.Context, assetID uuid.UUID) (*types.AssetEmbedding, error)
	CountByAssetID(dbc dbctx.Context, assetID uuid.UUID) (int64, error)
	DeleteByAssetID(dbc dbctx.Context, assetID uuid.UUID) error
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{db: db, log: baseLog.With("repo", "EmbeddingRepo")}
}

func (r *embeddingRepo) Upsert(dbc dbctx.Context, assetID uuid.UUID, semantic, visual []float32) error {
	if assetID == uuid.Nil {
		return errors.New("asset id required")
	}
	row := &types.AssetEmbedding{AssetID: assetID, UpdatedAt: time.Now().UTC()}
	cols := []string{"updated_at"}
	if semantic != nil {
		v := pgvector.NewVector(semantic)
		row.SemanticVector = &v
		cols = append(cols, "semantic_vector")
	}
	if visual != nil {
		v := pgvector.NewVector(visual)
		row.VisualVector = &v
		cols = append(cols, "visual_vector")
	}
	if len(cols) == 1 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(row).Error
}

func (r *embeddingRepo) GetByAssetID(dbc dbctx.Context, assetID uuid.UUID) (*types.AssetEmbedding, error) {
	var out []*types.AssetEmbedding
	if err := dbc.DB(r.db).Where("asset_id = ?", assetID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *embeddingRepo) DeleteByAssetID(dbc dbctx.Context, assetID uuid.UUID) error {
	return dbc.DB(r.db).Where("asset_id = ?", assetID).Delete(&types.AssetEmbedding{}).Error
}

func (r *embeddingRepo) CountByAssetID(dbc dbctx.Context, assetID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.AssetEmbedding{}).Where("asset_id = ?", assetID).Count(&n).Error
	return n, err
}
