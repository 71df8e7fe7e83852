package assets

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

const (
	SemanticDims = 1024
	VisualDims   = 512
)

// AssetEmbedding holds at most one row per asset. A nil vector means the
// column was never populated for this asset.
type AssetEmbedding struct {
	AssetID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"asset_id"`
	SemanticVector *pgvector.Vector `gorm:"column:semantic_vector;type:vector(1024)" json:"semantic_vector,omitempty"`
	VisualVector   *pgvector.Vector `gorm:"column:visual_vector;type:vector(512)" json:"visual_vector,omitempty"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AssetEmbedding) TableName() string { return "asset_embeddings" }
