package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
)

const SeedBucket = "thinkbank-assets"

// SeedAsset inserts a PENDING asset with a fresh id and object key. mutate,
// when set, runs before the insert.
func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, mime string, mutate func(a *types.Asset)) *types.Asset {
	tb.Helper()
	a := &types.Asset{
		ID:         uuid.New(),
		BucketName: SeedBucket,
		ObjectName: "uploads/" + uuid.NewString(),
		MimeType:   mime,
	}
	if mutate != nil {
		mutate(a)
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}
