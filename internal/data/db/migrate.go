package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/thinkbank-worker/internal/domain"
)

// pgInsufficientPrivilege is raised when the role may not create extensions.
const pgInsufficientPrivilege = "42501"

func (s *PostgresService) AutoMigrateAll() error {
	if s.db.Dialector.Name() == "postgres" {
		if err := EnsureExtensions(s.db); err != nil {
			return err
		}
	}
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	if s.db.Dialector.Name() == "postgres" {
		if err := EnsureVectorIndexes(s.db); err != nil {
			// ivfflat creation can fail on an empty or under-privileged database;
			// search still works with a sequential scan.
			s.log.Warn("vector index creation failed (continuing)", "error", err)
		}
	}
	return nil
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

func EnsureExtensions(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
			// The extension may already be installed by a superuser.
			var n int64
			if cerr := db.Raw(`SELECT COUNT(*) FROM pg_extension WHERE extname = 'vector'`).Scan(&n).Error; cerr == nil && n > 0 {
				return nil
			}
		}
		return fmt.Errorf("enable vector extension: %w", err)
	}
	return nil
}

func EnsureVectorIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_asset_embeddings_semantic",
			sql:  `CREATE INDEX IF NOT EXISTS idx_asset_embeddings_semantic ON asset_embeddings USING ivfflat (semantic_vector vector_cosine_ops) WITH (lists = 100);`,
		},
		{
			name: "idx_asset_embeddings_visual",
			sql:  `CREATE INDEX IF NOT EXISTS idx_asset_embeddings_visual ON asset_embeddings USING ivfflat (visual_vector vector_cosine_ops) WITH (lists = 100);`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}
