package database

import (
	"fmt"
	"log"

	"github.com/longlongyang/wechat-article-insight/internal/model"

	"gorm.io/gorm"
)

// Migrate creates the task and article tables through GORM and the
// embeddings table through raw SQL, because the vector column's width is
// chosen at process start and GORM struct tags cannot template it. The
// embeddings table is never re-dimensioned here: if it already exists
// with another width, startup verification refuses to serve and the
// operator has to drop the table explicitly.
func Migrate(db *gorm.DB, embeddingDim int) error {
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	if err := db.AutoMigrate(&model.Task{}, &model.Article{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	embeddingsSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embeddings (
		content_hash text NOT NULL,
		source_kind varchar(16) NOT NULL,
		vector vector(%d) NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (content_hash, source_kind)
	);`, embeddingDim)
	if err := db.Exec(embeddingsSQL).Error; err != nil {
		return fmt.Errorf("create embeddings table: %w", err)
	}

	// Approximate-nearest-neighbor index. ivfflat needs data to build
	// useful lists, so failure (e.g. on an empty table) is non-fatal.
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_embeddings_vector ON embeddings
		USING ivfflat (vector vector_cosine_ops) WITH (lists = 100);`
	if err := db.Exec(indexSQL).Error; err != nil {
		log.Printf("Warn: Failed to create ivfflat index (will retry on next migration): %v", err)
	}

	return nil
}
