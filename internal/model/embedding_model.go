package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Embedding's vector column width is configured at process start, so it
// cannot be a fixed struct tag. The table is created by pkg/database's
// migration with the dimension templated into the column type; this
// struct is only used for querying/writing through GORM once the table
// already exists.
type Embedding struct {
	ContentHash string          `gorm:"column:content_hash;type:text;primaryKey"`
	SourceKind  string          `gorm:"column:source_kind;type:varchar(16);primaryKey"`
	Vector      pgvector.Vector `gorm:"column:vector"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (Embedding) TableName() string {
	return "embeddings"
}
