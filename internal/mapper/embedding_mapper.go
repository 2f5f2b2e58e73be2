package mapper

import (
	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/model"

	"github.com/pgvector/pgvector-go"
)

type EmbeddingMapper struct{}

func NewEmbeddingMapper() *EmbeddingMapper {
	return &EmbeddingMapper{}
}

func (m *EmbeddingMapper) ToEntity(e *model.Embedding) *entity.Embedding {
	if e == nil {
		return nil
	}

	return &entity.Embedding{
		ContentHash: e.ContentHash,
		SourceKind:  entity.SourceKind(e.SourceKind),
		Vector:      e.Vector.Slice(),
		CreatedAt:   e.CreatedAt,
	}
}

func (m *EmbeddingMapper) ToModel(e *entity.Embedding) *model.Embedding {
	if e == nil {
		return nil
	}

	return &model.Embedding{
		ContentHash: e.ContentHash,
		SourceKind:  string(e.SourceKind),
		Vector:      pgvector.NewVector(e.Vector),
		CreatedAt:   e.CreatedAt,
	}
}
