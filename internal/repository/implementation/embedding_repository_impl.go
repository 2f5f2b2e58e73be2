package implementation

import (
	"context"
	"errors"
	"fmt"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/mapper"
	"github.com/longlongyang/wechat-article-insight/internal/model"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// embeddingRepositoryImpl is the Embedding Store, grounded on
// note_embedding_repository_impl.go's SearchSimilarWithScore cosine-distance
// pattern, generalized from a user-scoped join to a candidate-hash filter
// since embeddings here are process-wide rather than owned by a row.
type embeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EmbeddingMapper
}

func NewEmbeddingRepository(db *gorm.DB) contract.EmbeddingRepository {
	return &embeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewEmbeddingMapper(),
	}
}

func (r *embeddingRepositoryImpl) Upsert(ctx context.Context, contentHash string, sourceKind entity.SourceKind, vector []float32) error {
	m := &model.Embedding{
		ContentHash: contentHash,
		SourceKind:  string(sourceKind),
		Vector:      pgvector.NewVector(vector),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}, {Name: "source_kind"}},
		DoNothing: true,
	}).Create(m).Error
}

func (r *embeddingRepositoryImpl) Get(ctx context.Context, contentHash string, sourceKind entity.SourceKind) (*entity.Embedding, error) {
	var m model.Embedding
	err := r.db.WithContext(ctx).
		Where("content_hash = ? AND source_kind = ?", contentHash, string(sourceKind)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *embeddingRepositoryImpl) Nearest(ctx context.Context, query []float32, sourceKind entity.SourceKind, candidateHashes []string, k int) ([]contract.ScoredEmbedding, error) {
	if len(candidateHashes) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = len(candidateHashes)
	}

	type row struct {
		ContentHash string
		Similarity  float64
	}
	var rows []row

	queryVector := pgvector.NewVector(query)
	err := r.db.WithContext(ctx).
		Table("embeddings").
		Select("content_hash, 1 - (vector <=> ?) as similarity", queryVector).
		Where("source_kind = ?", string(sourceKind)).
		Where("content_hash IN ?", candidateHashes).
		Order("similarity DESC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	scored := make([]contract.ScoredEmbedding, len(rows))
	for i, r := range rows {
		scored[i] = contract.ScoredEmbedding{ContentHash: r.ContentHash, Similarity: r.Similarity}
	}
	return scored, nil
}

func (r *embeddingRepositoryImpl) Dimension(ctx context.Context, sourceKind entity.SourceKind) (int, error) {
	var dim int
	err := r.db.WithContext(ctx).
		Table("embeddings").
		Select("vector_dims(vector)").
		Where("source_kind = ?", string(sourceKind)).
		Limit(1).
		Scan(&dim).Error
	if err != nil {
		return 0, err
	}
	return dim, nil
}

// Verify refuses to let the process claim readiness if the embeddings
// table's vector column was declared with a width other than the active
// provider's output dimension. The width is read from the column type
// (pgvector stores it as the type modifier), so an empty table is checked
// too.
func (r *embeddingRepositoryImpl) Verify(ctx context.Context, expectedDim int) error {
	var dim int
	err := r.db.WithContext(ctx).
		Raw("SELECT atttypmod FROM pg_attribute WHERE attrelid = 'embeddings'::regclass AND attname = 'vector'").
		Scan(&dim).Error
	if err != nil {
		return err
	}
	if dim > 0 && dim != expectedDim {
		return fmt.Errorf("embedding dimension mismatch: the vector column is %d-wide, configured provider produces %d", dim, expectedDim)
	}
	return nil
}
