package contract

import (
	"context"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
)

// ScoredEmbedding pairs a stored embedding's identity with a cosine
// similarity score against some query vector.
type ScoredEmbedding struct {
	ContentHash string
	Similarity  float64
}

// EmbeddingRepository is a process-wide cache of content-hash-keyed
// vectors, shared across tasks and never invalidated by task deletion.
// The dimension invariant (every stored vector has the same width as the
// active embedding provider's output) is enforced by Verify at startup,
// not per-write, since the column width is fixed at table-creation time.
type EmbeddingRepository interface {
	// Upsert stores vector under (contentHash, sourceKind), idempotently
	// and first-writer-wins: a second write for the same key never
	// overwrites the stored vector.
	Upsert(ctx context.Context, contentHash string, sourceKind entity.SourceKind, vector []float32) error
	Get(ctx context.Context, contentHash string, sourceKind entity.SourceKind) (*entity.Embedding, error)

	// Nearest ranks candidateHashes by cosine similarity to query,
	// restricted to sourceKind, returning at most k results in
	// descending similarity order. Ranking is always candidate-restricted:
	// an empty slice yields an empty result, never a full-table scan.
	Nearest(ctx context.Context, query []float32, sourceKind entity.SourceKind, candidateHashes []string, k int) ([]ScoredEmbedding, error)

	// Dimension returns the width of vectors already stored for
	// sourceKind, or 0 if none exist yet.
	Dimension(ctx context.Context, sourceKind entity.SourceKind) (int, error)

	// Verify confirms the embedding table's column width matches
	// expectedDim, refusing process startup on mismatch.
	Verify(ctx context.Context, expectedDim int) error
}
