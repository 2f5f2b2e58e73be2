package entity

import "time"

// SourceKind distinguishes what text an embedding was computed from.
// The (ContentHash, SourceKind) pair is the store's unique key.
type SourceKind string

const (
	SourceKindTitle SourceKind = "title"
	SourceKindBody  SourceKind = "body"
	SourceKindQuery SourceKind = "query"
)

// Embedding is a process-wide cached vector, shared across tasks by
// content identity and never task-scoped.
type Embedding struct {
	ContentHash string
	SourceKind  SourceKind
	Vector      []float32
	CreatedAt   time.Time
}
