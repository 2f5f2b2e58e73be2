// Package embedding implements the embed-text half of the provider
// abstraction, variant-selected per task and process configuration.
package embedding

import "context"

// Response carries a single embedding vector. Values is always returned
// at the provider's fixed dimension for the configured model; callers
// enforce the process-wide dimension invariant, not this package.
type Response struct {
	Values []float32
}

// Provider is the embed-text contract every variant implements.
// sourceKind is one of "title", "body", "query" and is passed through to
// providers (like Gemini) that support a task-type hint affecting how the
// embedding is optimized.
type Provider interface {
	Generate(ctx context.Context, text string, sourceKind string) (*Response, error)
}
