package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature    float64
	MaxTokens      int // total token budget; for thinking-capable models this covers reasoning + visible output
	Model          string // Override default model
	JSONSchemaHint string // optional hint describing the expected JSON shape of the response
	Thinking       bool   // true for short-output tasks (e.g. scoring) whose token budget must leave room for hidden reasoning tokens; see WithThinkingBudget
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithJSONSchemaHint(hint string) Option {
	return func(o *Options) {
		o.JSONSchemaHint = hint
	}
}

// WithThinkingBudget marks a call as short-output-but-reasoning-heavy:
// the caller still sets MaxTokens as the *total* budget, and the gemini
// and openai-compatible providers raise it to a fixed floor that leaves
// room for hidden reasoning tokens. No provider sends a reasoning-level
// setting to its API; the ollama provider ignores the flag.
func WithThinkingBudget() Option {
	return func(o *Options) {
		o.Thinking = true
	}
}

// Provider defines the text-generation contract shared by every LLM
// variant. Errors are classified into pkg/apperr kinds by each
// implementation before being returned.
type Provider interface {
	// Generate sends a single prompt to the model and returns trimmed,
	// non-empty text on success.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// LLMProvider is the richer chat-capable contract; Chat-based providers
// (ollama, openai-compatible) satisfy Provider through it without change.
type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
	Provider
}
