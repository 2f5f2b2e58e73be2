// Package deepseek is the DeepSeek text-generation provider: bearer
// token auth, proxy off by default. Its wire shape is OpenAI Chat
// Completions compatible, so it is built as a thin configuration of
// pkg/llm/openaicompatible rather than a duplicate HTTP client.
package deepseek

import (
	"context"

	"github.com/longlongyang/wechat-article-insight/pkg/llm"
	"github.com/longlongyang/wechat-article-insight/pkg/llm/openaicompatible"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

type Provider struct {
	inner *openaicompatible.Provider
}

var _ llm.LLMProvider = &Provider{}

func New(apiKey, model string) (*Provider, error) {
	if model == "" {
		model = "deepseek-chat"
	}
	// proxy off by default per the variant contract table
	inner, err := openaicompatible.New(defaultBaseURL, apiKey, model, "")
	if err != nil {
		return nil, err
	}
	return &Provider{inner: inner}, nil
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.inner.Chat(ctx, history, options...)
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.inner.Generate(ctx, prompt, options...)
}
