// Package factory constructs the generate-capable LLM provider named by
// a task's configuration.
package factory

import (
	"fmt"

	"github.com/longlongyang/wechat-article-insight/pkg/llm"
	"github.com/longlongyang/wechat-article-insight/pkg/llm/deepseek"
	"github.com/longlongyang/wechat-article-insight/pkg/llm/gemini"
	"github.com/longlongyang/wechat-article-insight/pkg/llm/ollama"
	"github.com/longlongyang/wechat-article-insight/pkg/llm/openaicompatible"
)

// Config carries every credential/endpoint a variant might need; unused
// fields for a given providerType are ignored.
type Config struct {
	ProviderType string // "cloud-a", "cloud-b", "ollama-local", "openai-compatible"
	ModelName    string
	BaseURL      string // ollama-local and openai-compatible base URL
	APIKey       string // cloud-a, cloud-b, openai-compatible
	ProxyURL     string // cloud-a (default on), openai-compatible (configurable)
}

func NewLLMProvider(cfg Config) (llm.Provider, error) {
	switch cfg.ProviderType {
	case "cloud-a":
		return gemini.New(cfg.APIKey, cfg.ModelName, cfg.ProxyURL)
	case "cloud-b":
		return deepseek.New(cfg.APIKey, cfg.ModelName)
	case "ollama-local":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.ModelName), nil
	case "openai-compatible":
		return openaicompatible.New(cfg.BaseURL, cfg.APIKey, cfg.ModelName, cfg.ProxyURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.ProviderType)
	}
}
