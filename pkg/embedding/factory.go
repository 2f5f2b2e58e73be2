package embedding

import "fmt"

// Config carries every credential/endpoint a variant might need; unused
// fields for a given providerType are ignored. Mirrors pkg/llm/factory's
// shape so the two capabilities are constructed the same way.
type Config struct {
	ProviderType string // "cloud-a", "ollama-local" — the only two embed-capable variants
	ModelName    string
	BaseURL      string // ollama-local
	APIKey       string // cloud-a
	OutputDim    int    // cloud-a's selectable outputDimensionality; ignored by ollama-local
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.ProviderType {
	case "cloud-a":
		return NewGeminiProvider(cfg.APIKey, cfg.OutputDim), nil
	case "ollama-local":
		return NewOllamaProvider(cfg.BaseURL, cfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.ProviderType)
	}
}
