package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
)

// OllamaProvider talks to a local Ollama daemon for embeddings: fixed
// dimension per model (no outputDimensionality knob, unlike Gemini),
// no auth, no proxy.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen3-embedding:8b-q8_0"
	}
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Transport: &http.Transport{}, Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, sourceKind string) (*Response, error) {
	reqBody := ollamaEmbeddingRequest{Model: p.model, Prompt: text}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/embeddings", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.KindTransient, "ollama embedding request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.KindTransient, "read ollama embedding response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyEmbedStatus("ollama", resp.StatusCode, body)
	}

	var parsed ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embedding) == 0 {
		return nil, apperr.New(apperr.KindFatal, "empty embedding returned by ollama", nil)
	}

	values := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		values[i] = float32(v)
	}
	return &Response{Values: normalizeVector(values)}, nil
}

// normalizeVector normalizes a vector to unit length. Required because
// Ollama embedding models do not guarantee L2-normalized output the way
// Gemini's embedContent does, and pgvector's <=> cosine-distance operator
// assumes comparable magnitudes across the corpus.
func normalizeVector(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	magnitude := math.Sqrt(sumSq)
	if magnitude == 0 {
		return vec
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
