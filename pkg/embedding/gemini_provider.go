package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
)

// GeminiProvider is the Gemini embedding client. Unlike the generate
// call (pkg/llm/gemini), embedContent carries its API key as a header
// rather than a query parameter; both are valid per Gemini's API.
type GeminiProvider struct {
	apiKey    string
	model     string
	outputDim int
	client    *http.Client
}

var _ Provider = &GeminiProvider{}

// NewGeminiProvider builds a cloud-A embedding provider. outputDim selects
// the MRL-truncated dimension (one of 768, 1536, 3072); 0 uses the
// model's default (768).
func NewGeminiProvider(apiKey string, outputDim int) *GeminiProvider {
	return &GeminiProvider{
		apiKey:    apiKey,
		model:     "gemini-embedding-001",
		outputDim: outputDim,
		client: &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
			Timeout:   30 * time.Second,
		},
	}
}

type geminiEmbedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	TaskType            string `json:"taskType,omitempty"`
	OutputDimensionality int   `json:"outputDimensionality,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, sourceKind string) (*Response, error) {
	req := geminiEmbedRequest{TaskType: mapTaskType(sourceKind)}
	req.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	if p.outputDim > 0 {
		req.OutputDimensionality = p.outputDim
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		p.model,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperr.New(apperr.KindTransient, "gemini embedding request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.KindTransient, "read gemini embedding response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyEmbedStatus("gemini", resp.StatusCode, body)
	}

	var parsed geminiEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error != nil {
		return nil, apperr.New(apperr.KindFatal, parsed.Error.Message, nil)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, apperr.New(apperr.KindFatal, "empty embedding returned by gemini", nil)
	}

	return &Response{Values: parsed.Embedding.Values}, nil
}

// mapTaskType translates this system's source-kind into Gemini's
// taskType vocabulary: a query intent embedding anchors similarity
// search, everything else is a retrieval document.
func mapTaskType(sourceKind string) string {
	if sourceKind == "query" {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

func classifyEmbedStatus(provider string, status int, body []byte) error {
	switch status {
	case http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, provider+" embedding rate limited", fmt.Errorf("status %d: %s", status, body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.KindAuthInvalid, provider+" embedding auth invalid", fmt.Errorf("status %d: %s", status, body))
	default:
		if status >= 500 {
			return apperr.New(apperr.KindTransient, provider+" embedding server error", fmt.Errorf("status %d: %s", status, body))
		}
		return apperr.New(apperr.KindFatal, provider+" embedding api error", fmt.Errorf("status %d: %s", status, body))
	}
}
