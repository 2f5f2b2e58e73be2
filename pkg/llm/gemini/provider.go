// Package gemini is the Gemini text-generation provider: proxy on by
// default, API key carried as a URL query parameter rather than a bearer
// header.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
	"github.com/longlongyang/wechat-article-insight/pkg/llm"
)

const apiBase = "https://generativelanguage.googleapis.com/v1beta"

type Provider struct {
	apiKey   string
	model    string
	client   *http.Client
	proxyURL string
}

var _ llm.Provider = &Provider{}

// New builds a cloud-A generate provider. Proxy defaults on per the
// variant contract table: a non-empty proxyURL is used as given, and an
// empty one falls back to the environment's proxy settings.
func New(apiKey, model, proxyURL string) (*Provider, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	return &Provider{
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Transport: transport, Timeout: 60 * time.Second},
		proxyURL: proxyURL,
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := &llm.Options{Temperature: 0.7, MaxTokens: 1024}
	for _, o := range options {
		o(opts)
	}
	if opts.Thinking && opts.MaxTokens < 512 {
		opts.MaxTokens = 512
	}

	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", apiBase, model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.New(apperr.KindTransient, "gemini request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if parsed.Error != nil {
		return "", apperr.New(apperr.KindFatal, parsed.Error.Message, nil)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", apperr.New(apperr.KindSafetyFiltered, "no candidates returned by gemini", nil)
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		if parsed.Candidates[0].FinishReason == "SAFETY" {
			return "", apperr.New(apperr.KindSafetyFiltered, "gemini safety filter triggered", nil)
		}
		return "", apperr.New(apperr.KindSafetyFiltered, "empty generation from gemini", nil)
	}

	return text, nil
}

func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, "gemini rate limited", fmt.Errorf("status %d: %s", status, body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.KindAuthInvalid, "gemini auth invalid", fmt.Errorf("status %d: %s", status, body))
	default:
		if status >= 500 {
			return apperr.New(apperr.KindTransient, "gemini server error", fmt.Errorf("status %d: %s", status, body))
		}
		return apperr.New(apperr.KindFatal, "gemini api error", fmt.Errorf("status %d: %s", status, body))
	}
}
