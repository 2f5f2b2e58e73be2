// Package openaicompatible is a generic OpenAI Chat Completions client
// usable against any compatible endpoint (OpenRouter, Azure OpenAI,
// local deployments), with bearer-token auth and a configurable proxy.
package openaicompatible

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
	"github.com/longlongyang/wechat-article-insight/pkg/httpauth"
	"github.com/longlongyang/wechat-article-insight/pkg/llm"
)

type Provider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &Provider{}

// New builds an openai-compatible provider. proxyURL is empty when no
// proxy should be used.
func New(baseURL, apiKey, model, proxyURL string) (*Provider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client, err := httpauth.NewBearerClient(apiKey, proxyURL, 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("build openai-compatible client: %w", err)
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), model: model, client: client}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := &llm.Options{
		Model:     p.model,
		MaxTokens: 500,
	}
	for _, o := range options {
		o(opts)
	}
	if opts.Thinking && opts.MaxTokens < 256 {
		opts.MaxTokens = 256 // reserve headroom for hidden reasoning tokens on thinking-capable models
	}

	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    history,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.New(apperr.KindTransient, "openai-compatible request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, bodyBytes)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", apperr.New(apperr.KindFatal, chatResp.Error.Message, nil)
	}

	if len(chatResp.Choices) == 0 {
		return "", apperr.New(apperr.KindSafetyFiltered, "empty choices from openai-compatible api", nil)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", apperr.New(apperr.KindSafetyFiltered, "empty generation from openai-compatible api", nil)
	}

	return content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, "openai-compatible rate limited", fmt.Errorf("status %d: %s", status, body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.KindAuthInvalid, "openai-compatible auth invalid", fmt.Errorf("status %d: %s", status, body))
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apperr.New(apperr.KindTimeout, "openai-compatible timed out", fmt.Errorf("status %d: %s", status, body))
	default:
		if status >= 500 {
			return apperr.New(apperr.KindTransient, "openai-compatible server error", fmt.Errorf("status %d: %s", status, body))
		}
		return apperr.New(apperr.KindFatal, "openai-compatible api error", fmt.Errorf("status %d: %s", status, body))
	}
}
