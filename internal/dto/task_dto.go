package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Prompt            string `json:"prompt" validate:"required,max=2000"`
	TargetCount       int    `json:"target_count" validate:"required,min=1,max=500"`
	KeywordProvider   string `json:"keyword_provider" validate:"omitempty,oneof=cloud-a cloud-b ollama-local openai-compatible"`
	ReasoningProvider string `json:"reasoning_provider" validate:"omitempty,oneof=cloud-a cloud-b ollama-local openai-compatible"`
	EmbeddingProvider string `json:"embedding_provider" validate:"omitempty,oneof=cloud-a ollama-local"`
	SearchSpeed       string `json:"search_speed" validate:"omitempty,oneof=high medium low"`
	// Optional scope: restrict search to a single upstream account.
	ScopeAccountFakeID string `json:"scope_account_fakeid"`
	ScopeAccountName   string `json:"scope_account_name"`
}

type CreateTaskResponse struct {
	Id uuid.UUID `json:"id"`
}

type TaskSummaryResponse struct {
	Id               uuid.UUID `json:"id"`
	Prompt           string    `json:"prompt"`
	TargetCount      int       `json:"target_count"`
	Status           string    `json:"status"`
	ProcessedCount   int       `json:"processed_count"`
	CompletionReason string    `json:"completion_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ArticleResponse struct {
	Id             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	AccountName    string    `json:"account_name"`
	AccountFakeID  string    `json:"account_fakeid"`
	PublishTime    time.Time `json:"publish_time"`
	Similarity     float64   `json:"similarity"`
	RelevanceScore *float64  `json:"relevance_score,omitempty"`
	Insight        string    `json:"insight,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type TaskDetailResponse struct {
	TaskSummaryResponse
	Keywords []string          `json:"keywords"`
	Articles []ArticleResponse `json:"articles"`
}
