package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskConfig mirrors entity.TaskConfig for storage; kept as a distinct type
// so GORM's JSON serializer has a stable shape independent of entity changes.
type TaskConfig struct {
	KeywordProvider    string `json:"keyword_provider"`
	ReasoningProvider  string `json:"reasoning_provider"`
	EmbeddingProvider  string `json:"embedding_provider"`
	SearchSpeed        string `json:"search_speed"`
	ScopeAccountFakeID string `json:"scope_account_fakeid,omitempty"`
	ScopeAccountName   string `json:"scope_account_name,omitempty"`
}

type Task struct {
	Id               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Prompt           string     `gorm:"type:text;not null"`
	TargetCount      int        `gorm:"not null;default:30"`
	Status           string     `gorm:"type:varchar(20);not null;index"`
	Keywords         []string   `gorm:"serializer:json;type:jsonb;not null;default:'[]'"`
	ProcessedCount   int        `gorm:"not null;default:0"`
	CompletionReason string     `gorm:"type:text"`
	Config           TaskConfig `gorm:"serializer:json;type:jsonb;not null;default:'{}'"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (Task) TableName() string {
	return "insight_tasks"
}
