package entity

import (
	"time"

	"github.com/google/uuid"
)

// Article is a single persisted candidate for a task, written once the
// relevance stage has accepted it.
type Article struct {
	Id             uuid.UUID
	TaskId         uuid.UUID
	Title          string
	URL            string
	AccountName    string
	AccountFakeID  string
	PublishTime    time.Time
	Similarity     float64
	RelevanceScore *float64
	Insight        string
	CreatedAt      time.Time
}
