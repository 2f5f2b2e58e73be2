package model

import (
	"time"

	"github.com/google/uuid"
)

type Article struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TaskId         uuid.UUID `gorm:"type:uuid;not null;index:idx_articles_task_url,unique,priority:1"`
	Title          string    `gorm:"type:text;not null"`
	URL            string    `gorm:"type:text;not null;index:idx_articles_task_url,unique,priority:2"`
	AccountName    string    `gorm:"type:text"`
	AccountFakeID  string    `gorm:"type:text"`
	PublishTime    time.Time
	Similarity     float64
	RelevanceScore *float64
	Insight        string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Article) TableName() string {
	return "insight_articles"
}
