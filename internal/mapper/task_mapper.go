package mapper

import (
	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/model"
)

type TaskMapper struct{}

func NewTaskMapper() *TaskMapper {
	return &TaskMapper{}
}

func (m *TaskMapper) ToEntity(t *model.Task) *entity.Task {
	if t == nil {
		return nil
	}

	return &entity.Task{
		Id:               t.Id,
		Prompt:           t.Prompt,
		TargetCount:      t.TargetCount,
		Status:           entity.TaskStatus(t.Status),
		Keywords:         t.Keywords,
		ProcessedCount:   t.ProcessedCount,
		CompletionReason: t.CompletionReason,
		Config: entity.TaskConfig{
			KeywordProvider:    t.Config.KeywordProvider,
			ReasoningProvider:  t.Config.ReasoningProvider,
			EmbeddingProvider:  t.Config.EmbeddingProvider,
			SearchSpeed:        entity.SpeedTier(t.Config.SearchSpeed),
			ScopeAccountFakeID: t.Config.ScopeAccountFakeID,
			ScopeAccountName:   t.Config.ScopeAccountName,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (m *TaskMapper) ToModel(t *entity.Task) *model.Task {
	if t == nil {
		return nil
	}

	return &model.Task{
		Id:               t.Id,
		Prompt:           t.Prompt,
		TargetCount:      t.TargetCount,
		Status:           string(t.Status),
		Keywords:         t.Keywords,
		ProcessedCount:   t.ProcessedCount,
		CompletionReason: t.CompletionReason,
		Config: model.TaskConfig{
			KeywordProvider:    t.Config.KeywordProvider,
			ReasoningProvider:  t.Config.ReasoningProvider,
			EmbeddingProvider:  t.Config.EmbeddingProvider,
			SearchSpeed:        string(t.Config.SearchSpeed),
			ScopeAccountFakeID: t.Config.ScopeAccountFakeID,
			ScopeAccountName:   t.Config.ScopeAccountName,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (m *TaskMapper) ToEntities(tasks []*model.Task) []*entity.Task {
	entities := make([]*entity.Task, len(tasks))
	for i, t := range tasks {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
