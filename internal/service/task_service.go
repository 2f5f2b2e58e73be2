package service

import (
	"context"

	"github.com/longlongyang/wechat-article-insight/internal/config"
	"github.com/longlongyang/wechat-article-insight/internal/dto"
	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/pkg/logger"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"
	"github.com/longlongyang/wechat-article-insight/pkg/embedding"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ITaskService interface {
	Create(ctx context.Context, req *dto.CreateTaskRequest) (*dto.CreateTaskResponse, error)
	List(ctx context.Context) ([]*dto.TaskSummaryResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.TaskDetailResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskService struct {
	tasks      contract.TaskRepository
	supervisor ISupervisorService
	cfg        *config.Config
	log        logger.ILogger
}

func NewTaskService(tasks contract.TaskRepository, supervisor ISupervisorService, cfg *config.Config, log logger.ILogger) ITaskService {
	return &taskService{tasks: tasks, supervisor: supervisor, cfg: cfg, log: log}
}

func (s *taskService) Create(ctx context.Context, req *dto.CreateTaskRequest) (*dto.CreateTaskResponse, error) {
	taskCfg := entity.TaskConfig{
		KeywordProvider:    defaultIfEmpty(req.KeywordProvider, s.cfg.Ai.LLMProvider),
		ReasoningProvider:  defaultIfEmpty(req.ReasoningProvider, s.cfg.Ai.LLMProvider),
		EmbeddingProvider:  defaultIfEmpty(req.EmbeddingProvider, s.cfg.Ai.EmbeddingProvider),
		SearchSpeed:        entity.SpeedTier(defaultIfEmpty(req.SearchSpeed, string(entity.SpeedTierLow))),
		ScopeAccountFakeID: req.ScopeAccountFakeID,
		ScopeAccountName:   req.ScopeAccountName,
	}

	// The chosen embedding provider must be able to produce vectors of
	// the process-wide dimension; rejecting here keeps a mismatch from
	// surfacing mid-pipeline.
	if err := embedding.ValidateDimension(taskCfg.EmbeddingProvider, s.cfg.Ai.EmbeddingDimension); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	task := &entity.Task{
		Id:          uuid.New(),
		Prompt:      req.Prompt,
		TargetCount: req.TargetCount,
		Status:      entity.TaskStatusPending,
		Keywords:    []string{},
		Config:      taskCfg,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.supervisor.Submit(ctx, task.Id); err != nil {
		// The row exists; the startup resume-scan will not find a
		// pending task, so surface the intake failure to the caller.
		s.log.Error("task", "submit to supervisor failed", map[string]interface{}{
			"task_id": task.Id.String(), "error": err.Error(),
		})
		return nil, err
	}

	s.log.Info("task", "task created", map[string]interface{}{
		"task_id": task.Id.String(), "target": task.TargetCount,
	})
	return &dto.CreateTaskResponse{Id: task.Id}, nil
}

func (s *taskService) List(ctx context.Context) ([]*dto.TaskSummaryResponse, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.TaskSummaryResponse, len(tasks))
	for i, t := range tasks {
		summary := toSummary(t)
		out[i] = &summary
	}
	return out, nil
}

func (s *taskService) Get(ctx context.Context, id uuid.UUID) (*dto.TaskDetailResponse, error) {
	task, articles, err := s.tasks.GetWithArticles(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "task not found")
	}

	detail := &dto.TaskDetailResponse{
		TaskSummaryResponse: toSummary(task),
		Keywords:            task.Keywords,
		Articles:            make([]dto.ArticleResponse, len(articles)),
	}
	for i, a := range articles {
		detail.Articles[i] = dto.ArticleResponse{
			Id:             a.Id,
			Title:          a.Title,
			URL:            a.URL,
			AccountName:    a.AccountName,
			AccountFakeID:  a.AccountFakeID,
			PublishTime:    a.PublishTime,
			Similarity:     a.Similarity,
			RelevanceScore: a.RelevanceScore,
			Insight:        a.Insight,
			CreatedAt:      a.CreatedAt,
		}
	}
	return detail, nil
}

func (s *taskService) Cancel(ctx context.Context, id uuid.UUID) error {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	ok, err := s.supervisor.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusConflict, "task is already finished")
	}
	return nil
}

func (s *taskService) Delete(ctx context.Context, id uuid.UUID) error {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	if !task.IsTerminal() {
		return fiber.NewError(fiber.StatusConflict, "cancel the task before deleting it")
	}
	return s.tasks.Delete(ctx, id)
}

func toSummary(t *entity.Task) dto.TaskSummaryResponse {
	return dto.TaskSummaryResponse{
		Id:               t.Id,
		Prompt:           t.Prompt,
		TargetCount:      t.TargetCount,
		Status:           string(t.Status),
		ProcessedCount:   t.ProcessedCount,
		CompletionReason: t.CompletionReason,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
