package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/pkg/logger"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"
	"github.com/longlongyang/wechat-article-insight/pkg/pipeline"

	"github.com/google/uuid"
)

// PipelineRunner is the slice of pkg/pipeline the supervisor drives.
type PipelineRunner interface {
	Run(ctx context.Context, task *entity.Task, p pipeline.Providers)
}

// ProviderBuilder constructs the per-task capability table from the
// task's persisted provider selection.
type ProviderBuilder func(cfg entity.TaskConfig) (pipeline.Providers, error)

type ISupervisorService interface {
	// Start resumes dangling tasks left by a prior crash and begins
	// consuming the submission queue. Non-blocking.
	Start(ctx context.Context) error
	// Submit enqueues a freshly created (pending) task.
	Submit(ctx context.Context, taskId uuid.UUID) error
	// Cancel flips the task's cancellation flag. Returns false if the
	// task was already terminal.
	Cancel(ctx context.Context, taskId uuid.UUID) (bool, error)
}

type supervisorService struct {
	queue          TaskQueue
	tasks          contract.TaskRepository
	runner         PipelineRunner
	buildProviders ProviderBuilder
	log            logger.ILogger

	sem     chan struct{}
	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewSupervisorService(
	queue TaskQueue,
	tasks contract.TaskRepository,
	runner PipelineRunner,
	buildProviders ProviderBuilder,
	log logger.ILogger,
	maxConcurrent int,
) ISupervisorService {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &supervisorService{
		queue:          queue,
		tasks:          tasks,
		runner:         runner,
		buildProviders: buildProviders,
		log:            log,
		sem:            make(chan struct{}, maxConcurrent),
		cancels:        make(map[uuid.UUID]context.CancelFunc),
	}
}

func (s *supervisorService) Start(ctx context.Context) error {
	if err := s.resume(ctx); err != nil {
		return fmt.Errorf("resume scan: %w", err)
	}

	submissions, err := s.queue.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe task queue: %w", err)
	}
	go func() {
		for id := range submissions {
			// Blocking on the semaphore here keeps excess submissions
			// queued (their tasks stay pending) until a slot frees.
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go s.execute(ctx, id)
		}
	}()
	return nil
}

// resume picks up tasks left in processing or cancelling by a prior
// crash: cancellations are completed, interrupted runs re-enter the
// pipeline with their persisted keywords and partial articles intact.
func (s *supervisorService) resume(ctx context.Context) error {
	dangling, err := s.tasks.ListByStatuses(ctx, entity.TaskStatusProcessing, entity.TaskStatusCancelling)
	if err != nil {
		return err
	}
	for _, task := range dangling {
		switch task.Status {
		case entity.TaskStatusCancelling:
			if _, err := s.tasks.TransitionStatus(ctx, task.Id, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user"); err != nil {
				s.log.Error("supervisor", "failed to complete interrupted cancellation", map[string]interface{}{
					"task_id": task.Id.String(), "error": err.Error(),
				})
			}
		case entity.TaskStatusProcessing:
			s.log.Info("supervisor", "resuming interrupted task", map[string]interface{}{
				"task_id": task.Id.String(), "processed": task.ProcessedCount, "target": task.TargetCount,
			})
			// The slot is awaited in the background so Start does not
			// block when more tasks resume than the cap allows.
			go func(id uuid.UUID) {
				select {
				case s.sem <- struct{}{}:
					s.execute(ctx, id)
				case <-ctx.Done():
				}
			}(task.Id)
		}
	}
	return nil
}

func (s *supervisorService) Submit(ctx context.Context, taskId uuid.UUID) error {
	return s.queue.Publish(ctx, taskId)
}

func (s *supervisorService) Cancel(ctx context.Context, taskId uuid.UUID) (bool, error) {
	ok, err := s.tasks.RequestCancel(ctx, taskId)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	cancel := s.cancels[taskId]
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	} else if ok {
		// Not running yet (still queued): nothing will observe the
		// flag, so the cancellation completes here.
		if _, err := s.tasks.TransitionStatus(ctx, taskId, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user"); err != nil {
			return ok, err
		}
	}
	return ok, nil
}

func (s *supervisorService) execute(ctx context.Context, taskId uuid.UUID) {
	defer func() { <-s.sem }()

	task, err := s.tasks.Get(ctx, taskId)
	if err != nil {
		s.log.Error("supervisor", "failed to load submitted task", map[string]interface{}{
			"task_id": taskId.String(), "error": err.Error(),
		})
		return
	}
	if task == nil || task.IsTerminal() {
		return
	}

	switch task.Status {
	case entity.TaskStatusPending:
		ok, err := s.tasks.TransitionStatus(ctx, taskId, entity.TaskStatusPending, entity.TaskStatusProcessing, "")
		if err != nil {
			s.log.Error("supervisor", "pickup transition failed", map[string]interface{}{
				"task_id": taskId.String(), "error": err.Error(),
			})
			return
		}
		if !ok {
			// Lost the race: a cancel arrived while the task was queued.
			_, _ = s.tasks.TransitionStatus(ctx, taskId, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user")
			return
		}
		task.Status = entity.TaskStatusProcessing
	case entity.TaskStatusCancelling:
		_, _ = s.tasks.TransitionStatus(ctx, taskId, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user")
		return
	case entity.TaskStatusProcessing:
		// Resumed task, already processing.
	default:
		return
	}

	providers, err := s.buildProviders(task.Config)
	if err != nil {
		s.log.Error("supervisor", "provider construction failed", map[string]interface{}{
			"task_id": taskId.String(), "error": err.Error(),
		})
		_, _ = s.tasks.TransitionStatus(ctx, taskId, entity.TaskStatusProcessing, entity.TaskStatusFailed,
			fmt.Sprintf("provider configuration invalid: %v", err))
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[taskId] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, taskId)
		s.mu.Unlock()
	}()

	s.runner.Run(taskCtx, task, providers)
}
