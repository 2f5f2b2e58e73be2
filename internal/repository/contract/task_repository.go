package contract

import (
	"context"

	"github.com/longlongyang/wechat-article-insight/internal/entity"

	"github.com/google/uuid"
)

// TaskRepository is the persistence layer for tasks, their articles,
// atomic status transitions, and incremental progress counters. Status is
// only ever advanced through TransitionStatus's compare-and-set, never
// written directly by business code.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	List(ctx context.Context) ([]*entity.Task, error)
	// ListByStatuses finds tasks in any of the given statuses, used by
	// the worker supervisor's startup resume-scan.
	ListByStatuses(ctx context.Context, statuses ...entity.TaskStatus) ([]*entity.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	// GetWithArticles loads a task together with its persisted articles,
	// ordered by created_at (insertion/relevance-completion order).
	GetWithArticles(ctx context.Context, id uuid.UUID) (*entity.Task, []*entity.Article, error)

	// TransitionStatus performs a compare-and-set UPDATE on the current
	// status, returning false (no error) if the row was not in `from`
	// when the update ran — the caller must treat that as a lost race
	// with the supervisor/cancel-request, not an error.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.TaskStatus, completionReason string) (bool, error)
	SetKeywords(ctx context.Context, id uuid.UUID, keywords []string) error
	// RequestCancel sets status to cancelling from pending or processing;
	// a no-op (returns false) if the task is already terminal.
	RequestCancel(ctx context.Context, id uuid.UUID) (bool, error)

	// AppendArticle inserts one article. A duplicate (task_id, url) is
	// silently ignored: it returns (false, nil), not an error.
	AppendArticle(ctx context.Context, article *entity.Article) (inserted bool, err error)
	// IncrementProcessed atomically increments processed_count by one
	// and returns the new value.
	IncrementProcessed(ctx context.Context, id uuid.UUID) (int, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
