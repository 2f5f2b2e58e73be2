package entity

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the task's position in its lifecycle state machine.
// Transitions are only ever applied through
// TaskRepository.TransitionStatus, never written directly.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCancelling TaskStatus = "cancelling"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// SpeedTier controls the Search Client's per-call delay policy.
type SpeedTier string

const (
	SpeedTierHigh   SpeedTier = "high"
	SpeedTierMedium SpeedTier = "medium"
	SpeedTierLow    SpeedTier = "low"
)

// TaskConfig is the per-task provider selection, fixed at creation and
// persisted alongside the task so a running task never re-reads global
// configuration.
type TaskConfig struct {
	KeywordProvider    string
	ReasoningProvider  string
	EmbeddingProvider  string
	SearchSpeed        SpeedTier
	ScopeAccountFakeID string // empty means unscoped keyword search
	ScopeAccountName   string
}

type Task struct {
	Id               uuid.UUID
	Prompt           string
	TargetCount      int
	Status           TaskStatus
	Keywords         []string
	ProcessedCount   int
	CompletionReason string
	Config           TaskConfig
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsTerminal reports whether no further pipeline activity should mutate the task.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// validTransitions is the explicit state-machine table.
// TaskRepository.TransitionStatus consults this before issuing its
// compare-and-set UPDATE; business code never writes Status directly.
var validTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskStatusPending: {
		TaskStatusProcessing: true,
		TaskStatusCancelling: true,
	},
	TaskStatusProcessing: {
		TaskStatusCompleted:  true,
		TaskStatusFailed:     true,
		TaskStatusCancelling: true,
	},
	TaskStatusCancelling: {
		TaskStatusCancelled: true,
	},
}

// ValidTransition reports whether moving a task from `from` to `to` is
// permitted by the state machine.
func ValidTransition(from, to TaskStatus) bool {
	return validTransitions[from][to]
}
