package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	allowed := []struct{ from, to TaskStatus }{
		{TaskStatusPending, TaskStatusProcessing},
		{TaskStatusPending, TaskStatusCancelling},
		{TaskStatusProcessing, TaskStatusCompleted},
		{TaskStatusProcessing, TaskStatusFailed},
		{TaskStatusProcessing, TaskStatusCancelling},
		{TaskStatusCancelling, TaskStatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, ValidTransition(tr.from, tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	forbidden := []struct{ from, to TaskStatus }{
		{TaskStatusPending, TaskStatusCompleted},
		{TaskStatusPending, TaskStatusFailed},
		{TaskStatusProcessing, TaskStatusPending},
		{TaskStatusProcessing, TaskStatusCancelled}, // must pass through cancelling
		{TaskStatusCompleted, TaskStatusProcessing},
		{TaskStatusCancelled, TaskStatusProcessing},
		{TaskStatusFailed, TaskStatusProcessing},
		{TaskStatusCompleted, TaskStatusFailed},
		{TaskStatusCancelling, TaskStatusProcessing},
	}
	for _, tr := range forbidden {
		assert.False(t, ValidTransition(tr.from, tr.to), "%s -> %s should be forbidden", tr.from, tr.to)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed}
	for _, s := range terminal {
		assert.True(t, (&Task{Status: s}).IsTerminal(), string(s))
	}
	active := []TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCancelling}
	for _, s := range active {
		assert.False(t, (&Task{Status: s}).IsTerminal(), string(s))
	}
}
