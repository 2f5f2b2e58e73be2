// Package nats is the optional durable intake transport for the worker
// supervisor: task submissions survive a process restart while queued,
// for deployments that opt in with WORKER_QUEUE_DRIVER=nats.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName       = "INSIGHT_TASKS"
	submittedSubject = "insight.task.submitted"
)

type taskSubmittedPayload struct {
	TaskId uuid.UUID `json:"task_id"`
}

// Publisher sends task submissions to the NATS bus.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"insight.task.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		log.Printf("Warn: Failed to ensure stream %q: %v", streamName, err)
		// Don't fail hard here, maybe it already exists or NATS isn't ready
	}

	return &Publisher{nc: nc, js: js}, nil
}

// PublishTaskSubmitted enqueues a task id for the supervisor.
func (p *Publisher) PublishTaskSubmitted(ctx context.Context, taskId uuid.UUID) error {
	data, err := json.Marshal(taskSubmittedPayload{TaskId: taskId})
	if err != nil {
		return fmt.Errorf("failed to marshal task submission: %w", err)
	}
	if _, err := p.js.Publish(ctx, submittedSubject, data); err != nil {
		return fmt.Errorf("failed to publish task submission: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
