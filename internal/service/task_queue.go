package service

import (
	"context"

	pktNats "github.com/longlongyang/wechat-article-insight/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const taskSubmittedTopic = "task.submitted"

// TaskQueue is the supervisor's intake transport. The in-process driver
// loses queued-but-unpicked submissions on crash. Their tasks stay
// pending: the supervisor's startup resume-scan only picks up processing
// and cancelling tasks, so it does not resubmit them. The NATS driver
// keeps queued submissions across restarts.
type TaskQueue interface {
	Publish(ctx context.Context, taskId uuid.UUID) error
	Subscribe(ctx context.Context) (<-chan uuid.UUID, error)
}

type channelQueue struct {
	pubSub *gochannel.GoChannel
}

// NewChannelQueue builds the default in-process intake.
func NewChannelQueue() TaskQueue {
	// Buffered so Publish never blocks the create-task handler while the
	// supervisor's slots are full; queued tasks simply stay pending.
	return &channelQueue{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewStdLogger(false, false)),
	}
}

func (q *channelQueue) Publish(ctx context.Context, taskId uuid.UUID) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(taskId.String()))
	return q.pubSub.Publish(taskSubmittedTopic, msg)
}

func (q *channelQueue) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	messages, err := q.pubSub.Subscribe(ctx, taskSubmittedTopic)
	if err != nil {
		return nil, err
	}
	out := make(chan uuid.UUID)
	go func() {
		defer close(out)
		for msg := range messages {
			id, err := uuid.Parse(string(msg.Payload))
			if err != nil {
				msg.Ack() // malformed, drop
				continue
			}
			select {
			case out <- id:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

type natsQueue struct {
	pub *pktNats.Publisher
	sub *pktNats.Subscriber
}

// NewNatsQueue builds the durable intake used when
// WORKER_QUEUE_DRIVER=nats.
func NewNatsQueue(pub *pktNats.Publisher, sub *pktNats.Subscriber) TaskQueue {
	return &natsQueue{pub: pub, sub: sub}
}

func (q *natsQueue) Publish(ctx context.Context, taskId uuid.UUID) error {
	return q.pub.PublishTaskSubmitted(ctx, taskId)
}

func (q *natsQueue) Subscribe(ctx context.Context) (<-chan uuid.UUID, error) {
	return q.sub.SubscribeTaskSubmitted(ctx)
}
