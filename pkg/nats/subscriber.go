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

const durableName = "insight-supervisor"

// Subscriber listens for task submissions from NATS.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(url string) (*Subscriber, error) {
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

	return &Subscriber{nc: nc, js: js}, nil
}

// SubscribeTaskSubmitted delivers submitted task ids on the returned
// channel until ctx is done. Messages are acked on delivery, so a crash
// between ack and pickup is not redelivered. The task is then left
// pending, and the supervisor's startup resume-scan (processing and
// cancelling tasks only) does not pick it up either.
func (s *Subscriber) SubscribeTaskSubmitted(ctx context.Context) (<-chan uuid.UUID, error) {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: submittedSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	out := make(chan uuid.UUID)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload taskSubmittedPayload
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			log.Printf("Error unmarshalling task submission: %v", err)
			msg.Ack() // malformed, do not redeliver forever
			return
		}
		select {
		case out <- payload.TaskId:
			msg.Ack()
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
		close(out)
	}()

	return out, nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
