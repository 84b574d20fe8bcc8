package service

import (
	"context"

	"ar-session-core/internal/eventbus"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink receives every decoded session event, e.g. the websocket hub.
type EventSink interface {
	Send(env eventbus.Envelope)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	sink       EventSink
	forwarder  events.Publisher
	logger     logger.ILogger
}

// NewConsumerService fans bus events out to sink and, when forwarder is not nil,
// to an external broker.
func NewConsumerService(
	subscriber message.Subscriber,
	sink EventSink,
	forwarder events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		sink:       sink,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, eventbus.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	env, err := eventbus.Decode(msg)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to decode event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.sink.Send(env)

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, env.Event()); err != nil {
			// Broker outages must not stall the local bus.
			cs.logger.Warn("ConsumerService", "Failed to forward event", map[string]interface{}{
				"type":       env.Type,
				"session_id": env.SessionID,
				"error":      err.Error(),
			})
		}
	}

	msg.Ack()
}
