package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"ar-session-core/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic carries every session event inside the process.
const Topic = "arsession.events"

// Envelope is the wire form of a session event on the bus. Seq is assigned at
// publish time; subscribers may see messages out of order and can sort on it.
type Envelope struct {
	Seq        uint64                 `json:"seq"`
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
}

// Event rebuilds the events.Event the envelope was made from.
func (e Envelope) Event() events.BaseEvent {
	evt := events.BaseEvent{Type: e.Type, Data: e.Data}
	evt.OccurredAt, _ = parseTime(e.OccurredAt)
	return evt
}

// NewGoChannel builds the in-process pub/sub used between sessions and consumers.
func NewGoChannel(debug bool) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(debug, false),
	)
}

// Publisher implements events.Publisher on top of a watermill publisher.
type Publisher struct {
	pub message.Publisher
	seq atomic.Uint64
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	env := Envelope{
		Seq:        p.seq.Add(1),
		Type:       event.EventType(),
		SessionID:  events.SessionID(event),
		Data:       event.Payload(),
		OccurredAt: formatTime(event.Timestamp()),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", env.Type, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", env.Type)
	msg.Metadata.Set("session_id", env.SessionID)

	if err := p.pub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", env.Type, err)
	}
	return nil
}

// Decode parses a bus message back into its envelope.
func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	return env, nil
}
