package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"ar-session-core/pkg/events"
	"ar-session-core/pkg/geo"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// FixHandler receives a fix addressed to one session.
type FixHandler func(sessionID string, fix geo.Fix)

// Subscriber handles listening for session events and fix feeds.
type Subscriber struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription
	cons []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers a durable consumer on the ARSESSION stream.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			log.Printf("Error unmarshalling event data: %v", err)
			msg.Term()
			return
		}

		evt := events.BaseEvent{
			Type:       strings.TrimPrefix(msg.Subject(), SubjectPrefix+"."),
			Data:       payload,
			OccurredAt: time.Now(),
		}
		if meta, err := msg.Metadata(); err == nil {
			evt.OccurredAt = meta.Timestamp
		}

		if err := handler(ctx, evt); err != nil {
			log.Printf("Error handling event %s: %v", evt.Type, err)
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.cons = append(s.cons, cc)
	return nil
}

// SubscribeFixes listens on a plain NATS subject such as "geofix.*". The last
// subject token is the session ID; the body is a JSON geo.Fix.
func (s *Subscriber) SubscribeFixes(subject string, handler FixHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var fix geo.Fix
		if err := json.Unmarshal(msg.Data, &fix); err != nil {
			log.Printf("Error unmarshalling fix on %s: %v", msg.Subject, err)
			return
		}
		handler(SessionFromSubject(msg.Subject), fix)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SessionFromSubject returns the last dot-separated token of subject.
func SessionFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

// Close stops every consumer and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.cons {
		cc.Stop()
	}
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
