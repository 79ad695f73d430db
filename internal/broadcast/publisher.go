package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tenantworks/platform/internal/model"
)

const (
	// StreamName is the JetStream stream holding durable channel events.
	StreamName = "CHANNEL_EVENTS"

	// eventSubjects captures every durable event subject in the stream.
	eventSubjects = "events.>"
)

// Publisher fans events out to channels. Durable events go through
// JetStream and are retained for audit and replay; typing whispers go
// through plain NATS publish and vanish if nobody is listening. The two
// paths are never mixed.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream creates the durable event stream if it does not exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{eventSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Durable conversation and tenant channel events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishEvent appends a durable event to the channel's event log.
func (p *Publisher) PublishEvent(ctx context.Context, ch Channel, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, ch.eventSubject(), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Name, err)
	}
	return nil
}

// PublishTyping sends an ephemeral typing whisper to the conversation's
// peers. No acknowledgement, no retention: a whisper missed is a whisper
// gone.
func (p *Publisher) PublishTyping(ch Channel, signal *model.TypingSignal) error {
	data, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal typing signal: %w", err)
	}

	if err := p.client.Conn().Publish(ch.whisperSubject(), data); err != nil {
		return fmt.Errorf("failed to publish typing signal: %w", err)
	}
	return nil
}

// Subscribe delivers live traffic of a channel to the handler: durable
// events and, for conversation channels, typing whispers. It returns an
// unsubscribe function. Events arrive via the core subscription of the
// JetStream publish, so delivery to live subscribers is at most once.
func (p *Publisher) Subscribe(ch Channel, handler func(subject string, data []byte)) (func(), error) {
	subs := make([]*nats.Subscription, 0, 2)

	eventSub, err := p.client.Conn().Subscribe(ch.eventSubject(), func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	subs = append(subs, eventSub)

	if ch.Kind == KindConversation {
		whisperSub, err := p.client.Conn().Subscribe(ch.whisperSubject(), func(msg *nats.Msg) {
			handler(msg.Subject, msg.Data)
		})
		if err != nil {
			eventSub.Unsubscribe()
			return nil, fmt.Errorf("failed to subscribe to whispers: %w", err)
		}
		subs = append(subs, whisperSub)
	}

	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}, nil
}
