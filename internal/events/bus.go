// Package events carries transcript appends to live subscribers over an
// in-process watermill pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// TopicTranscriptAppended receives one event per appended message.
const TopicTranscriptAppended = "transcript.appended"

// Bus wraps a gochannel pub/sub with JSON payloads.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates an in-memory bus. log may be nil.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{pubsub: gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		NewZapAdapter(log.Named("events")),
	)}
}

// Publish encodes payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns raw JSON payloads published on topic until ctx is done.
// Messages are acked as they are handed over.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range msgs {
			payload := msg.Payload
			msg.Ack()
			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the bus and closes every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
