package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type payload struct {
	Dataset string `json:"dataset"`
	Seq     int    `json:"seq"`
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, TopicTranscriptAppended)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(TopicTranscriptAppended, payload{Dataset: "sales.csv", Seq: 1}))
	require.NoError(t, bus.Publish(TopicTranscriptAppended, payload{Dataset: "sales.csv", Seq: 2}))

	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		select {
		case raw := <-ch:
			var p payload
			require.NoError(t, json.Unmarshal(raw, &p))
			assert.Equal(t, "sales.csv", p.Dataset)
			seen[p.Seq] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	assert.True(t, seen[1] && seen[2])
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, TopicTranscriptAppended)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestPublishRejectsUnencodable(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	assert.Error(t, bus.Publish(TopicTranscriptAppended, func() {}))
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := NewZapAdapter(zap.New(core)).With(map[string]any{"topic": "t"})
	a.Info("subscribed", map[string]any{"n": 1})
	a.Trace("tick", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "subscribed", entries[0].Message)
	assert.Equal(t, "t", entries[0].ContextMap()["topic"])
}
