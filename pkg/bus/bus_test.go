package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMessage(t *testing.T, variant Variant, kind string) UnifiedMessage {
	t.Helper()
	msg, err := New(variant, kind, map[string]string{"k": "v"})
	require.NoError(t, err)
	return msg
}

func TestBus_SubscribeAll_ReceivesEverything(t *testing.T) {
	b := New(0, nil)
	rx := b.SubscribeAll()

	b.Send(mustMessage(t, VariantSession, "started"))
	b.Send(mustMessage(t, VariantTask, "queued"))

	select {
	case msg := <-rx:
		assert.Equal(t, VariantSession, msg.Variant)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first broadcast message")
	}
	select {
	case msg := <-rx:
		assert.Equal(t, VariantTask, msg.Variant)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second broadcast message")
	}
}

func TestBus_SubscribeTopic_RoutesByVariant(t *testing.T) {
	b := New(0, nil)
	sessionRx := b.SubscribeTopic("session")
	taskRx := b.SubscribeTopic("task")

	b.Send(mustMessage(t, VariantSession, "started"))

	select {
	case msg := <-sessionRx:
		assert.Equal(t, VariantSession, msg.Variant)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session topic message")
	}
	select {
	case <-taskRx:
		t.Fatal("task topic should not have received a session message")
	default:
	}
}

func TestBus_Direct_RoutesByToAgent(t *testing.T) {
	b := New(0, nil)
	rx := b.RegisterAgent("agent-1")

	msg := mustMessage(t, VariantDirect, "ping")
	msg.FromAgent = "agent-2"
	msg.ToAgent = "agent-1"
	b.Send(msg)

	select {
	case got := <-rx:
		assert.Equal(t, "agent-2", got.FromAgent)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for direct message")
	}
}

func TestBus_Direct_DoesNotUseTopics(t *testing.T) {
	b := New(0, nil)
	directTopicRx := b.SubscribeTopic("direct")

	msg := mustMessage(t, VariantDirect, "ping")
	msg.ToAgent = "nobody-registered"
	b.Send(msg)

	select {
	case <-directTopicRx:
		t.Fatal("direct messages must not be routed through topics")
	default:
	}
}

func TestBus_TopicSubscriber_DropsNewestWhenFull(t *testing.T) {
	m := NewMetrics()
	b := New(0, m)
	rx := b.SubscribeTopic("event")

	for i := 0; i < topicCapacity+10; i++ {
		b.Send(mustMessage(t, VariantEvent, "tick"))
	}

	assert.Len(t, rx, topicCapacity)
}

func TestBus_BroadcastSubscriber_DropsOldestWhenFull(t *testing.T) {
	b := New(0, nil)
	rx := b.SubscribeAll()

	for i := 0; i < broadcastCapacity+5; i++ {
		b.Send(mustMessage(t, VariantEvent, "tick"))
	}

	assert.Len(t, rx, broadcastCapacity)
}

func TestBus_History_CapsAtLimit(t *testing.T) {
	b := New(3, nil)
	for i := 0; i < 5; i++ {
		b.Send(mustMessage(t, VariantEvent, "tick"))
	}
	assert.Len(t, b.History(), 3)
}

func TestBus_History_Disabled(t *testing.T) {
	b := New(0, nil)
	b.Send(mustMessage(t, VariantEvent, "tick"))
	assert.Empty(t, b.History())
}

func TestVariant_Topic(t *testing.T) {
	assert.Equal(t, "session", VariantSession.Topic())
	assert.Equal(t, "coordination", VariantCoordination.Topic())
	assert.Equal(t, "", VariantDirect.Topic())
}
