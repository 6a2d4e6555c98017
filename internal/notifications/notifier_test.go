package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishEventNilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	err := n.PublishEvent(context.Background(), NewEvent(EventRequestCreated, "request", 1, "ana"))
	assert.NoError(t, err)
}

func TestNewEventPopulatesIdentity(t *testing.T) {
	t.Parallel()
	e := NewEvent(EventPickupScheduled, "pickup", 42, "admin")
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventPickupScheduled, e.Kind)
	assert.Equal(t, "pickup", e.Entity)
	assert.Equal(t, uint(42), e.EntityID)
	assert.Equal(t, "admin", e.Actor)
	assert.False(t, e.OccurredAt.IsZero())

	// Two events never share an ID.
	assert.NotEqual(t, e.ID, NewEvent(EventPickupScheduled, "pickup", 42, "admin").ID)
}

func TestNotifier_PublishAndSubscribeRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartEventSubscriber(ctx, func(payload string) {
		payloads <- payload
	}))

	sent := NewEvent(EventPickupCompleted, "pickup", 7, "admin").
		WithPayload(map[string]any{"real_total": 42.5})
	require.NoError(t, n.PublishEvent(context.Background(), sent))

	select {
	case payload := <-payloads:
		var got Event
		require.NoError(t, json.Unmarshal([]byte(payload), &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, EventPickupCompleted, got.Kind)
		assert.Equal(t, uint(7), got.EntityID)
		snapshot, ok := got.Payload.(map[string]any)
		require.True(t, ok)
		assert.InDelta(t, 42.5, snapshot["real_total"], 1e-9)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	var received int32
	require.NoError(t, n.StartEventSubscriber(ctx, func(string) {
		atomic.AddInt32(&received, 1)
	}))

	require.NoError(t, n.PublishEvent(context.Background(), NewEvent(EventRequestCreated, "request", 1, "")))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishEvent(context.Background(), NewEvent(EventRequestCreated, "request", 2, "")))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) >= 2
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestHubBroadcastWiring(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))

	// A hub with no clients must not block or panic on incoming events.
	require.NoError(t, n.PublishEvent(context.Background(), NewEvent(EventPickupCancelled, "pickup", 3, "admin")))
	time.Sleep(50 * time.Millisecond)
}
