// Package notifications publishes lifecycle events into Redis and fans them
// out to connected WebSocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"
	"time"

	"recolecta/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis pub/sub channel carrying lifecycle events.
const EventsChannel = "events:lifecycle"

// Event kinds emitted by the lifecycle engine.
const (
	EventRequestCreated   = "request_created"
	EventRequestUpdated   = "request_updated"
	EventRequestCancelled = "request_cancelled"
	EventPickupScheduled  = "pickup_scheduled"
	EventPickupUpdated    = "pickup_updated"
	EventPickupCancelled  = "pickup_cancelled"
	EventPickupCompleted  = "pickup_completed"
)

// Event is a lifecycle notification. Events are emitted after the owning
// transaction commits; delivery is best effort and never affects the
// committed state.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Entity     string    `json:"entity"`
	EntityID   uint      `json:"entity_id"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	// Payload carries the affected entity snapshot so subscribers can act
	// on the event without re-fetching state.
	Payload any `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh ID and timestamp.
func NewEvent(kind, entity string, entityID uint, actor string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Entity:     entity,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

// WithPayload attaches the entity snapshot to the event.
func (e Event) WithPayload(p any) Event {
	e.Payload = p
	return e
}

// Notifier publishes lifecycle events into the Redis events channel.
type Notifier struct {
	rdb    *redis.Client
	logger *observability.EventLogger
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{
		rdb:    rdb,
		logger: observability.NewEventLogger(EventsChannel),
	}
}

// PublishEvent sends a lifecycle event to the events channel. A nil Redis
// client is a no-op so the engine keeps working without the event stream.
func (n *Notifier) PublishEvent(ctx context.Context, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		observability.NotificationFailures.WithLabelValues("redis").Inc()
		n.logger.LogError(ctx, err, "marshal")
		return err
	}
	if err := n.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		observability.NotificationFailures.WithLabelValues("redis").Inc()
		n.logger.LogError(ctx, err, "publish")
		return err
	}
	observability.EventsPublished.WithLabelValues(event.Kind).Inc()
	n.logger.LogPublish(ctx, event.Kind, event.Entity, event.EntityID)
	return nil
}

// StartEventSubscriber subscribes to the events channel and calls onMessage
// for each incoming payload.
func (n *Notifier) StartEventSubscriber(
	ctx context.Context, onMessage func(payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in EventSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
