package lifecycle

import (
	"context"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// EventActorSpawned is emitted when an actor is placed into a slot.
	EventActorSpawned logging.EventType = "lifecycle.actor_spawned"
	// EventActorRemoved is emitted when an actor leaves its slot.
	EventActorRemoved logging.EventType = "lifecycle.actor_removed"
	// EventLevelReset is emitted when the world is reset and all history dropped.
	EventLevelReset logging.EventType = "lifecycle.level_reset"
)

// ActorSpawnedPayload captures spawn metadata.
type ActorSpawnedPayload struct {
	Slot   int       `json:"slot"`
	Team   int       `json:"team"`
	Origin []float64 `json:"origin"`
}

// ActorRemovedPayload captures why an actor left.
type ActorRemovedPayload struct {
	Slot   int    `json:"slot"`
	Reason string `json:"reason"`
}

// LevelResetPayload captures the state dropped by a reset.
type LevelResetPayload struct {
	Actors int `json:"actors"`
}

// ActorSpawned publishes an actor spawn event.
func ActorSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ActorSpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventActorSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ActorRemoved publishes an actor removal event.
func ActorRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ActorRemovedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventActorRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// LevelReset publishes a world reset event.
func LevelReset(ctx context.Context, pub logging.Publisher, tick uint64, payload LevelResetPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventLevelReset,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
