package combat

import (
	"context"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// EventShotHit is emitted when a fire command resolves against an actor.
	EventShotHit logging.EventType = "combat.shot_hit"
	// EventShotMiss is emitted when a fire command hits nothing.
	EventShotMiss logging.EventType = "combat.shot_miss"
)

// ShotPayload describes one resolved fire command.
type ShotPayload struct {
	Distance    float64 `json:"distance,omitempty"`
	Range       float64 `json:"range"`
	Compensated int     `json:"compensated"`
	TargetTime  float64 `json:"targetTime"`
	Damage      int     `json:"damage,omitempty"`
	Killed      bool    `json:"killed,omitempty"`
}

// ShotHit publishes a hit for the target the ray struck first.
func ShotHit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload ShotPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventShotHit,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ShotMiss publishes a debug event for a fire command that struck nothing.
func ShotMiss(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShotPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventShotMiss,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
