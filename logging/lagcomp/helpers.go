package lagcomp

import (
	"context"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// EventHistoryCleared is emitted when all tracks are emptied.
	EventHistoryCleared logging.EventType = "lagcomp.history_cleared"
	// EventHistoryMissing is emitted when an eligible actor has no usable
	// record for the requested time.
	EventHistoryMissing logging.EventType = "lagcomp.history_missing"
	// EventRestoreBlocked is emitted when an actor could not be put back at
	// its wanted position.
	EventRestoreBlocked logging.EventType = "lagcomp.restore_blocked"
	// EventInvariantViolation is emitted when a track is found out of order.
	EventInvariantViolation logging.EventType = "lagcomp.invariant_violation"
	// EventWindowCommitted summarises a compensation window.
	EventWindowCommitted logging.EventType = "lagcomp.window_committed"
)

// HistoryClearedPayload names what triggered the clear.
type HistoryClearedPayload struct {
	Reason string `json:"reason"`
}

// HistoryMissingPayload describes a failed lookup.
type HistoryMissingPayload struct {
	Lookup     string  `json:"lookup"`
	TargetTime float64 `json:"targetTime"`
	Records    int     `json:"records"`
}

// RestoreBlockedPayload describes a degraded restoration.
type RestoreBlockedPayload struct {
	Wanted   []float64 `json:"wanted"`
	Placed   []float64 `json:"placed"`
	Fraction float64   `json:"fraction"`
	Stuck    bool      `json:"stuck"`
}

// InvariantViolationPayload describes two records in the wrong order.
type InvariantViolationPayload struct {
	Age       int     `json:"age"`
	Timestamp float64 `json:"timestamp"`
	Previous  float64 `json:"previous"`
}

// WindowCommittedPayload summarises what a window did.
type WindowCommittedPayload struct {
	Backtracked  int `json:"backtracked"`
	Interpolated int `json:"interpolated"`
	Missing      int `json:"missing"`
	Partial      int `json:"partial"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
}

// HistoryCleared publishes an info event when history is dropped.
func HistoryCleared(ctx context.Context, pub logging.Publisher, tick uint64, payload HistoryClearedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHistoryCleared,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLagComp,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// HistoryMissing publishes a debug event for a skipped actor.
func HistoryMissing(ctx context.Context, pub logging.Publisher, tick uint64, traceID string, actor logging.EntityRef, target logging.EntityRef, payload HistoryMissingPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventHistoryMissing,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLagComp,
		Payload:  payload,
		Extra:    extra,
		TraceID:  traceID,
	}
	pub.Publish(ctx, event)
}

// RestoreBlocked publishes a debug event for a degraded restoration.
func RestoreBlocked(ctx context.Context, pub logging.Publisher, tick uint64, traceID string, actor logging.EntityRef, target logging.EntityRef, payload RestoreBlockedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRestoreBlocked,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLagComp,
		Payload:  payload,
		Extra:    extra,
		TraceID:  traceID,
	}
	pub.Publish(ctx, event)
}

// InvariantViolation publishes a warning for an out of order track.
func InvariantViolation(ctx context.Context, pub logging.Publisher, tick uint64, traceID string, target logging.EntityRef, payload InvariantViolationPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventInvariantViolation,
		Tick:     tick,
		Actor:    target,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLagComp,
		Payload:  payload,
		Extra:    extra,
		TraceID:  traceID,
	}
	pub.Publish(ctx, event)
}

// WindowCommitted publishes a debug summary once a window is restored.
func WindowCommitted(ctx context.Context, pub logging.Publisher, tick uint64, traceID string, actor logging.EntityRef, payload WindowCommittedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventWindowCommitted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLagComp,
		Payload:  payload,
		Extra:    extra,
		TraceID:  traceID,
	}
	pub.Publish(ctx, event)
}
