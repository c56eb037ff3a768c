// Package simulation holds the tick loop's structured events.
package simulation

import (
	"context"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// EventTickBudgetOverrun fires for every tick whose step took longer than
	// one tick interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventTickBudgetAlarm fires once a run of overruns reaches the configured
	// streak with the latest tick at or above the configured ratio. The streak
	// starts over after each alarm.
	EventTickBudgetAlarm logging.EventType = "simulation.tick_budget_alarm"
)

// TickBudgetOverrunPayload describes one slow tick. Streak counts the
// consecutive overruns ending at this tick.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// TickBudgetAlarmPayload is the overrun that tripped the alarm together with
// the thresholds it crossed.
type TickBudgetAlarmPayload struct {
	DurationMillis  int64   `json:"durationMillis"`
	BudgetMillis    int64   `json:"budgetMillis"`
	Ratio           float64 `json:"ratio"`
	Streak          uint64  `json:"streak"`
	ThresholdRatio  float64 `json:"thresholdRatio"`
	ThresholdStreak uint64  `json:"thresholdStreak"`
}

func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	publish(ctx, pub, EventTickBudgetOverrun, logging.SeverityWarn, tick, payload, extra)
}

func TickBudgetAlarm(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetAlarmPayload, extra map[string]any) {
	publish(ctx, pub, EventTickBudgetAlarm, logging.SeverityError, tick, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Severity: severity,
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	})
}
