package sim

import (
	"context"
	"time"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
	"github.com/XutaxKamay/css-enhanced-waf/logging/simulation"
)

const tickDurationMetricKey = "sim_tick_duration_ms"

// budgetMonitor publishes overruns of the tick budget and raises an alarm
// once AlarmStreak consecutive ticks ran at AlarmRatio or worse.
type budgetMonitor struct {
	publisher   logging.Publisher
	alarmRatio  float64
	alarmStreak uint64
	streak      uint64
}

func (b *budgetMonitor) observe(tick uint64, duration, budget time.Duration) {
	if budget <= 0 || duration <= budget {
		b.streak = 0
		return
	}
	b.streak++
	ratio := float64(duration) / float64(budget)
	simulation.TickBudgetOverrun(context.Background(), b.publisher, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: duration.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         b.streak,
	}, nil)

	if b.alarmRatio <= 0 || b.alarmStreak == 0 {
		return
	}
	if ratio >= b.alarmRatio && b.streak >= b.alarmStreak {
		simulation.TickBudgetAlarm(context.Background(), b.publisher, tick, simulation.TickBudgetAlarmPayload{
			DurationMillis:  duration.Milliseconds(),
			BudgetMillis:    budget.Milliseconds(),
			Ratio:           ratio,
			Streak:          b.streak,
			ThresholdRatio:  b.alarmRatio,
			ThresholdStreak: b.alarmStreak,
		}, nil)
		b.streak = 0
	}
}
