package sim

import (
	"sync"
	"time"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// DefaultTickRate is used when LoopConfig.TickRate is unset.
const DefaultTickRate = 64

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int

	// BudgetAlarmRatio and BudgetAlarmStreak escalate sustained overruns.
	BudgetAlarmRatio  float64
	BudgetAlarmStreak uint64
}

// LoopTickContext describes the tick about to run.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports what a tick did and how long it took.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
	Commands     []Command
	Shots        []Shot
}

// LoopHooks are optional callbacks around every tick. They run on the loop
// goroutine.
type LoopHooks struct {
	// Prepare runs before the staged commands are drained, so commands it
	// enqueues apply to the same tick.
	Prepare        func(LoopTickContext)
	NextTick       func() uint64
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock
	budget  budgetMonitor

	queueMu       sync.Mutex
	perActorCount map[lagcomp.Slot]int
	dropCounts    map[lagcomp.Slot]uint64

	tick uint64

	snapshotMu sync.RWMutex
	snapshot   Snapshot
}

// NewLoop wraps the provided engine core with a ring-buffer queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	deps := core.Deps().withDefaults()
	return &Loop{
		core:    core,
		buffer:  NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:   hooks,
		config:  cfg,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		budget: budgetMonitor{
			publisher:   deps.Publisher,
			alarmRatio:  cfg.BudgetAlarmRatio,
			alarmStreak: cfg.BudgetAlarmStreak,
		},
		perActorCount: make(map[lagcomp.Slot]int),
		dropCounts:    make(map[lagcomp.Slot]uint64),
		snapshot:      core.Snapshot(),
	}
}

// Interval is the wall time budget of one tick.
func (l *Loop) Interval() time.Duration {
	return time.Second / time.Duration(l.config.TickRate)
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Snapshot returns the state published after the latest tick. It is safe to
// call from any goroutine.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.snapshotMu.RLock()
	defer l.snapshotMu.RUnlock()
	return l.snapshot
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	commands := l.drainCommands()
	if err := l.core.Apply(commands); err != nil {
		l.logger.Printf("[sim] apply commands at tick %d: %v", ctx.Tick, err)
	}
	step := l.core.Step(ctx.Tick)

	snapshot := l.core.Snapshot()
	l.snapshotMu.Lock()
	l.snapshot = snapshot
	l.snapshotMu.Unlock()

	return LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
		Shots:    step.Shots,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes. Ticks
// missed while the process stalled are replayed up to CatchupMaxTicks at a
// time; anything beyond that is dropped.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	interval := l.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	maxTicks := l.config.CatchupMaxTicks
	if maxTicks < 1 {
		maxTicks = 1
	}
	last := l.clock.Now()
	var pending time.Duration

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			elapsed := now.Sub(last)
			last = now
			if elapsed <= 0 {
				elapsed = interval
			}
			pending += elapsed

			steps := int(pending / interval)
			clamped := false
			if steps > maxTicks {
				steps = maxTicks
				pending = 0
				clamped = true
			} else {
				pending -= time.Duration(steps) * interval
			}
			for i := 0; i < steps; i++ {
				l.runTick(now, interval, maxTicks, clamped)
			}
		}
	}
}

func (l *Loop) runTick(now time.Time, interval time.Duration, maxTicks int, clamped bool) {
	tick := l.nextTick()
	start := l.clock.Now()
	result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: interval.Seconds()})
	result.Duration = l.clock.Now().Sub(start)
	result.Budget = interval
	result.ClampedDelta = clamped
	result.MaxDelta = interval.Seconds() * float64(maxTicks)

	l.metrics.Store(tickDurationMetricKey, uint64(result.Duration.Milliseconds()))
	l.budget.observe(tick, result.Duration, interval)

	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
}

func (l *Loop) nextTick() uint64 {
	if l.hooks.NextTick != nil {
		return l.hooks.NextTick()
	}
	l.tick++
	return l.tick
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID lagcomp.Slot) uint64 {
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%d type=%s count=%d reason=%s limit=%d",
			cmd.ActorID,
			cmd.Type,
			count,
			reason,
			l.config.PerActorLimit,
		)
	}
}

// Ensure Loop implements Engine.
var _ Engine = (*Loop)(nil)
