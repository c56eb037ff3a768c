// Package lagcomp rewinds actors to the moment a lagged client saw them, lets
// the caller resolve the client's command against that world, then puts the
// actors back without clobbering changes made while they were rewound.
package lagcomp

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

var (
	// ErrNotInitialized is returned when the manager is used before Init or
	// after Teardown.
	ErrNotInitialized = errors.New("lagcomp: manager not initialized")
	// ErrWindowOpen is returned by Begin when the previous window was never
	// committed.
	ErrWindowOpen = errors.New("lagcomp: compensation window already open")
	// ErrNoWindow is returned by Commit without a matching Begin.
	ErrNoWindow = errors.New("lagcomp: no compensation window open")
)

const (
	metricWindows        = "lagcomp_windows_total"
	metricBacktracked    = "lagcomp_backtracked_total"
	metricMissing        = "lagcomp_history_missing_total"
	metricInterpolated   = "lagcomp_interpolated_total"
	metricRestorePartial = "lagcomp_restore_partial_total"
	metricRestoreFailed  = "lagcomp_restore_failed_total"
	metricRestoreSkipped = "lagcomp_restore_skipped_total"
	metricCleared        = "lagcomp_history_cleared_total"
)

const (
	reasonDisabled = "disabled"
	reasonReset    = "reset"
	reasonTeardown = "teardown"
)

// Deps are the collaborators the manager drives.
type Deps struct {
	Roster Roster
	// Eligible filters candidates. Nil compensates every occupied slot.
	Eligible Eligibility
	// Collider validates restorations. Nil never blocks.
	Collider  Collider
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// windowStats counts what a single window did.
type windowStats struct {
	backtracked  int
	interpolated int
	missing      int
	partial      int
	failed       int
	skipped      int
}

type window struct {
	tick      uint64
	requester Actor
	traceID   string
	stats     windowStats
}

// Manager owns the per-slot history and the compensation scratch. It is not
// safe for concurrent use; the simulation goroutine drives every call.
type Manager struct {
	cfg  Config
	deps Deps

	tracks   []Track
	lastTick []uint64 // tick+1 of the newest record, 0 when none

	restore []Record
	change  []Record
	touched SlotSet

	needRestore bool
	open        bool
	cleared     bool
	initialized bool
	tick        uint64
	win         window

	debugLimiter *rate.Limiter
}

// New returns a manager bound to deps. Init must be called before use.
func New(deps Deps) *Manager {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	return &Manager{deps: deps}
}

// Init sizes every track and scratch arena from cfg, dropping any history.
func (m *Manager) Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if m.open {
		return ErrWindowOpen
	}
	m.cfg = cfg
	m.tracks = make([]Track, cfg.MaxActors)
	for i := range m.tracks {
		m.tracks[i] = NewTrack(cfg.HistoryTicks)
	}
	m.lastTick = make([]uint64, cfg.MaxActors)
	m.restore = make([]Record, cfg.MaxActors)
	m.change = make([]Record, cfg.MaxActors)
	m.touched = NewSlotSet(cfg.MaxActors)
	m.needRestore = false
	m.cleared = true
	m.debugLimiter = newDebugLimiter(cfg.DebugEventsPerSecond)
	m.initialized = true
	return nil
}

func newDebugLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// SetEnabled flips the global switch. History is dropped on the next Record
// while disabled.
func (m *Manager) SetEnabled(enabled bool) {
	m.cfg.Enabled = enabled
}

// SetDebug toggles debug event publishing.
func (m *Manager) SetDebug(debug bool) {
	m.cfg.Debug = debug
}

// Clear drops every track, as on a level transition.
func (m *Manager) Clear() {
	if !m.initialized {
		return
	}
	m.cleared = false
	m.clearHistory(reasonReset)
}

// Teardown drops history and releases every buffer. Init must be called again
// before the manager is reused.
func (m *Manager) Teardown() {
	if !m.initialized {
		return
	}
	m.cleared = false
	m.clearHistory(reasonTeardown)
	m.tracks = nil
	m.lastTick = nil
	m.restore = nil
	m.change = nil
	m.touched = SlotSet{}
	m.needRestore = false
	m.open = false
	m.win = window{}
	m.initialized = false
}

// Forget drops the history and scratch of slot, as when its actor leaves.
func (m *Manager) Forget(slot Slot) {
	if !m.inRange(slot) {
		return
	}
	m.tracks[slot].Clear()
	m.lastTick[slot] = 0
	m.touched.Unset(slot)
	m.restore[slot] = Record{}
	m.change[slot] = Record{}
}

// InWindow reports whether Begin was called without a matching Commit.
func (m *Manager) InWindow() bool {
	return m.open
}

// Touched reports whether slot was rewound by the latest window.
func (m *Manager) Touched(slot Slot) bool {
	return m.touched.Has(slot)
}

// Changed returns the field groups the latest window rewrote on slot.
func (m *Manager) Changed(slot Slot) Flags {
	if !m.inRange(slot) || !m.touched.Has(slot) {
		return FlagNone
	}
	return m.restore[slot].Flags
}

// Depth reports how many records slot currently holds.
func (m *Manager) Depth(slot Slot) int {
	if !m.inRange(slot) {
		return 0
	}
	return m.tracks[slot].Len()
}

// History returns a copy of slot's records ordered oldest to newest.
func (m *Manager) History(slot Slot) []Record {
	if !m.inRange(slot) {
		return nil
	}
	return m.tracks[slot].Records()
}

// Slots reports how many slots the arenas hold.
func (m *Manager) Slots() int {
	return len(m.tracks)
}

func (m *Manager) inRange(slot Slot) bool {
	return m.initialized && slot >= 0 && int(slot) < len(m.tracks)
}

// active reports whether compensation runs at all.
func (m *Manager) active() bool {
	return m.cfg.Enabled && m.deps.Roster != nil && m.deps.Roster.Capacity() > 1
}

func (m *Manager) clearHistory(reason string) {
	if m.cleared {
		return
	}
	for i := range m.tracks {
		m.tracks[i].Clear()
		m.lastTick[i] = 0
	}
	m.cleared = true
	m.deps.Metrics.Add(metricCleared, 1)
	loglagcomp.HistoryCleared(context.Background(), m.deps.Publisher, m.tick, loglagcomp.HistoryClearedPayload{Reason: reason}, nil)
}

// debugEnabled reports whether a debug event may be published now.
func (m *Manager) debugEnabled() bool {
	return m.cfg.Debug && m.debugLimiter.Allow()
}
