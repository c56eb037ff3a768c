package lagcomp

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
	"github.com/XutaxKamay/css-enhanced-waf/logging/sinks"
)

type fakeActor struct {
	slot     Slot
	name     string
	dead     bool
	bot      bool
	observer bool
	optOut   bool

	sim, anim      float64
	origin, angles mgl64.Vec3
	mins, maxs     mgl64.Vec3
	sequence       int
	cycle          float64
	layers         []Layer
	pose           []float64
	bones          []float64
	flushed        int
}

func newFakeActor(slot Slot) *fakeActor {
	return &fakeActor{
		slot:   slot,
		name:   "actor",
		mins:   mgl64.Vec3{-16, -16, 0},
		maxs:   mgl64.Vec3{16, 16, 72},
		layers: make([]Layer, 3),
		pose:   make([]float64, 5),
		bones:  make([]float64, 2),
	}
}

func (a *fakeActor) Slot() Slot              { return a.slot }
func (a *fakeActor) Name() string            { return a.name }
func (a *fakeActor) Alive() bool             { return !a.dead }
func (a *fakeActor) IsBot() bool             { return a.bot }
func (a *fakeActor) IsObserver() bool        { return a.observer }
func (a *fakeActor) WantsCompensation() bool { return !a.optOut }

func (a *fakeActor) SimulationTime() float64     { return a.sim }
func (a *fakeActor) SetSimulationTime(t float64) { a.sim = t }
func (a *fakeActor) AnimationTime() float64      { return a.anim }
func (a *fakeActor) SetAnimationTime(t float64)  { a.anim = t }

func (a *fakeActor) Origin() mgl64.Vec3               { return a.origin }
func (a *fakeActor) SetOrigin(o mgl64.Vec3)           { a.origin = o }
func (a *fakeActor) Angles() mgl64.Vec3               { return a.angles }
func (a *fakeActor) SetAngles(v mgl64.Vec3)           { a.angles = v }
func (a *fakeActor) Bounds() (mgl64.Vec3, mgl64.Vec3) { return a.mins, a.maxs }
func (a *fakeActor) SetBounds(mins, maxs mgl64.Vec3)  { a.mins, a.maxs = mins, maxs }

func (a *fakeActor) Sequence() (int, float64)           { return a.sequence, a.cycle }
func (a *fakeActor) SetSequence(seq int, cycle float64) { a.sequence, a.cycle = seq, cycle }

func (a *fakeActor) LayerCount() int                    { return len(a.layers) }
func (a *fakeActor) Layer(i int) Layer                  { return a.layers[i] }
func (a *fakeActor) SetLayer(i int, layer Layer)        { a.layers[i] = layer }
func (a *fakeActor) PoseParameterCount() int            { return len(a.pose) }
func (a *fakeActor) PoseParameter(i int) float64        { return a.pose[i] }
func (a *fakeActor) SetPoseParameter(i int, v float64)  { a.pose[i] = v }
func (a *fakeActor) BoneControllerCount() int           { return len(a.bones) }
func (a *fakeActor) BoneController(i int) float64       { return a.bones[i] }
func (a *fakeActor) SetBoneController(i int, v float64) { a.bones[i] = v }

func (a *fakeActor) InvalidateBoneCache() { a.flushed++ }

// renderActor carries render angles on top of fakeActor.
type renderActor struct {
	*fakeActor
	render mgl64.Vec3
}

func (a *renderActor) RenderAngles() mgl64.Vec3     { return a.render }
func (a *renderActor) SetRenderAngles(v mgl64.Vec3) { a.render = v }

type fakeRoster struct {
	actors []Actor
}

func newRoster(capacity int) *fakeRoster {
	return &fakeRoster{actors: make([]Actor, capacity)}
}

func (r *fakeRoster) Capacity() int { return len(r.actors) }

func (r *fakeRoster) ActorAt(slot Slot) (Actor, bool) {
	if slot < 0 || int(slot) >= len(r.actors) || r.actors[slot] == nil {
		return nil, false
	}
	return r.actors[slot], true
}

func (r *fakeRoster) add(actor Actor) {
	r.actors[actor.Slot()] = actor
}

type colliderFunc func(actor Actor, from, to mgl64.Vec3) Trace

func (f colliderFunc) Trace(actor Actor, from, to mgl64.Vec3) Trace {
	return f(actor, from, to)
}

type harness struct {
	manager   *Manager
	roster    *fakeRoster
	requester *fakeActor
	target    *fakeActor
	events    *sinks.MemorySink
	metrics   *logging.Metrics
}

func newHarness(cfg Config, deps Deps) *harness {
	h := &harness{
		roster:  newRoster(4),
		events:  sinks.NewMemorySink(),
		metrics: &logging.Metrics{},
	}
	h.requester = newFakeActor(0)
	h.requester.name = "shooter"
	h.target = newFakeActor(1)
	h.target.name = "target"
	h.roster.add(h.requester)
	h.roster.add(h.target)

	if deps.Roster == nil {
		deps.Roster = h.roster
	}
	deps.Publisher = h.events
	deps.Metrics = telemetry.WrapMetrics(h.metrics)
	h.manager = New(deps)
	if err := h.manager.Init(cfg); err != nil {
		panic(err)
	}
	return h
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HistoryTicks = 16
	cfg.MaxActors = 4
	cfg.Debug = true
	cfg.DebugEventsPerSecond = 0
	return cfg
}

// record pushes a history record for actor with sim and anim time t and the
// given x origin. The roster entry is recorded when it wraps actor.
func (h *harness) record(actor *fakeActor, tick uint64, t, x float64) {
	actor.sim, actor.anim = t, t
	actor.origin = mgl64.Vec3{x, 0, 0}
	live, ok := h.roster.ActorAt(actor.slot)
	if !ok {
		live = actor
	}
	h.manager.Record(live, tick)
}

func (h *harness) request(t float64) Request {
	return Request{Tick: 99, Time: TargetTime{Sim: t, Anim: t}}
}

func (h *harness) metric(key string) uint64 {
	return h.metrics.Snapshot()[key]
}
