package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
	"github.com/XutaxKamay/css-enhanced-waf/logging/lifecycle"
)

var (
	// ErrFull is returned by Spawn when every slot is taken.
	ErrFull = errors.New("world: no free slot")
	// ErrNoActor is returned for operations on an empty slot.
	ErrNoActor = errors.New("world: slot is empty")
)

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Publisher logging.Publisher
	RNG       RNGFactory
	// OnRemove runs after an actor leaves its slot.
	OnRemove func(slot lagcomp.Slot)
}

// Spawn describes an actor to place into the arena.
type Spawn struct {
	Name   string
	Kind   Kind
	Team   int
	OptOut bool
	// Origin overrides the team spawn point when non-zero.
	Origin mgl64.Vec3
	Angles mgl64.Vec3
}

// World is the slot arena of actors plus the static geometry they move in.
// It implements lagcomp.Roster.
type World struct {
	config Config
	seed   string

	publisher  logging.Publisher
	rngFactory RNGFactory
	onRemove   func(slot lagcomp.Slot)

	actors    []*Actor
	obstacles []Obstacle
	spawned   int

	tick uint64
	now  float64
}

// New constructs a world with normalized configuration and generated
// obstacles.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	w := &World{
		config:     normalized,
		seed:       normalized.Seed,
		publisher:  publisher,
		rngFactory: factory,
		onRemove:   deps.OnRemove,
		actors:     make([]*Actor, normalized.MaxActors),
	}
	w.obstacles = GenerateObstacles(w.SubsystemRNG("obstacles"), normalized, w.spawnAnchors())
	return w, nil
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config {
	return w.config
}

// SubsystemRNG returns a deterministic RNG for label.
func (w *World) SubsystemRNG(label string) *rand.Rand {
	return w.rngFactory(w.seed, label)
}

// Capacity is the number of slots.
func (w *World) Capacity() int {
	return len(w.actors)
}

// ActorAt resolves slot for the compensation engine.
func (w *World) ActorAt(slot lagcomp.Slot) (lagcomp.Actor, bool) {
	a, ok := w.Actor(slot)
	if !ok {
		return nil, false
	}
	return a, true
}

// Actor returns the concrete actor in slot.
func (w *World) Actor(slot lagcomp.Slot) (*Actor, bool) {
	if slot < 0 || int(slot) >= len(w.actors) || w.actors[slot] == nil {
		return nil, false
	}
	return w.actors[slot], true
}

// Actors returns the occupied slots in slot order.
func (w *World) Actors() []*Actor {
	out := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// Count reports the number of occupied slots.
func (w *World) Count() int {
	n := 0
	for _, a := range w.actors {
		if a != nil {
			n++
		}
	}
	return n
}

// Obstacles returns the static geometry.
func (w *World) Obstacles() []Obstacle {
	return w.obstacles
}

// Tick is the last tick advanced to.
func (w *World) Tick() uint64 {
	return w.tick
}

// Now is the simulation time of the last advanced tick.
func (w *World) Now() float64 {
	return w.now
}

// TimeAt is the simulation time stamped on actors during tick.
func (w *World) TimeAt(tick uint64) float64 {
	return float64(tick) * w.config.TickSeconds
}

// TickSeconds is the simulated time per tick.
func (w *World) TickSeconds() float64 {
	return w.config.TickSeconds
}

// Spawn places an actor into the lowest free slot.
func (w *World) Spawn(spec Spawn) (*Actor, error) {
	slot := -1
	for i, a := range w.actors {
		if a == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrFull
	}
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("%s-%d", spec.Kind, slot)
	}
	if spec.Origin == (mgl64.Vec3{}) {
		spec.Origin = w.spawnPoint(spec.Team, w.spawned)
		spec.Angles = w.spawnAngles(spec.Team)
	}
	w.spawned++

	a := newActor(lagcomp.Slot(slot), spec)
	a.simTime, a.animTime = w.now, w.now
	w.actors[slot] = a

	lifecycle.ActorSpawned(context.Background(), w.publisher, w.tick, lagcomp.EntityRef(a), lifecycle.ActorSpawnedPayload{
		Slot:   slot,
		Team:   a.team,
		Origin: []float64{a.origin[0], a.origin[1], a.origin[2]},
	}, nil)
	return a, nil
}

// Remove empties slot.
func (w *World) Remove(slot lagcomp.Slot, reason string) error {
	a, ok := w.Actor(slot)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, slot)
	}
	w.actors[slot] = nil
	if w.onRemove != nil {
		w.onRemove(slot)
	}
	lifecycle.ActorRemoved(context.Background(), w.publisher, w.tick, lagcomp.EntityRef(a), lifecycle.ActorRemovedPayload{
		Slot:   int(slot),
		Reason: reason,
	}, nil)
	return nil
}

// Damage applies amount to the actor in slot and reports whether it died.
func (w *World) Damage(slot lagcomp.Slot, amount int) (bool, error) {
	a, ok := w.Actor(slot)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNoActor, slot)
	}
	if !a.alive {
		return false, nil
	}
	a.health -= amount
	if a.health > 0 {
		return false, nil
	}
	a.health = 0
	a.alive = false
	a.intent = mgl64.Vec3{}
	return true, nil
}

// Advance moves every actor one tick forward and stamps the tick's time on
// them. Dead actors respawn after RespawnTicks.
func (w *World) Advance(tick uint64) {
	dt := w.config.TickSeconds
	w.tick = tick
	w.now = w.TimeAt(tick)
	for _, a := range w.actors {
		if a == nil {
			continue
		}
		switch {
		case a.kind == KindObserver:
		case !a.alive:
			a.deadTicks++
			if a.deadTicks >= RespawnTicks {
				a.respawn(w.spawnPoint(a.team, int(a.slot)), w.spawnAngles(a.team))
			}
		default:
			moved := moveActor(a, dt, w.obstacles, w.config.Width, w.config.Depth)
			a.animate(dt, moved)
		}
		a.simTime = w.now
		a.animTime = w.now
	}
}

// Reset respawns every actor, as on a level change.
func (w *World) Reset() {
	w.obstacles = GenerateObstacles(w.SubsystemRNG("obstacles"), w.config, w.spawnAnchors())
	for _, a := range w.actors {
		if a == nil {
			continue
		}
		a.respawn(w.spawnPoint(a.team, int(a.slot)), w.spawnAngles(a.team))
		a.simTime, a.animTime = w.now, w.now
	}
	lifecycle.LevelReset(context.Background(), w.publisher, w.tick, lifecycle.LevelResetPayload{Actors: w.Count()}, nil)
}

// spawnPoint lines team members up along their side of the arena.
func (w *World) spawnPoint(team, index int) mgl64.Vec3 {
	x := SpawnMargin * 2
	if team%2 == 1 {
		x = w.config.Width - SpawnMargin*2
	}
	row := float64(index%8) - 3.5
	y := Clamp(w.config.Depth/2+row*HullHalfWidth*4, SpawnMargin, w.config.Depth-SpawnMargin)
	return mgl64.Vec3{x, y, 0}
}

func (w *World) spawnAngles(team int) mgl64.Vec3 {
	if team%2 == 1 {
		return mgl64.Vec3{0, 180, 0}
	}
	return mgl64.Vec3{}
}

func (w *World) spawnAnchors() []mgl64.Vec3 {
	return []mgl64.Vec3{w.spawnPoint(0, 3), w.spawnPoint(1, 3)}
}
