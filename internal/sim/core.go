package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/internal/world"
	"github.com/XutaxKamay/css-enhanced-waf/logging/combat"
)

// ErrUnknownCommand reports a command type the core does not handle.
var ErrUnknownCommand = errors.New("sim: unknown command type")

// Shot is the resolved outcome of one fire command.
type Shot struct {
	Tick    uint64       `json:"tick"`
	Shooter lagcomp.Slot `json:"shooter"`
	// Target is the slot hit, or -1.
	Target      lagcomp.Slot `json:"target"`
	Distance    float64      `json:"distance"`
	Damage      int          `json:"damage,omitempty"`
	Killed      bool         `json:"killed,omitempty"`
	Compensated int          `json:"compensated"`
}

// Hit reports whether the shot struck an actor.
func (s Shot) Hit() bool {
	return s.Target >= 0
}

// StepResult summarizes one Step.
type StepResult struct {
	Tick  uint64
	Shots []Shot
}

// Core applies commands to the world and resolves fire commands inside lag
// compensation windows. It is driven from the loop goroutine only.
type Core struct {
	world *world.World
	lag   *lagcomp.Manager
	deps  Deps

	damage       int
	friendlyFire bool

	fires    []Command
	transmit lagcomp.SlotSet

	tick  uint64
	shots uint64
	hits  uint64
}

// NewCore binds w and its compensation manager.
func NewCore(w *world.World, lag *lagcomp.Manager, deps Deps) *Core {
	return &Core{
		world:        w,
		lag:          lag,
		deps:         deps.withDefaults(),
		damage:       world.DefaultShotDamage,
		friendlyFire: w.Config().FriendlyFire,
		transmit:     lagcomp.NewSlotSet(w.Capacity()),
	}
}

// Deps returns the injected dependencies.
func (c *Core) Deps() Deps {
	return c.deps
}

// World returns the simulated arena.
func (c *Core) World() *world.World {
	return c.world
}

// Apply stages movement and aim immediately and queues fire commands for the
// next Step. Commands for empty slots are dropped.
func (c *Core) Apply(cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		actor, ok := c.world.Actor(cmd.ActorID)
		if !ok {
			continue
		}
		switch cmd.Type {
		case CommandMove:
			if cmd.Move != nil {
				actor.SetIntent(mgl64.Vec3{cmd.Move.DX, cmd.Move.DY, 0})
				actor.SetCrouched(cmd.Move.Crouch)
			}
		case CommandAim:
			if cmd.Aim != nil {
				actor.Aim(cmd.Aim.Angles)
			}
		case CommandFire:
			if cmd.Fire != nil {
				c.fires = append(c.fires, cmd)
			}
		default:
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type))
		}
	}
	return errors.Join(errs...)
}

// Step resolves the queued fire commands against the history recorded up to
// the previous tick, then advances the world and records the new tick.
func (c *Core) Step(tick uint64) StepResult {
	result := StepResult{Tick: tick}
	for i := range c.fires {
		if shot, ok := c.fire(tick, c.fires[i]); ok {
			result.Shots = append(result.Shots, shot)
		}
		c.fires[i] = Command{}
	}
	c.fires = c.fires[:0]

	c.world.Advance(tick)
	c.lag.RecordAll(tick)
	c.tick = tick
	return result
}

func (c *Core) fire(tick uint64, cmd Command) (Shot, bool) {
	shooter, ok := c.world.Actor(cmd.ActorID)
	if !ok || !shooter.Alive() {
		return Shot{}, false
	}
	fire := cmd.Fire
	shooter.Aim(fire.Angles)

	req := lagcomp.Request{Tick: tick, Time: fire.Time, Times: fire.Times}
	if fire.Transmit != nil {
		c.transmit.Reset()
		for _, slot := range fire.Transmit {
			c.transmit.Set(slot)
		}
		req.Transmit = &c.transmit
	}

	if err := c.lag.Begin(shooter, req); err != nil {
		c.deps.Logger.Printf("[sim] begin compensation for %s: %v", shooter.Name(), err)
		return Shot{}, false
	}
	resolved := c.world.ResolveShot(shooter, fire.Range)
	if err := c.lag.Commit(); err != nil {
		c.deps.Logger.Printf("[sim] commit compensation for %s: %v", shooter.Name(), err)
	}

	shot := Shot{
		Tick:        tick,
		Shooter:     shooter.Slot(),
		Target:      -1,
		Distance:    resolved.Distance,
		Compensated: c.compensated(),
	}
	c.shots++

	distance := fire.Range
	if distance <= 0 {
		distance = world.ShotRange
	}
	payload := combat.ShotPayload{
		Distance:    resolved.Distance,
		Range:       distance,
		Compensated: shot.Compensated,
		TargetTime:  fire.Time.Sim,
	}

	if !resolved.Hit() {
		combat.ShotMiss(context.Background(), c.deps.Publisher, tick, lagcomp.EntityRef(shooter), payload, nil)
		return shot, true
	}

	target := resolved.Target
	shot.Target = target.Slot()
	c.hits++
	if c.friendlyFire || target.Team() != shooter.Team() {
		killed, err := c.world.Damage(target.Slot(), c.damage)
		if err == nil {
			shot.Damage = c.damage
			shot.Killed = killed
		}
	}
	payload.Damage = shot.Damage
	payload.Killed = shot.Killed
	combat.ShotHit(context.Background(), c.deps.Publisher, tick, lagcomp.EntityRef(shooter), lagcomp.EntityRef(target), payload, nil)
	return shot, true
}

func (c *Core) compensated() int {
	n := 0
	for i := 0; i < c.lag.Slots(); i++ {
		if c.lag.Touched(lagcomp.Slot(i)) {
			n++
		}
	}
	return n
}

// Reset respawns the arena and drops every track, as on a level change.
func (c *Core) Reset() {
	c.world.Reset()
	c.lag.Clear()
}

// Forget drops the history of a slot that was vacated.
func (c *Core) Forget(slot lagcomp.Slot) {
	c.lag.Forget(slot)
}

// Snapshot captures the diagnostic view of the world.
func (c *Core) Snapshot() Snapshot {
	snapshot := Snapshot{
		Tick:  c.tick,
		Time:  c.world.Now(),
		Shots: c.shots,
		Hits:  c.hits,
	}
	for _, a := range c.world.Actors() {
		origin := a.Origin()
		snapshot.Actors = append(snapshot.Actors, ActorSnapshot{
			Slot:    int(a.Slot()),
			Name:    a.Name(),
			Kind:    a.Kind().String(),
			Team:    a.Team(),
			Alive:   a.Alive(),
			Health:  a.Health(),
			Origin:  [3]float64{origin[0], origin[1], origin[2]},
			History: c.lag.Depth(a.Slot()),
		})
	}
	return snapshot
}
