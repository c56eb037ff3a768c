// Package drill drives simulated lagged clients through the arena so the
// compensation path runs continuously without real players.
package drill

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
	"github.com/XutaxKamay/css-enhanced-waf/internal/sim"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/internal/world"
)

// ErrNoClients is returned when the config asks for an empty drill.
var ErrNoClients = errors.New("drill: no clients configured")

const (
	trailLength = 256
	// wanderScale stretches the noise so direction changes take a few seconds.
	wanderScale = 0.02
	crouchAbove = 0.55
)

// Config describes the simulated population.
type Config struct {
	Clients        int
	Bots           int
	MinLatency     time.Duration
	MaxLatency     time.Duration
	FireEveryTicks int
	Seed           int64
}

// Deps are the collaborators of a Driver.
type Deps struct {
	Logger telemetry.Logger
}

type client struct {
	actor   *world.Actor
	latency time.Duration
	noise   opensimplex.Noise
	phase   int
}

type sample struct {
	time   float64
	origin mgl64.Vec3
	alive  bool
}

// trail is the position history a client has been sent for one slot.
type trail struct {
	samples [trailLength]sample
	head    int
	count   int
}

func (t *trail) push(s sample) {
	t.samples[t.head] = s
	t.head = (t.head + 1) % trailLength
	if t.count < trailLength {
		t.count++
	}
}

func (t *trail) at(age int) sample {
	idx := t.head - 1 - age
	if idx < 0 {
		idx += trailLength
	}
	return t.samples[idx]
}

// seen interpolates where the client saw the slot at view time.
func (t *trail) seen(view float64) (mgl64.Vec3, bool) {
	if t.count == 0 {
		return mgl64.Vec3{}, false
	}
	newer := t.at(0)
	if !newer.alive {
		return mgl64.Vec3{}, false
	}
	for age := 1; age < t.count; age++ {
		older := t.at(age)
		if !older.alive {
			return mgl64.Vec3{}, false
		}
		if older.time <= view {
			span := newer.time - older.time
			if span <= 0 {
				return older.origin, true
			}
			f := (view - older.time) / span
			return older.origin.Add(newer.origin.Sub(older.origin).Mul(f)), true
		}
		newer = older
	}
	return newer.origin, true
}

func (t *trail) reset() {
	t.head = 0
	t.count = 0
}

// Driver issues the commands of every simulated client. It runs on the
// simulation goroutine.
type Driver struct {
	world   *world.World
	cfg     Config
	logger  telemetry.Logger
	clients []*client
	trails  []trail
}

// New spawns the drill population into w.
func New(w *world.World, cfg Config, deps Deps) (*Driver, error) {
	if cfg.Clients+cfg.Bots <= 0 {
		return nil, ErrNoClients
	}
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	if cfg.FireEveryTicks <= 0 {
		cfg.FireEveryTicks = 1
	}
	logger := telemetry.WithPrefix(deps.Logger, "[drill] ")

	d := &Driver{
		world:  w,
		cfg:    cfg,
		logger: logger,
		trails: make([]trail, w.Capacity()),
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < cfg.Clients+cfg.Bots; i++ {
		kind := world.KindPlayer
		name := fmt.Sprintf("client-%d", i)
		if i >= cfg.Clients {
			kind = world.KindBot
			name = fmt.Sprintf("bot-%d", i-cfg.Clients)
		}
		actor, err := w.Spawn(world.Spawn{Name: name, Kind: kind, Team: i % 2})
		if err != nil {
			return nil, fmt.Errorf("spawn %s: %w", name, err)
		}
		latency := cfg.MinLatency
		if span := cfg.MaxLatency - cfg.MinLatency; span > 0 {
			latency += time.Duration(rng.Int63n(int64(span)))
		}
		if kind == world.KindBot {
			latency = 0
		}
		d.clients = append(d.clients, &client{
			actor:   actor,
			latency: latency,
			noise:   opensimplex.New(cfg.Seed + int64(i)*7919),
			phase:   i * cfg.FireEveryTicks / (cfg.Clients + cfg.Bots),
		})
		logger.Printf("%s joined slot %d team %d latency %s", name, actor.Slot(), actor.Team(), latency)
	}
	return d, nil
}

// Latency reports the simulated latency of the client in slot.
func (d *Driver) Latency(slot lagcomp.Slot) (time.Duration, bool) {
	for _, c := range d.clients {
		if c.actor.Slot() == slot {
			return c.latency, true
		}
	}
	return 0, false
}

// Forget drops what clients saw of slot, as when it is vacated or the level
// resets.
func (d *Driver) Forget(slot lagcomp.Slot) {
	if slot >= 0 && int(slot) < len(d.trails) {
		d.trails[slot].reset()
	}
}

// Reset forgets every slot.
func (d *Driver) Reset() {
	for i := range d.trails {
		d.trails[i].reset()
	}
}

// Commands samples the world as of the last advanced tick and returns the
// commands the clients send for tick.
func (d *Driver) Commands(tick uint64) []sim.Command {
	d.observe()

	now := d.world.Now()
	cmds := make([]sim.Command, 0, len(d.clients)*2)
	for _, c := range d.clients {
		if !c.actor.Alive() {
			continue
		}
		cmds = append(cmds, d.move(tick, c))
		if (int(tick)+c.phase)%d.cfg.FireEveryTicks != 0 {
			continue
		}
		if cmd, ok := d.fire(tick, now, c); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func (d *Driver) observe() {
	now := d.world.Now()
	for _, a := range d.world.Actors() {
		slot := a.Slot()
		if int(slot) >= len(d.trails) {
			continue
		}
		d.trails[slot].push(sample{time: now, origin: a.Origin(), alive: a.Alive()})
	}
}

func (d *Driver) move(tick uint64, c *client) sim.Command {
	t := float64(tick) * wanderScale
	heading := c.noise.Eval2(t, 0) * 2 * math.Pi
	crouch := c.noise.Eval2(0, t) > crouchAbove
	return sim.Command{
		OriginTick: tick,
		ActorID:    c.actor.Slot(),
		Type:       sim.CommandMove,
		IssuedAt:   time.Now(),
		Move: &sim.MoveCommand{
			DX:     math.Cos(heading),
			DY:     math.Sin(heading),
			Crouch: crouch,
		},
	}
}

// fire aims at the nearest opponent where the client saw it. The simulation
// view time falls between ticks; the animation view time is the tick the
// client last received.
func (d *Driver) fire(tick uint64, now float64, c *client) (sim.Command, bool) {
	view := now - c.latency.Seconds()
	step := d.world.TickSeconds()
	seenTick := math.Floor(view/step + 1e-9)
	if seenTick < 1 {
		return sim.Command{}, false
	}

	eye := c.actor.Eye()
	var (
		best     mgl64.Vec3
		bestDist = math.Inf(1)
		transmit []lagcomp.Slot
	)
	for _, a := range d.world.Actors() {
		if a == c.actor || a.IsObserver() {
			continue
		}
		origin, ok := d.trails[a.Slot()].seen(view)
		if !ok {
			continue
		}
		transmit = append(transmit, a.Slot())
		if a.Team() == c.actor.Team() || !a.Alive() {
			continue
		}
		if dist := origin.Sub(c.actor.Origin()).Len(); dist < bestDist {
			bestDist = dist
			best = origin
		}
	}
	if math.IsInf(bestDist, 1) {
		return sim.Command{}, false
	}

	aim := world.AnglesTo(eye, best.Add(mgl64.Vec3{0, 0, world.HullCrouchHeight / 2}))
	return sim.Command{
		OriginTick: tick,
		ActorID:    c.actor.Slot(),
		Type:       sim.CommandFire,
		IssuedAt:   time.Now(),
		Fire: &sim.FireCommand{
			Angles: aim,
			Time: lagcomp.TargetTime{
				Sim:  view,
				Anim: d.world.TimeAt(uint64(seenTick)),
			},
			Transmit: transmit,
		},
	}, true
}
