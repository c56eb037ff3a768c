package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
)

// Kind is the role of an actor in the arena.
type Kind int

const (
	KindPlayer Kind = iota
	KindBot
	KindObserver
)

func (k Kind) String() string {
	switch k {
	case KindBot:
		return "bot"
	case KindObserver:
		return "observer"
	default:
		return "player"
	}
}

// Model counts of the arena's player model.
const (
	modelLayers          = 13
	modelPoseParameters  = 12
	modelBoneControllers = 2
)

// Pose parameter indices driven by movement.
const (
	poseMoveYaw   = 0
	poseMoveSpeed = 1
	poseBodyPitch = 2
	poseBodyYaw   = 3
)

const (
	sequenceIdle   = 1
	sequenceRun    = 2
	sequenceCrouch = 3
)

// Actor is a simulated player. It implements lagcomp.Actor along with the
// render angle and bone cache capabilities.
type Actor struct {
	slot   lagcomp.Slot
	name   string
	kind   Kind
	team   int
	optOut bool

	alive     bool
	health    int
	deadTicks int

	simTime, animTime float64

	origin, angles mgl64.Vec3
	renderAngles   mgl64.Vec3
	mins, maxs     mgl64.Vec3
	intent         mgl64.Vec3
	speed          float64
	crouched       bool

	sequence int
	cycle    float64
	layers   [modelLayers]lagcomp.Layer
	pose     [modelPoseParameters]float64
	bones    [modelBoneControllers]float64

	boneCacheFlushes int
}

func newActor(slot lagcomp.Slot, spec Spawn) *Actor {
	a := &Actor{
		slot:   slot,
		name:   spec.Name,
		kind:   spec.Kind,
		team:   spec.Team,
		optOut: spec.OptOut,
		speed:  DefaultMoveSpeed,
	}
	a.respawn(spec.Origin, spec.Angles)
	return a
}

func (a *Actor) respawn(origin, angles mgl64.Vec3) {
	a.alive = a.kind != KindObserver
	a.health = DefaultMaxHealth
	a.deadTicks = 0
	a.origin = origin
	a.angles = angles
	a.renderAngles = mgl64.Vec3{0, angles[1], 0}
	a.crouched = false
	a.mins = mgl64.Vec3{-HullHalfWidth, -HullHalfWidth, 0}
	a.maxs = mgl64.Vec3{HullHalfWidth, HullHalfWidth, HullHeight}
	a.sequence = sequenceIdle
	a.cycle = 0
	for i := range a.layers {
		a.layers[i] = lagcomp.Layer{Order: i}
	}
}

func (a *Actor) Slot() lagcomp.Slot      { return a.slot }
func (a *Actor) Name() string            { return a.name }
func (a *Actor) Kind() Kind              { return a.kind }
func (a *Actor) Team() int               { return a.team }
func (a *Actor) Alive() bool             { return a.alive }
func (a *Actor) Health() int             { return a.health }
func (a *Actor) IsBot() bool             { return a.kind == KindBot }
func (a *Actor) IsObserver() bool        { return a.kind == KindObserver }
func (a *Actor) WantsCompensation() bool { return !a.optOut }

func (a *Actor) SimulationTime() float64     { return a.simTime }
func (a *Actor) SetSimulationTime(t float64) { a.simTime = t }
func (a *Actor) AnimationTime() float64      { return a.animTime }
func (a *Actor) SetAnimationTime(t float64)  { a.animTime = t }

func (a *Actor) Origin() mgl64.Vec3           { return a.origin }
func (a *Actor) SetOrigin(origin mgl64.Vec3)  { a.origin = origin }
func (a *Actor) Angles() mgl64.Vec3           { return a.angles }
func (a *Actor) SetAngles(angles mgl64.Vec3)  { a.angles = angles }
func (a *Actor) RenderAngles() mgl64.Vec3     { return a.renderAngles }
func (a *Actor) SetRenderAngles(v mgl64.Vec3) { a.renderAngles = v }

func (a *Actor) Bounds() (mgl64.Vec3, mgl64.Vec3) { return a.mins, a.maxs }

func (a *Actor) SetBounds(mins, maxs mgl64.Vec3) {
	a.mins, a.maxs = mins, maxs
}

// Box returns the world space hull.
func (a *Actor) Box() Box {
	return BoxAt(a.origin, a.mins, a.maxs)
}

// Eye returns the point shots are fired from.
func (a *Actor) Eye() mgl64.Vec3 {
	height := EyeHeight
	if a.crouched {
		height = CrouchEyeHeight
	}
	return a.origin.Add(mgl64.Vec3{0, 0, height})
}

func (a *Actor) Sequence() (int, float64) { return a.sequence, a.cycle }

func (a *Actor) SetSequence(sequence int, cycle float64) {
	a.sequence, a.cycle = sequence, cycle
}

func (a *Actor) LayerCount() int                        { return len(a.layers) }
func (a *Actor) Layer(i int) lagcomp.Layer              { return a.layers[i] }
func (a *Actor) SetLayer(i int, layer lagcomp.Layer)    { a.layers[i] = layer }
func (a *Actor) PoseParameterCount() int                { return len(a.pose) }
func (a *Actor) PoseParameter(i int) float64            { return a.pose[i] }
func (a *Actor) SetPoseParameter(i int, value float64)  { a.pose[i] = value }
func (a *Actor) BoneControllerCount() int               { return len(a.bones) }
func (a *Actor) BoneController(i int) float64           { return a.bones[i] }
func (a *Actor) SetBoneController(i int, value float64) { a.bones[i] = value }
func (a *Actor) InvalidateBoneCache()                   { a.boneCacheFlushes++ }
func (a *Actor) BoneCacheFlushes() int                  { return a.boneCacheFlushes }

// SetIntent sets the horizontal direction the actor walks in. A zero vector
// stops it.
func (a *Actor) SetIntent(dir mgl64.Vec3) {
	a.intent = mgl64.Vec3{dir[0], dir[1], 0}
}

// Aim points the actor at angles.
func (a *Actor) Aim(angles mgl64.Vec3) {
	a.angles = angles
}

// SetCrouched switches between the standing and crouched hull.
func (a *Actor) SetCrouched(crouched bool) {
	a.crouched = crouched
	if crouched {
		a.maxs[2] = HullCrouchHeight
	} else {
		a.maxs[2] = HullHeight
	}
}

// SetOptOut toggles the client's compensation opt out.
func (a *Actor) SetOptOut(optOut bool) {
	a.optOut = optOut
}

// animate advances the animation state by dt seconds of movement.
func (a *Actor) animate(dt float64, moved mgl64.Vec3) {
	speed := math.Hypot(moved[0], moved[1]) / math.Max(dt, 1e-9)
	switch {
	case a.crouched:
		a.sequence = sequenceCrouch
	case speed > 1:
		a.sequence = sequenceRun
	default:
		a.sequence = sequenceIdle
	}
	a.cycle = math.Mod(a.cycle+dt, 1)

	a.layers[0].Sequence = a.sequence
	a.layers[0].Cycle = a.cycle
	a.layers[0].Weight = math.Min(speed/a.speed, 1)
	a.layers[1].Cycle = math.Mod(a.layers[1].Cycle+dt*0.5, 1)
	a.layers[1].Weight = 1

	if speed > 1 {
		a.pose[poseMoveYaw] = math.Remainder(mgl64.RadToDeg(math.Atan2(moved[1], moved[0]))-a.angles[1], 360)
	}
	a.pose[poseMoveSpeed] = speed
	a.pose[poseBodyPitch] = a.angles[0]
	a.pose[poseBodyYaw] = math.Remainder(a.angles[1]-a.renderAngles[1], 360)
	a.bones[0] = a.cycle

	a.renderAngles[1] = a.angles[1]
}
