package lagcomp

import "github.com/go-gl/mathgl/mgl64"

// Slot is the stable arena index of an actor.
type Slot int

// Transform exposes the geometric live state of an actor.
type Transform interface {
	Origin() mgl64.Vec3
	// SetOrigin may relink the actor into the host's spatial index.
	SetOrigin(origin mgl64.Vec3)
	Angles() mgl64.Vec3
	SetAngles(angles mgl64.Vec3)
	// Bounds returns the pre-scale bounding box.
	Bounds() (mins, maxs mgl64.Vec3)
	SetBounds(mins, maxs mgl64.Vec3)
}

// Animator exposes the animation pose of an actor. Counts are model dependent
// and may be zero when the actor has no model.
type Animator interface {
	Sequence() (sequence int, cycle float64)
	SetSequence(sequence int, cycle float64)

	LayerCount() int
	Layer(i int) Layer
	SetLayer(i int, layer Layer)

	PoseParameterCount() int
	PoseParameter(i int) float64
	SetPoseParameter(i int, value float64)

	BoneControllerCount() int
	BoneController(i int) float64
	SetBoneController(i int, value float64)
}

// Actor is the live state accessor the engine records and rewrites.
type Actor interface {
	Transform
	Animator

	Slot() Slot
	Name() string
	Alive() bool
	IsBot() bool
	IsObserver() bool
	// WantsCompensation reports the per-client opt-in to having commands
	// compensated.
	WantsCompensation() bool

	SimulationTime() float64
	SetSimulationTime(t float64)
	AnimationTime() float64
	SetAnimationTime(t float64)
}

// RenderAngler is implemented by actor kinds that carry an auxiliary render
// orientation next to their absolute angles.
type RenderAngler interface {
	RenderAngles() mgl64.Vec3
	SetRenderAngles(angles mgl64.Vec3)
}

// BoneCacheInvalidator is implemented by actors caching computed bone
// transforms that must be dropped after a backtrack.
type BoneCacheInvalidator interface {
	InvalidateBoneCache()
}

// Roster resolves slots to live actors.
type Roster interface {
	// Capacity is the maximum number of concurrent actors in the simulation.
	Capacity() int
	ActorAt(slot Slot) (Actor, bool)
}

// Eligibility decides whether candidate is compensated for requester's
// command. It is game policy and opaque to the engine.
type Eligibility func(requester, candidate Actor, req Request) bool

// Trace is the result of sweeping an actor's box between two points.
type Trace struct {
	StartSolid bool
	AllSolid   bool
	// Fraction of the sweep completed before the first blocking contact.
	Fraction float64
	End      mgl64.Vec3
}

// Solid reports whether the sweep started in, or stayed inside, geometry.
func (t Trace) Solid() bool {
	return t.StartSolid || t.AllSolid
}

// Collider sweeps actor's bounding box from one point to another.
type Collider interface {
	Trace(actor Actor, from, to mgl64.Vec3) Trace
}
