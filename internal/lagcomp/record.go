package lagcomp

import "github.com/go-gl/mathgl/mgl64"

const (
	// MaxLayers bounds the animation overlay layers captured per record.
	MaxLayers = 15
	// MaxPoseParameters bounds the pose parameters captured per record.
	MaxPoseParameters = 24
	// MaxBoneControllers bounds the encoded bone controllers captured per record.
	MaxBoneControllers = 4
)

// Flags carries the liveness bit of a history record and, on the scratch
// copies, the set of field groups a compensation window changed.
type Flags uint16

const (
	FlagNone  Flags = 0
	FlagAlive Flags = 1 << 0

	FlagOriginChanged      Flags = 1 << 8
	FlagAnglesChanged      Flags = 1 << 9
	FlagSizeChanged        Flags = 1 << 10
	FlagAnimationChanged   Flags = 1 << 11
	FlagPoseParamsChanged  Flags = 1 << 12
	FlagControllersChanged Flags = 1 << 13
)

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Layer is the snapshot of one animation overlay.
type Layer struct {
	Sequence int     `msgpack:"seq" json:"sequence"`
	Cycle    float64 `msgpack:"cycle" json:"cycle"`
	Weight   float64 `msgpack:"weight" json:"weight"`
	Order    int     `msgpack:"order" json:"order"`
	Flags    int     `msgpack:"flags" json:"flags"`
}

// Record is the compensatable state of one actor at one tick. Records are
// values; they have no identity beyond their slot in a Track.
type Record struct {
	Flags          Flags   `msgpack:"flags" json:"flags"`
	SimulationTime float64 `msgpack:"simTime" json:"simulationTime"`
	AnimationTime  float64 `msgpack:"animTime" json:"animationTime"`

	Origin mgl64.Vec3 `msgpack:"origin" json:"origin"`
	Angles mgl64.Vec3 `msgpack:"angles" json:"angles"`
	Mins   mgl64.Vec3 `msgpack:"mins" json:"mins"`
	Maxs   mgl64.Vec3 `msgpack:"maxs" json:"maxs"`

	Sequence int     `msgpack:"seq" json:"sequence"`
	Cycle    float64 `msgpack:"cycle" json:"cycle"`

	LayerCount int              `msgpack:"layerCount" json:"layerCount"`
	Layers     [MaxLayers]Layer `msgpack:"layers" json:"-"`

	PoseParameterCount int                        `msgpack:"poseCount" json:"poseParameterCount"`
	PoseParameters     [MaxPoseParameters]float64 `msgpack:"pose" json:"-"`

	BoneControllerCount int                         `msgpack:"boneCount" json:"boneControllerCount"`
	BoneControllers     [MaxBoneControllers]float64 `msgpack:"bones" json:"-"`

	HasRenderAngles bool       `msgpack:"hasRender" json:"hasRenderAngles"`
	RenderAngles    mgl64.Vec3 `msgpack:"render" json:"renderAngles"`
}

// Alive reports whether the record belongs to the actor's current life.
func (r *Record) Alive() bool {
	return r != nil && r.Flags.Has(FlagAlive)
}

// capture fills rec from the live actor state.
func capture(actor Actor, rec *Record) {
	*rec = Record{}
	if actor.Alive() {
		rec.Flags |= FlagAlive
	}
	rec.SimulationTime = actor.SimulationTime()
	rec.AnimationTime = actor.AnimationTime()
	rec.Angles = actor.Angles()
	rec.Origin = actor.Origin()
	rec.Mins, rec.Maxs = actor.Bounds()

	rec.LayerCount = clampCount(actor.LayerCount(), MaxLayers)
	for i := 0; i < rec.LayerCount; i++ {
		rec.Layers[i] = actor.Layer(i)
	}

	rec.Sequence, rec.Cycle = actor.Sequence()

	rec.PoseParameterCount = clampCount(actor.PoseParameterCount(), MaxPoseParameters)
	for i := 0; i < rec.PoseParameterCount; i++ {
		rec.PoseParameters[i] = actor.PoseParameter(i)
	}

	rec.BoneControllerCount = clampCount(actor.BoneControllerCount(), MaxBoneControllers)
	for i := 0; i < rec.BoneControllerCount; i++ {
		rec.BoneControllers[i] = actor.BoneController(i)
	}

	if angler, ok := actor.(RenderAngler); ok {
		rec.HasRenderAngles = true
		rec.RenderAngles = angler.RenderAngles()
	}
}

func clampCount(count, limit int) int {
	if count < 0 {
		return 0
	}
	if count > limit {
		return limit
	}
	return count
}
