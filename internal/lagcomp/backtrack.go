package lagcomp

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

// TargetTime is the moment a client saw an actor: the interpolated simulation
// time drives the transform, the animation time selects the pose.
type TargetTime struct {
	Sim  float64 `json:"sim"`
	Anim float64 `json:"anim"`
}

// Request is the compensation context of one command.
type Request struct {
	Tick uint64
	// Time applies to every slot without an entry in Times.
	Time TargetTime
	// Times holds per-slot target times indexed by slot.
	Times []TargetTime
	// Transmit is the set of slots the requester's client was sent. Nil means
	// unknown; the eligibility policy decides what that implies.
	Transmit *SlotSet
}

// TimeFor returns the target time of slot.
func (r Request) TimeFor(slot Slot) TargetTime {
	if slot >= 0 && int(slot) < len(r.Times) {
		return r.Times[slot]
	}
	return r.Time
}

// Begin opens a compensation window for requester's command and rewinds every
// eligible actor to the time the request names. Every Begin must be paired
// with a Commit before the next one.
func (m *Manager) Begin(requester Actor, req Request) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if m.open {
		return ErrWindowOpen
	}
	m.resetScratch()
	m.open = true
	m.tick = req.Tick
	m.win = window{tick: req.Tick, requester: requester}

	if !m.active() || requester == nil {
		return nil
	}
	if requester.IsBot() || requester.IsObserver() || !requester.WantsCompensation() {
		return nil
	}
	m.deps.Metrics.Add(metricWindows, 1)

	self := requester.Slot()
	limit := m.deps.Roster.Capacity()
	if limit > len(m.tracks) {
		limit = len(m.tracks)
	}
	for i := 0; i < limit; i++ {
		slot := Slot(i)
		if slot == self {
			continue
		}
		candidate, ok := m.deps.Roster.ActorAt(slot)
		if !ok || candidate == nil {
			continue
		}
		if m.deps.Eligible != nil && !m.deps.Eligible(requester, candidate, req) {
			continue
		}
		m.backtrack(candidate, req.TimeFor(slot))
	}
	return nil
}

// resetScratch zeroes the snapshots of the slots the previous window touched.
func (m *Manager) resetScratch() {
	for slot, ok := m.touched.Next(0); ok; slot, ok = m.touched.Next(slot + 1) {
		m.restore[slot] = Record{}
		m.change[slot] = Record{}
	}
	m.touched.Reset()
	m.needRestore = false
}

// pose is the historical state an actor is rewound to.
type pose struct {
	origin, angles mgl64.Vec3
	mins, maxs     mgl64.Vec3

	hasRenderAngles bool
	renderAngles    mgl64.Vec3
}

func poseOf(rec *Record) pose {
	return pose{
		origin:          rec.Origin,
		angles:          rec.Angles,
		mins:            rec.Mins,
		maxs:            rec.Maxs,
		hasRenderAngles: rec.HasRenderAngles,
		renderAngles:    rec.RenderAngles,
	}
}

// simulationMatch is the outcome of a simulation time lookup. newer is set
// only when record is older than the target and a newer record bounds it.
type simulationMatch struct {
	record *Record
	newer  *Record
}

func (m *Manager) backtrack(actor Actor, target TargetTime) {
	slot := actor.Slot()
	if !m.inRange(slot) {
		return
	}
	track := &m.tracks[slot]
	if track.Len() == 0 {
		return
	}

	sim, ok := m.findSimulation(actor, track, target.Sim)
	if !ok {
		m.historyMissing(actor, "simulation", target.Sim, track.Len())
		return
	}
	anim, ok := findAnimation(track, target.Anim)
	if !ok {
		m.historyMissing(actor, "animation", target.Anim, track.Len())
		return
	}

	var want pose
	if sim.newer != nil {
		if f, ok := lerpFraction(target.Sim, sim.record.SimulationTime, sim.newer.SimulationTime); ok {
			want = interpolate(sim.record, sim.newer, f)
			m.win.stats.interpolated++
		} else {
			want = poseOf(nearest(target.Sim, sim.record, sim.newer))
		}
	} else {
		want = poseOf(sim.record)
	}

	m.apply(actor, slot, want, anim, target)
}

// findSimulation scans newest to oldest. An exact timestamp yields that record
// alone, otherwise the first older record is paired with the record scanned
// just before it. Running off the end yields the oldest record. Dead records
// and out of order timestamps end the scan with nothing found.
func (m *Manager) findSimulation(actor Actor, track *Track, target float64) (simulationMatch, bool) {
	var newer *Record
	n := track.Len()
	for age := 0; age < n; age++ {
		rec, _ := track.At(age)
		if !rec.Alive() {
			return simulationMatch{}, false
		}
		if newer != nil && rec.SimulationTime > newer.SimulationTime {
			m.invariantViolation(actor, age, rec.SimulationTime, newer.SimulationTime)
			return simulationMatch{}, false
		}
		if rec.SimulationTime == target {
			return simulationMatch{record: rec}, true
		}
		if rec.SimulationTime < target {
			return simulationMatch{record: rec, newer: newer}, true
		}
		newer = rec
	}
	if newer == nil {
		return simulationMatch{}, false
	}
	return simulationMatch{record: newer}, true
}

// findAnimation returns the record whose animation time equals target.
func findAnimation(track *Track, target float64) (*Record, bool) {
	n := track.Len()
	for age := 0; age < n; age++ {
		rec, _ := track.At(age)
		if !rec.Alive() {
			return nil, false
		}
		if rec.AnimationTime == target {
			return rec, true
		}
	}
	return nil, false
}

// lerpFraction returns where target sits between older and newer. It fails
// unless the fraction lies strictly inside (0, 1).
func lerpFraction(target, older, newer float64) (float64, bool) {
	span := newer - older
	if !(span > 0) {
		return 0, false
	}
	f := (target - older) / span
	if !(f > 0 && f < 1) {
		return 0, false
	}
	return f, true
}

func nearest(target float64, older, newer *Record) *Record {
	if math.Abs(newer.SimulationTime-target) < math.Abs(target-older.SimulationTime) {
		return newer
	}
	return older
}

func interpolate(older, newer *Record, f float64) pose {
	p := pose{
		origin: lerpVec(older.Origin, newer.Origin, f),
		angles: lerpAngles(older.Angles, newer.Angles, f),
		mins:   lerpVec(older.Mins, newer.Mins, f),
		maxs:   lerpVec(older.Maxs, newer.Maxs, f),
	}
	if older.HasRenderAngles && newer.HasRenderAngles {
		p.hasRenderAngles = true
		p.renderAngles = lerpAngles(older.RenderAngles, newer.RenderAngles, f)
	} else if newer.HasRenderAngles {
		p.hasRenderAngles = true
		p.renderAngles = newer.RenderAngles
	} else if older.HasRenderAngles {
		p.hasRenderAngles = true
		p.renderAngles = older.RenderAngles
	}
	return p
}

func lerpVec(a, b mgl64.Vec3, f float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// lerpAngles interpolates each component in degrees along the shorter arc.
func lerpAngles(a, b mgl64.Vec3, f float64) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range out {
		out[i] = a[i] + math.Remainder(b[i]-a[i], 360)*f
	}
	return out
}

// apply writes want and the animation state of anim onto actor, keeping the
// overwritten values in the restore snapshot and the written ones in the
// change snapshot.
func (m *Manager) apply(actor Actor, slot Slot, want pose, anim *Record, target TargetTime) {
	restore := &m.restore[slot]
	change := &m.change[slot]

	restore.SimulationTime = actor.SimulationTime()
	restore.AnimationTime = actor.AnimationTime()

	var flags Flags

	if angler, ok := actor.(RenderAngler); ok && want.hasRenderAngles {
		restore.HasRenderAngles = true
		restore.RenderAngles = angler.RenderAngles()
		angler.SetRenderAngles(want.renderAngles)
		change.HasRenderAngles = true
		change.RenderAngles = want.renderAngles
	}

	if live := actor.Angles(); live.Sub(want.angles).LenSqr() > 0 {
		flags |= FlagAnglesChanged
		restore.Angles = live
		actor.SetAngles(want.angles)
		change.Angles = want.angles
	}

	if mins, maxs := actor.Bounds(); mins != want.mins || maxs != want.maxs {
		flags |= FlagSizeChanged
		restore.Mins, restore.Maxs = mins, maxs
		actor.SetBounds(want.mins, want.maxs)
		change.Mins, change.Maxs = want.mins, want.maxs
	}

	// Origin last: moving may relink the actor in spatial indexes.
	if live := actor.Origin(); live.Sub(want.origin).LenSqr() > 0 {
		flags |= FlagOriginChanged
		restore.Origin = live
		actor.SetOrigin(want.origin)
		change.Origin = want.origin
	}

	// Animation groups are always written and always marked.
	flags |= FlagAnimationChanged
	restore.Sequence, restore.Cycle = actor.Sequence()
	actor.SetSequence(anim.Sequence, anim.Cycle)
	change.Sequence, change.Cycle = anim.Sequence, anim.Cycle

	layers := clampCount(actor.LayerCount(), MaxLayers)
	restore.LayerCount, change.LayerCount = layers, layers
	for i := 0; i < layers; i++ {
		restore.Layers[i] = actor.Layer(i)
		actor.SetLayer(i, anim.Layers[i])
		change.Layers[i] = anim.Layers[i]
	}

	flags |= FlagPoseParamsChanged
	params := clampCount(actor.PoseParameterCount(), MaxPoseParameters)
	restore.PoseParameterCount, change.PoseParameterCount = params, params
	for i := 0; i < params; i++ {
		restore.PoseParameters[i] = actor.PoseParameter(i)
		actor.SetPoseParameter(i, anim.PoseParameters[i])
		change.PoseParameters[i] = anim.PoseParameters[i]
	}

	flags |= FlagControllersChanged
	controllers := clampCount(actor.BoneControllerCount(), MaxBoneControllers)
	restore.BoneControllerCount, change.BoneControllerCount = controllers, controllers
	for i := 0; i < controllers; i++ {
		restore.BoneControllers[i] = actor.BoneController(i)
		actor.SetBoneController(i, anim.BoneControllers[i])
		change.BoneControllers[i] = anim.BoneControllers[i]
	}

	actor.SetSimulationTime(target.Sim)
	if m.cfg.FlushBoneCache {
		if cache, ok := actor.(BoneCacheInvalidator); ok {
			cache.InvalidateBoneCache()
		}
	}

	m.touched.Set(slot)
	m.needRestore = true
	restore.Flags = flags
	change.Flags = flags
	m.win.stats.backtracked++
}

func (m *Manager) traceID() string {
	if m.win.traceID == "" {
		m.win.traceID = uuid.NewString()
	}
	return m.win.traceID
}

func (m *Manager) historyMissing(actor Actor, lookup string, target float64, records int) {
	m.win.stats.missing++
	if !m.debugEnabled() {
		return
	}
	loglagcomp.HistoryMissing(context.Background(), m.deps.Publisher, m.win.tick, m.traceID(), EntityRef(m.win.requester), EntityRef(actor), loglagcomp.HistoryMissingPayload{
		Lookup:     lookup,
		TargetTime: target,
		Records:    records,
	}, nil)
}

func (m *Manager) invariantViolation(actor Actor, age int, timestamp, previous float64) {
	if !m.cfg.Debug {
		return
	}
	loglagcomp.InvariantViolation(context.Background(), m.deps.Publisher, m.win.tick, m.traceID(), EntityRef(actor), loglagcomp.InvariantViolationPayload{
		Age:       age,
		Timestamp: timestamp,
		Previous:  previous,
	}, nil)
}

// EntityRef describes actor for log events.
func EntityRef(actor Actor) logging.EntityRef {
	if actor == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	kind := logging.EntityKindPlayer
	switch {
	case actor.IsObserver():
		kind = logging.EntityKindObserver
	case actor.IsBot():
		kind = logging.EntityKindBot
	}
	return logging.EntityRef{ID: actor.Name(), Kind: kind}
}
