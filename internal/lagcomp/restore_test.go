package lagcomp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

func snapshot(actor Actor) Record {
	var rec Record
	capture(actor, &rec)
	return rec
}

// historicState records a t=10 state that differs from the live one in every
// group, then moves the live actor to t=12.
func historicState(h *harness, actor *renderActor) {
	actor.angles = mgl64.Vec3{5, 90, 0}
	actor.mins, actor.maxs = mgl64.Vec3{-16, -16, 0}, mgl64.Vec3{16, 16, 54}
	actor.render = mgl64.Vec3{0, 45, 0}
	actor.sequence, actor.cycle = 2, 0.5
	actor.layers[0] = Layer{Sequence: 7, Cycle: 0.3, Weight: 0.8, Order: 1, Flags: 4}
	actor.pose[3] = 0.125
	actor.bones[0] = 0.75
	h.record(actor.fakeActor, 1, 10, 10)

	actor.angles = mgl64.Vec3{-5, 180, 0}
	actor.mins, actor.maxs = mgl64.Vec3{-16, -16, 0}, mgl64.Vec3{16, 16, 72}
	actor.render = mgl64.Vec3{0, 90, 0}
	actor.sequence, actor.cycle = 6, 0.9
	actor.layers[0] = Layer{Sequence: 1}
	actor.pose[3] = -1
	actor.bones[0] = 0.25
	h.record(actor.fakeActor, 2, 12, 40)
}

func newRenderHarness(cfg Config, deps Deps) (*harness, *renderActor) {
	h := newHarness(cfg, deps)
	actor := &renderActor{fakeActor: h.target}
	h.roster.add(actor)
	return h, actor
}

func TestCommitRestoresEveryField(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)
	before := snapshot(actor)

	req := h.request(10)
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.Equal(t, mgl64.Vec3{10, 0, 0}, actor.origin)
	require.Equal(t, mgl64.Vec3{5, 90, 0}, actor.angles)
	require.Equal(t, mgl64.Vec3{16, 16, 54}, actor.maxs)
	require.Equal(t, mgl64.Vec3{0, 45, 0}, actor.render)
	require.Equal(t, 2, actor.sequence)
	require.Equal(t, 0.125, actor.pose[3])

	changed := h.manager.Changed(actor.slot)
	for _, flag := range []Flags{FlagOriginChanged, FlagAnglesChanged, FlagSizeChanged, FlagAnimationChanged, FlagPoseParamsChanged, FlagControllersChanged} {
		require.True(t, changed.Has(flag), "flag %b", flag)
	}

	require.NoError(t, h.manager.Commit())
	require.Equal(t, before, snapshot(actor))
	require.Equal(t, uint64(1), h.metric(metricBacktracked))
	require.Len(t, h.events.OfType(loglagcomp.EventWindowCommitted), 1)
}

func TestCommitLeavesExternalChanges(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	actor.angles = mgl64.Vec3{0, 0, 45}
	actor.maxs = mgl64.Vec3{16, 16, 36}
	require.NoError(t, h.manager.Commit())

	require.Equal(t, mgl64.Vec3{0, 0, 45}, actor.angles)
	require.Equal(t, mgl64.Vec3{16, 16, 36}, actor.maxs)
	require.Equal(t, mgl64.Vec3{40, 0, 0}, actor.origin)
	require.Equal(t, 6, actor.sequence)
	require.Equal(t, uint64(2), h.metric(metricRestoreSkipped))
}

func TestCommitSizeResetToOriginal(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)
	mins, maxs := actor.Bounds()

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NotEqual(t, maxs, actor.maxs)
	actor.SetBounds(mins, maxs)
	require.NoError(t, h.manager.Commit())

	gotMins, gotMaxs := actor.Bounds()
	require.Equal(t, mins, gotMins)
	require.Equal(t, maxs, gotMaxs)
}

func TestCommitCarriesOriginDelta(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	actor.origin = actor.origin.Add(mgl64.Vec3{0, 5, 0})
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{40, 5, 0}, actor.origin)
}

func TestCommitPartialPlacement(t *testing.T) {
	var traces [][2]mgl64.Vec3
	collider := colliderFunc(func(actor Actor, from, to mgl64.Vec3) Trace {
		traces = append(traces, [2]mgl64.Vec3{from, to})
		if from == to {
			return Trace{StartSolid: true, End: from}
		}
		return Trace{Fraction: 0.5, End: lerpVec(from, to, 0.5)}
	})
	h, actor := newRenderHarness(testConfig(), Deps{Collider: collider})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NoError(t, h.manager.Commit())

	require.Len(t, traces, 2)
	require.Equal(t, [2]mgl64.Vec3{{40, 0, 0}, {40, 0, 0}}, traces[0])
	require.Equal(t, [2]mgl64.Vec3{{10, 0, 0}, {40, 0, 0}}, traces[1])
	require.InDelta(t, 10+30*0.5*DefaultFractionScale, actor.origin[0], 1e-9)
	require.Equal(t, uint64(1), h.metric(metricRestorePartial))

	blocked := h.events.OfType(loglagcomp.EventRestoreBlocked)
	require.Len(t, blocked, 1)
	payload := blocked[0].Payload.(loglagcomp.RestoreBlockedPayload)
	require.False(t, payload.Stuck)
}

func TestCommitLeavesStuckActor(t *testing.T) {
	collider := colliderFunc(func(actor Actor, from, to mgl64.Vec3) Trace {
		return Trace{AllSolid: true, End: from}
	})
	h, actor := newRenderHarness(testConfig(), Deps{Collider: collider})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{10, 0, 0}, actor.origin)
	require.Equal(t, mgl64.Vec3{-5, 180, 0}, actor.angles)
	require.Equal(t, 12.0, actor.sim)
	require.Equal(t, uint64(1), h.metric(metricRestoreFailed))
}

func TestCommitUsesTraceEnd(t *testing.T) {
	collider := colliderFunc(func(actor Actor, from, to mgl64.Vec3) Trace {
		return Trace{Fraction: 1, End: to.Add(mgl64.Vec3{0, 0, 1})}
	})
	h, actor := newRenderHarness(testConfig(), Deps{Collider: collider})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{40, 0, 1}, actor.origin)
}

func TestCommitSkipsForgottenActor(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	h.manager.Forget(actor.slot)
	h.roster.actors[actor.slot] = nil
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{10, 0, 0}, actor.origin)
	require.Zero(t, h.manager.Depth(actor.slot))
}

func TestScratchResetBetweenWindows(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NoError(t, h.manager.Commit())
	require.True(t, h.manager.Touched(actor.slot))

	h.requester.bot = true
	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.False(t, h.manager.Touched(actor.slot))
	require.Equal(t, FlagNone, h.manager.Changed(actor.slot))
	require.Equal(t, Record{}, h.manager.restore[actor.slot])
	require.NoError(t, h.manager.Commit())
}
