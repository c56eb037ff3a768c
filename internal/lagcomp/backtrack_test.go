package lagcomp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

func TestBacktrackInterpolationScenario(t *testing.T) {
	cases := []struct {
		name         string
		target       float64
		wantX        float64
		interpolated uint64
	}{
		{name: "between records", target: 101.5, wantX: 1.5, interpolated: 1},
		{name: "older than history", target: 99, wantX: 0},
		{name: "exact newest", target: 103, wantX: 3},
		{name: "exact middle", target: 101, wantX: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(testConfig(), Deps{})
			for i := 0; i < 4; i++ {
				h.record(h.target, uint64(i), 100+float64(i), float64(i))
			}
			h.target.origin = mgl64.Vec3{10, 0, 0}
			h.target.sim = 104

			req := h.request(tc.target)
			req.Time.Anim = 103
			require.NoError(t, h.manager.Begin(h.requester, req))
			require.True(t, h.manager.Touched(h.target.slot))
			require.Equal(t, mgl64.Vec3{tc.wantX, 0, 0}, h.target.origin)
			require.Equal(t, tc.target, h.target.sim)

			require.NoError(t, h.manager.Commit())
			require.Equal(t, mgl64.Vec3{10, 0, 0}, h.target.origin)
			require.Equal(t, 104.0, h.target.sim)
			require.Equal(t, tc.interpolated, h.metric(metricInterpolated))
		})
	}
}

func TestBacktrackNeverExtrapolates(t *testing.T) {
	cases := []struct {
		target float64
		wantX  float64
	}{
		{target: 9, wantX: 10},
		{target: 13, wantX: 12},
		{target: 11, wantX: 11},
	}
	for _, tc := range cases {
		h := newHarness(testConfig(), Deps{})
		h.record(h.target, 1, 10, 10)
		h.record(h.target, 2, 12, 12)
		h.target.origin = mgl64.Vec3{50, 0, 0}

		req := h.request(tc.target)
		req.Time.Anim = 12
		require.NoError(t, h.manager.Begin(h.requester, req))
		require.Equal(t, mgl64.Vec3{tc.wantX, 0, 0}, h.target.origin, "target %v", tc.target)
		require.NoError(t, h.manager.Commit())
	}
}

func TestBacktrackStopsAtDeadHistory(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.target.dead = true
	h.record(h.target, 1, 10, 10)
	h.target.dead = false
	h.record(h.target, 2, 12, 12)
	h.record(h.target, 3, 14, 14)
	h.target.origin = mgl64.Vec3{20, 0, 0}

	for _, target := range []float64{11, 9} {
		req := h.request(target)
		req.Time.Anim = 14
		require.NoError(t, h.manager.Begin(h.requester, req))
		require.False(t, h.manager.Touched(h.target.slot), "target %v", target)
		require.Equal(t, mgl64.Vec3{20, 0, 0}, h.target.origin)
		require.NoError(t, h.manager.Commit())
	}
	require.Equal(t, uint64(2), h.metric(metricMissing))
	require.Len(t, h.events.OfType(loglagcomp.EventHistoryMissing), 2)

	req := h.request(13)
	req.Time.Anim = 12
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.True(t, h.manager.Touched(h.target.slot))
	require.Equal(t, mgl64.Vec3{13, 0, 0}, h.target.origin)
	require.NoError(t, h.manager.Commit())
}

func TestBeginSkipsActorWithoutHistory(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.target.origin = mgl64.Vec3{20, 0, 0}
	h.target.sim, h.target.anim = 14, 14

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.False(t, h.manager.Touched(h.target.slot))
	require.Equal(t, mgl64.Vec3{20, 0, 0}, h.target.origin)
	require.Equal(t, 14.0, h.target.sim)
	require.NoError(t, h.manager.Commit())

	require.Equal(t, mgl64.Vec3{20, 0, 0}, h.target.origin)
	require.Zero(t, h.metric(metricMissing))
	require.Empty(t, h.events.OfType(loglagcomp.EventHistoryMissing))
}

func TestBacktrackRequiresExactAnimationTime(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 10, 10)
	h.record(h.target, 2, 12, 12)
	h.target.origin = mgl64.Vec3{20, 0, 0}

	req := h.request(11)
	req.Time.Anim = 11
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.False(t, h.manager.Touched(h.target.slot))
	require.Equal(t, mgl64.Vec3{20, 0, 0}, h.target.origin)
	require.NoError(t, h.manager.Commit())

	missing := h.events.OfType(loglagcomp.EventHistoryMissing)
	require.Len(t, missing, 1)
	payload, ok := missing[0].Payload.(loglagcomp.HistoryMissingPayload)
	require.True(t, ok)
	require.Equal(t, "animation", payload.Lookup)
	require.NotEmpty(t, missing[0].TraceID)
}

func TestBacktrackAppliesAnimationFromAnimationRecord(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.target.sequence, h.target.cycle = 3, 0.25
	h.target.pose[0] = 0.5
	h.target.bones[1] = 7
	h.target.layers[2] = Layer{Sequence: 9, Cycle: 0.1, Weight: 1, Order: 2}
	h.record(h.target, 1, 10, 10)

	h.target.sequence, h.target.cycle = 4, 0.75
	h.target.pose[0] = -0.5
	h.target.bones[1] = 1
	h.target.layers[2] = Layer{Sequence: 1}
	h.record(h.target, 2, 12, 12)

	req := Request{Time: TargetTime{Sim: 12, Anim: 10}}
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.Equal(t, mgl64.Vec3{12, 0, 0}, h.target.origin)
	require.Equal(t, 3, h.target.sequence)
	require.Equal(t, 0.25, h.target.cycle)
	require.Equal(t, 0.5, h.target.pose[0])
	require.Equal(t, 7.0, h.target.bones[1])
	require.Equal(t, Layer{Sequence: 9, Cycle: 0.1, Weight: 1, Order: 2}, h.target.layers[2])

	changed := h.manager.Changed(h.target.slot)
	require.True(t, changed.Has(FlagAnimationChanged|FlagPoseParamsChanged|FlagControllersChanged))
	require.False(t, changed.Has(FlagOriginChanged), "origin already matched the record")
	require.NoError(t, h.manager.Commit())
	require.Equal(t, 4, h.target.sequence)
	require.Equal(t, -0.5, h.target.pose[0])
}

func TestBacktrackInterpolatesAnglesAlongShortArc(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.target.angles = mgl64.Vec3{0, 350, 0}
	h.record(h.target, 1, 10, 0)
	h.target.angles = mgl64.Vec3{0, 10, 0}
	h.record(h.target, 2, 12, 2)

	req := h.request(11)
	req.Time.Anim = 12
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.InDelta(t, 360, h.target.angles[1], 1e-9)
	require.Equal(t, mgl64.Vec3{1, 0, 0}, h.target.origin)
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{0, 10, 0}, h.target.angles)
}

func TestBeginSkipsRequesterKinds(t *testing.T) {
	cases := map[string]func(a *fakeActor){
		"bot":      func(a *fakeActor) { a.bot = true },
		"observer": func(a *fakeActor) { a.observer = true },
		"opt out":  func(a *fakeActor) { a.optOut = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(testConfig(), Deps{})
			h.record(h.target, 1, 10, 10)
			h.record(h.target, 2, 12, 12)
			mutate(h.requester)

			require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
			require.True(t, h.manager.InWindow())
			require.False(t, h.manager.Touched(h.target.slot))
			require.Equal(t, mgl64.Vec3{12, 0, 0}, h.target.origin)
			require.NoError(t, h.manager.Commit())
			require.Zero(t, h.metric(metricWindows))
		})
	}
}

func TestBeginHonoursEligibility(t *testing.T) {
	var seen []Slot
	deps := Deps{Eligible: func(requester, candidate Actor, req Request) bool {
		seen = append(seen, candidate.Slot())
		return req.Transmit.Has(candidate.Slot())
	}}
	h := newHarness(testConfig(), deps)
	other := newFakeActor(2)
	h.roster.add(other)
	for _, a := range []*fakeActor{h.target, other} {
		h.record(a, 1, 10, 10)
		h.record(a, 2, 12, 12)
	}

	transmit := NewSlotSet(4)
	transmit.Set(2)
	req := h.request(10)
	req.Transmit = &transmit
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.Equal(t, []Slot{1, 2}, seen)
	require.False(t, h.manager.Touched(1))
	require.True(t, h.manager.Touched(2))
	require.Equal(t, mgl64.Vec3{12, 0, 0}, h.target.origin)
	require.Equal(t, mgl64.Vec3{10, 0, 0}, other.origin)
	require.NoError(t, h.manager.Commit())
	require.Equal(t, mgl64.Vec3{12, 0, 0}, other.origin)
}

func TestBeginUsesPerSlotTimes(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	other := newFakeActor(2)
	h.roster.add(other)
	for _, a := range []*fakeActor{h.target, other} {
		h.record(a, 1, 10, 10)
		h.record(a, 2, 12, 12)
	}

	req := Request{
		Time:  TargetTime{Sim: 12, Anim: 12},
		Times: []TargetTime{{}, {Sim: 10, Anim: 10}},
	}
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.Equal(t, mgl64.Vec3{10, 0, 0}, h.target.origin)
	require.Equal(t, mgl64.Vec3{12, 0, 0}, other.origin)
	require.NoError(t, h.manager.Commit())
}

func TestBeginWindowLifecycleErrors(t *testing.T) {
	m := New(Deps{})
	require.ErrorIs(t, m.Begin(nil, Request{}), ErrNotInitialized)
	require.ErrorIs(t, m.Commit(), ErrNotInitialized)

	h := newHarness(testConfig(), Deps{})
	require.ErrorIs(t, h.manager.Commit(), ErrNoWindow)
	require.NoError(t, h.manager.Begin(h.requester, h.request(1)))
	require.ErrorIs(t, h.manager.Begin(h.requester, h.request(1)), ErrWindowOpen)
	require.True(t, h.manager.InWindow())
	require.NoError(t, h.manager.Commit())
	require.False(t, h.manager.InWindow())
	require.ErrorIs(t, h.manager.Commit(), ErrNoWindow)
}

func TestBacktrackFlushesBoneCache(t *testing.T) {
	cfg := testConfig()
	cfg.FlushBoneCache = true
	h := newHarness(cfg, Deps{})
	h.record(h.target, 1, 10, 10)
	h.record(h.target, 2, 12, 12)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.Equal(t, 1, h.target.flushed)
	require.NoError(t, h.manager.Commit())
}

func TestBacktrackReportsOutOfOrderHistory(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 12, 12)
	h.record(h.target, 2, 10, 10)
	h.target.origin = mgl64.Vec3{30, 0, 0}

	req := h.request(9)
	req.Time.Anim = 10
	require.NoError(t, h.manager.Begin(h.requester, req))
	require.False(t, h.manager.Touched(h.target.slot))
	require.Equal(t, mgl64.Vec3{30, 0, 0}, h.target.origin)
	require.NoError(t, h.manager.Commit())
	require.Len(t, h.events.OfType(loglagcomp.EventInvariantViolation), 1)
}

func TestLerpFraction(t *testing.T) {
	f, ok := lerpFraction(11, 10, 12)
	require.True(t, ok)
	require.Equal(t, 0.5, f)

	for _, tc := range [][3]float64{{10, 10, 12}, {12, 10, 12}, {9, 10, 12}, {11, 12, 12}, {11, 12, 10}} {
		_, ok := lerpFraction(tc[0], tc[1], tc[2])
		require.False(t, ok, "%v", tc)
	}
}
