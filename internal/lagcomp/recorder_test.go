package lagcomp

import (
	"testing"

	"github.com/stretchr/testify/require"

	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

func TestRecordOncePerTick(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 7, 1, 1)
	h.record(h.target, 7, 2, 2)
	require.Equal(t, 1, h.manager.Depth(h.target.slot))

	newest, ok := h.manager.tracks[h.target.slot].Newest()
	require.True(t, ok)
	require.Equal(t, 1.0, newest.SimulationTime)

	h.record(h.target, 8, 2, 2)
	require.Equal(t, 2, h.manager.Depth(h.target.slot))
}

func TestRecordIgnoredInsideWindow(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 10, 10)
	h.record(h.target, 2, 12, 40)

	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.Equal(t, 10.0, h.target.origin[0])
	h.manager.Record(h.target, 3)
	h.manager.RecordAll(3)
	require.Equal(t, 2, h.manager.Depth(h.target.slot))
	newest, _ := h.manager.tracks[h.target.slot].Newest()
	require.Equal(t, 12.0, newest.SimulationTime)

	require.NoError(t, h.manager.Commit())
	h.manager.Record(h.target, 3)
	require.Equal(t, 3, h.manager.Depth(h.target.slot))
	newest, _ = h.manager.tracks[h.target.slot].Newest()
	require.Equal(t, 40.0, newest.Origin[0])
}

func TestRecordClampsModelCounts(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.target.layers = make([]Layer, MaxLayers+3)
	h.target.pose = make([]float64, MaxPoseParameters+1)
	h.target.bones = nil
	h.record(h.target, 1, 1, 1)

	history := h.manager.History(h.target.slot)
	require.Len(t, history, 1)
	require.Equal(t, MaxLayers, history[0].LayerCount)
	require.Equal(t, MaxPoseParameters, history[0].PoseParameterCount)
	require.Zero(t, history[0].BoneControllerCount)
	require.True(t, history[0].Alive())
	require.False(t, history[0].HasRenderAngles)
}

func TestRecordClearsWhenDisabled(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 1, 1)
	h.record(h.target, 2, 2, 2)
	require.Equal(t, 2, h.manager.Depth(h.target.slot))

	h.manager.SetEnabled(false)
	h.record(h.target, 3, 3, 3)
	h.record(h.target, 4, 4, 4)
	require.Zero(t, h.manager.Depth(h.target.slot))
	require.Len(t, h.events.OfType(loglagcomp.EventHistoryCleared), 1)
	require.Equal(t, uint64(1), h.metric(metricCleared))

	require.NoError(t, h.manager.Begin(h.requester, h.request(1)))
	require.False(t, h.manager.Touched(h.target.slot))
	require.NoError(t, h.manager.Commit())

	h.manager.SetEnabled(true)
	h.record(h.target, 5, 5, 5)
	require.Equal(t, 1, h.manager.Depth(h.target.slot))
}

func TestRecordClearsWithSingleSlotRoster(t *testing.T) {
	roster := newRoster(1)
	h := newHarness(testConfig(), Deps{Roster: roster})
	actor := newFakeActor(0)
	roster.add(actor)
	h.manager.Record(actor, 1)
	require.Zero(t, h.manager.Depth(0))
}

func TestRecordAll(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.manager.RecordAll(1)
	h.manager.RecordAll(1)
	require.Equal(t, 1, h.manager.Depth(h.requester.slot))
	require.Equal(t, 1, h.manager.Depth(h.target.slot))
	require.Zero(t, h.manager.Depth(2))
}

func TestClearAndTeardown(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 1, 1)

	h.manager.Clear()
	require.Zero(t, h.manager.Depth(h.target.slot))
	cleared := h.events.OfType(loglagcomp.EventHistoryCleared)
	require.Len(t, cleared, 1)
	require.Equal(t, "reset", cleared[0].Payload.(loglagcomp.HistoryClearedPayload).Reason)

	h.record(h.target, 2, 2, 2)
	h.manager.Teardown()
	require.Zero(t, h.manager.Slots())
	require.ErrorIs(t, h.manager.Begin(h.requester, h.request(1)), ErrNotInitialized)

	require.NoError(t, h.manager.Init(testConfig()))
	require.Equal(t, 4, h.manager.Slots())
	require.Zero(t, h.manager.Depth(h.target.slot))
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FractionScale = 0
	require.ErrorIs(t, New(Deps{}).Init(cfg), ErrInvalidConfig)

	cfg = testConfig()
	cfg.HistoryTicks = 0
	require.ErrorIs(t, New(Deps{}).Init(cfg), ErrInvalidConfig)
}
