package lagcomp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadSlotRoundTrip(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)
	want := h.manager.History(actor.slot)

	blob, err := h.manager.SaveSlot(actor.slot)
	require.NoError(t, err)
	require.Equal(t, BlobVersion, blob[0])

	other := newHarness(testConfig(), Deps{})
	require.NoError(t, other.manager.LoadSlot(actor.slot, blob))
	require.Equal(t, want, other.manager.History(actor.slot))
	require.True(t, want[0].HasRenderAngles)

	// the restored tick guard still rejects a duplicate record
	other.record(other.target, 2, 99, 99)
	require.Equal(t, len(want), other.manager.Depth(actor.slot))
}

func TestLoadSlotRejectsDamage(t *testing.T) {
	h := newHarness(testConfig(), Deps{})
	h.record(h.target, 1, 1, 1)
	blob, err := h.manager.SaveSlot(h.target.slot)
	require.NoError(t, err)

	flipped := append([]byte(nil), blob...)
	flipped[len(flipped)-1] ^= 0xff
	require.ErrorIs(t, h.manager.LoadSlot(h.target.slot, flipped), ErrBlobCorrupt)

	versioned := append([]byte(nil), blob...)
	versioned[0] = BlobVersion + 1
	require.ErrorIs(t, h.manager.LoadSlot(h.target.slot, versioned), ErrBlobVersion)

	require.ErrorIs(t, h.manager.LoadSlot(h.target.slot, blob[:10]), ErrBlobCorrupt)
	require.ErrorIs(t, h.manager.LoadSlot(9, blob), ErrSlotRange)
	require.ErrorIs(t, h.manager.LoadSlot(h.requester.slot, blob), ErrBlobCorrupt)
	require.Zero(t, h.manager.Depth(h.requester.slot))
	_, err = h.manager.SaveSlot(-1)
	require.ErrorIs(t, err, ErrSlotRange)

	require.NoError(t, h.manager.LoadSlot(h.target.slot, blob))
	require.Equal(t, 1, h.manager.Depth(h.target.slot))
}

func TestSaveLoadSlotCarriesWindowScratch(t *testing.T) {
	h, actor := newRenderHarness(testConfig(), Deps{})
	historicState(h, actor)
	require.NoError(t, h.manager.Begin(h.requester, h.request(10)))
	require.NoError(t, h.manager.Commit())
	require.True(t, h.manager.Touched(actor.slot))

	blob, err := h.manager.SaveSlot(actor.slot)
	require.NoError(t, err)

	other := newHarness(testConfig(), Deps{})
	require.NoError(t, other.manager.LoadSlot(actor.slot, blob))
	require.True(t, other.manager.Touched(actor.slot))
	require.Equal(t, h.manager.Changed(actor.slot), other.manager.Changed(actor.slot))
	require.Equal(t, h.manager.restore[actor.slot], other.manager.restore[actor.slot])
	require.Equal(t, h.manager.change[actor.slot], other.manager.change[actor.slot])

	// an untouched blob clears a stale touched bit
	idle, err := newHarness(testConfig(), Deps{}).manager.SaveSlot(actor.slot)
	require.NoError(t, err)
	require.NoError(t, h.manager.LoadSlot(actor.slot, idle))
	require.False(t, h.manager.Touched(actor.slot))
	require.Equal(t, FlagNone, h.manager.Changed(actor.slot))

	require.NoError(t, other.manager.Begin(other.requester, other.request(10)))
	require.ErrorIs(t, other.manager.LoadSlot(actor.slot, blob), ErrWindowOpen)
	require.NoError(t, other.manager.Commit())
}
