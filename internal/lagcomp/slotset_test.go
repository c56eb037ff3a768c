package lagcomp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotSet(t *testing.T) {
	set := NewSlotSet(130)
	require.True(t, set.Empty())

	for _, slot := range []Slot{0, 63, 64, 129} {
		set.Set(slot)
	}
	set.Set(130)
	set.Set(-1)
	require.Equal(t, 4, set.Count())
	require.True(t, set.Has(64))
	require.False(t, set.Has(130))

	var seen []Slot
	for slot, ok := set.Next(0); ok; slot, ok = set.Next(slot + 1) {
		seen = append(seen, slot)
	}
	require.Equal(t, []Slot{0, 63, 64, 129}, seen)

	set.Unset(63)
	next, ok := set.Next(1)
	require.True(t, ok)
	require.Equal(t, Slot(64), next)

	set.Reset()
	require.True(t, set.Empty())
	_, ok = set.Next(0)
	require.False(t, ok)

	var nilSet *SlotSet
	require.False(t, nilSet.Has(1))
	require.Zero(t, nilSet.Count())
}
