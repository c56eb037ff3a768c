package lagcomp

// Record appends the live state of actor to its track. It runs once per actor
// per tick after the actor has simulated; a second call for the same tick is
// ignored. While compensation is disabled, or the simulation holds a single
// actor, all history is dropped instead. Nothing is recorded while a window
// is open, since the roster then holds rewound state.
func (m *Manager) Record(actor Actor, tick uint64) {
	if !m.initialized || actor == nil || m.open {
		return
	}
	m.tick = tick
	if !m.active() {
		m.clearHistory(reasonDisabled)
		return
	}
	slot := actor.Slot()
	if !m.inRange(slot) {
		return
	}
	if m.lastTick[slot] == tick+1 {
		return
	}
	m.lastTick[slot] = tick + 1
	capture(actor, m.tracks[slot].claim())
	m.cleared = false
}

// RecordAll records every occupied slot of the roster.
func (m *Manager) RecordAll(tick uint64) {
	if !m.initialized || m.deps.Roster == nil || m.open {
		return
	}
	if !m.active() {
		m.tick = tick
		m.clearHistory(reasonDisabled)
		return
	}
	limit := m.deps.Roster.Capacity()
	if limit > len(m.tracks) {
		limit = len(m.tracks)
	}
	for i := 0; i < limit; i++ {
		if actor, ok := m.deps.Roster.ActorAt(Slot(i)); ok && actor != nil {
			m.Record(actor, tick)
		}
	}
}
