package lagcomp

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	loglagcomp "github.com/XutaxKamay/css-enhanced-waf/logging/lagcomp"
)

// Placement is the outcome of moving an actor back after a window.
type Placement int

const (
	// PlacedExact means the actor reached the wanted origin.
	PlacedExact Placement = iota
	// PlacedPartial means the actor moved part of the way toward it.
	PlacedPartial
	// PlacedStuck means the actor was left where the window put it.
	PlacedStuck
)

// placeActor moves actor to wanted unless that would put it inside geometry.
// A blocked target is approached from the current origin and the actor stops
// FractionScale of the way to the first contact; when even that sweep starts
// solid the actor stays put.
func (m *Manager) placeActor(actor Actor, wanted mgl64.Vec3) Placement {
	if m.deps.Collider == nil {
		actor.SetOrigin(wanted)
		return PlacedExact
	}
	tr := m.deps.Collider.Trace(actor, wanted, wanted)
	if !tr.Solid() {
		actor.SetOrigin(tr.End)
		return PlacedExact
	}

	live := actor.Origin()
	tr = m.deps.Collider.Trace(actor, live, wanted)
	if tr.Solid() {
		m.win.stats.failed++
		m.restoreBlocked(actor, wanted, live, 0, true)
		return PlacedStuck
	}
	fraction := tr.Fraction * m.cfg.FractionScale
	placed := lerpVec(live, wanted, fraction)
	actor.SetOrigin(placed)
	m.win.stats.partial++
	m.restoreBlocked(actor, wanted, placed, fraction, false)
	return PlacedPartial
}

func (m *Manager) restoreBlocked(actor Actor, wanted, placed mgl64.Vec3, fraction float64, stuck bool) {
	if !m.debugEnabled() {
		return
	}
	loglagcomp.RestoreBlocked(context.Background(), m.deps.Publisher, m.win.tick, m.traceID(), EntityRef(m.win.requester), EntityRef(actor), loglagcomp.RestoreBlockedPayload{
		Wanted:   wanted[:],
		Placed:   placed[:],
		Fraction: fraction,
		Stuck:    stuck,
	}, nil)
}
