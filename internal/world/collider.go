package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
)

// Collider sweeps actor hulls through the arena. Only obstacles are solid:
// moveActor lets actors pass through each other, so a position an actor
// held is always a position it may be put back to.
type Collider struct {
	world *World
}

// Collider returns the hull tracer for w.
func (w *World) Collider() *Collider {
	return &Collider{world: w}
}

// Trace sweeps actor's bounds from one point to another.
func (c *Collider) Trace(actor lagcomp.Actor, from, to mgl64.Vec3) lagcomp.Trace {
	mins, maxs := actor.Bounds()
	solids := c.solids()

	tr := lagcomp.Trace{Fraction: 1, End: to}
	delta := to.Sub(from)
	first := 1.0
	for _, solid := range solids {
		grown := solid.Expand(mins, maxs)
		if grown.Contains(from) {
			tr.StartSolid = true
			continue
		}
		if enter, ok := segmentEntry(from, delta, grown); ok && enter < first {
			first = enter
		}
	}

	if tr.StartSolid {
		tr.Fraction = 0
		tr.End = from
		tr.AllSolid = true
		for _, solid := range solids {
			if solid.Expand(mins, maxs).Contains(to) {
				return tr
			}
		}
		tr.AllSolid = false
		return tr
	}
	if first < 1 {
		tr.Fraction = math.Max(first, 0)
		tr.End = from.Add(delta.Mul(tr.Fraction))
	}
	return tr
}

func (c *Collider) solids() []Box {
	out := make([]Box, 0, len(c.world.obstacles))
	for _, o := range c.world.obstacles {
		out = append(out, o.Box())
	}
	return out
}
