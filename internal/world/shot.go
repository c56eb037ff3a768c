package world

import "github.com/go-gl/mathgl/mgl64"

// ShotRange is how far a shot travels by default.
const ShotRange = 4096.0

// Shot is the outcome of a hitscan trace.
type Shot struct {
	Target   *Actor
	Point    mgl64.Vec3
	Distance float64
}

// Hit reports whether the shot struck an actor.
func (s Shot) Hit() bool {
	return s.Target != nil
}

// ResolveShot traces a ray of length distance from shooter's eye along its
// aim against the current actor hulls. Obstacles stop the ray.
func (w *World) ResolveShot(shooter *Actor, distance float64) Shot {
	if distance <= 0 {
		distance = ShotRange
	}
	from := shooter.Eye()
	delta := Forward(shooter.angles).Mul(distance)

	best := 1.0
	for _, o := range w.obstacles {
		if t, ok := segmentEntry(from, delta, o.Box()); ok && t < best {
			best = t
		}
	}

	var target *Actor
	for _, a := range w.actors {
		if a == nil || a == shooter || !a.alive || a.kind == KindObserver {
			continue
		}
		if t, ok := segmentEntry(from, delta, a.Box()); ok && t < best {
			best = t
			target = a
		}
	}

	return Shot{
		Target:   target,
		Point:    from.Add(delta.Mul(best)),
		Distance: best * distance,
	}
}
