package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Box is an axis aligned box in world space.
type Box struct {
	Min, Max mgl64.Vec3
}

// BoxAt places the extents mins/maxs at origin.
func BoxAt(origin, mins, maxs mgl64.Vec3) Box {
	return Box{Min: origin.Add(mins), Max: origin.Add(maxs)}
}

// Overlaps reports strict interpenetration; touching faces do not count.
func (b Box) Overlaps(o Box) bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] >= o.Max[i] || b.Max[i] <= o.Min[i] {
			return false
		}
	}
	return true
}

// Expand grows b by the extents of a box swept through it.
func (b Box) Expand(mins, maxs mgl64.Vec3) Box {
	return Box{Min: b.Min.Sub(maxs), Max: b.Max.Sub(mins)}
}

// Contains reports whether p lies strictly inside b.
func (b Box) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] <= b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// segmentEntry intersects the segment from + t*delta, t in [0, 1], with b and
// returns the entry parameter.
func segmentEntry(from, delta mgl64.Vec3, b Box) (float64, bool) {
	enter, exit := 0.0, 1.0
	for i := 0; i < 3; i++ {
		if delta[i] == 0 {
			if from[i] <= b.Min[i] || from[i] >= b.Max[i] {
				return 0, false
			}
			continue
		}
		t0 := (b.Min[i] - from[i]) / delta[i]
		t1 := (b.Max[i] - from[i]) / delta[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		enter = math.Max(enter, t0)
		exit = math.Min(exit, t1)
		if enter >= exit {
			return 0, false
		}
	}
	return enter, true
}

// Forward converts pitch/yaw/roll degrees into a unit direction. Positive
// pitch looks down.
func Forward(angles mgl64.Vec3) mgl64.Vec3 {
	pitch := mgl64.DegToRad(angles[0])
	yaw := mgl64.DegToRad(angles[1])
	cp := math.Cos(pitch)
	return mgl64.Vec3{cp * math.Cos(yaw), cp * math.Sin(yaw), -math.Sin(pitch)}
}

// AnglesTo returns the pitch/yaw pointing from one point to another.
func AnglesTo(from, to mgl64.Vec3) mgl64.Vec3 {
	d := to.Sub(from)
	yaw := mgl64.RadToDeg(math.Atan2(d[1], d[0]))
	pitch := -mgl64.RadToDeg(math.Atan2(d[2], math.Hypot(d[0], d[1])))
	return mgl64.Vec3{pitch, yaw, 0}
}
