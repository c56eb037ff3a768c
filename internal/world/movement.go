package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// moveActor advances a by its intent for dt seconds, stopping at obstacle
// faces and the arena edges. It returns the distance moved.
func moveActor(a *Actor, dt float64, obstacles []Obstacle, width, depth float64) mgl64.Vec3 {
	start := a.origin
	dx, dy := a.intent[0], a.intent[1]
	if length := math.Hypot(dx, dy); length != 0 {
		dx /= length
		dy /= length
	}
	speed := a.speed
	if a.crouched {
		speed *= 0.34
	}
	deltaX := dx * speed * dt
	deltaY := dy * speed * dt

	x, y := a.origin[0], a.origin[1]
	newX := Clamp(x+deltaX, HullHalfWidth, width-HullHalfWidth)
	if deltaX != 0 {
		newX = resolveAxisMoveX(x, y, newX, deltaX, obstacles, width)
	}
	newY := Clamp(y+deltaY, HullHalfWidth, depth-HullHalfWidth)
	if deltaY != 0 {
		newY = resolveAxisMoveY(newX, y, newY, deltaY, obstacles, depth)
	}

	a.origin[0], a.origin[1] = newX, newY
	return a.origin.Sub(start)
}

// resolveAxisMoveX applies horizontal movement while stopping at obstacle edges.
func resolveAxisMoveX(oldX, oldY, proposedX, deltaX float64, obstacles []Obstacle, width float64) float64 {
	newX := proposedX
	for _, obs := range obstacles {
		minY := obs.Y - HullHalfWidth
		maxY := obs.Y + obs.Depth + HullHalfWidth
		if oldY <= minY || oldY >= maxY {
			continue
		}

		if deltaX > 0 {
			boundary := obs.X - HullHalfWidth
			if oldX <= boundary && newX > boundary {
				newX = boundary
			}
		} else if deltaX < 0 {
			boundary := obs.X + obs.Width + HullHalfWidth
			if oldX >= boundary && newX < boundary {
				newX = boundary
			}
		}
	}
	return Clamp(newX, HullHalfWidth, width-HullHalfWidth)
}

// resolveAxisMoveY applies depth-axis movement while stopping at obstacle edges.
func resolveAxisMoveY(oldX, oldY, proposedY, deltaY float64, obstacles []Obstacle, depth float64) float64 {
	newY := proposedY
	for _, obs := range obstacles {
		minX := obs.X - HullHalfWidth
		maxX := obs.X + obs.Width + HullHalfWidth
		if oldX <= minX || oldX >= maxX {
			continue
		}

		if deltaY > 0 {
			boundary := obs.Y - HullHalfWidth
			if oldY <= boundary && newY > boundary {
				newY = boundary
			}
		} else if deltaY < 0 {
			boundary := obs.Y + obs.Depth + HullHalfWidth
			if oldY >= boundary && newY < boundary {
				newY = boundary
			}
		}
	}
	return Clamp(newY, HullHalfWidth, depth-HullHalfWidth)
}
