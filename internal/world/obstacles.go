package world

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	ObstacleMinSize   = 64.0
	ObstacleMaxSize   = 256.0
	ObstacleMinHeight = 48.0
	ObstacleMaxHeight = 160.0
	SpawnSafeRadius   = 160.0
)

// Obstacle is a static crate standing on the ground plane.
type Obstacle struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// Box returns the obstacle's world space box.
func (o Obstacle) Box() Box {
	return Box{
		Min: mgl64.Vec3{o.X, o.Y, 0},
		Max: mgl64.Vec3{o.X + o.Width, o.Y + o.Depth, o.Height},
	}
}

// ObstaclesOverlap checks for footprint overlap with optional padding.
func ObstaclesOverlap(a, b Obstacle, padding float64) bool {
	return a.X-padding < b.X+b.Width+padding &&
		a.X+a.Width+padding > b.X-padding &&
		a.Y-padding < b.Y+b.Depth+padding &&
		a.Y+a.Depth+padding > b.Y-padding
}

// footprintNear reports whether a circle around p touches the footprint of o.
func footprintNear(p mgl64.Vec3, radius float64, o Obstacle) bool {
	dx := p[0] - Clamp(p[0], o.X, o.X+o.Width)
	dy := p[1] - Clamp(p[1], o.Y, o.Y+o.Depth)
	return dx*dx+dy*dy < radius*radius
}

// GenerateObstacles scatters count crates, keeping spawn points and gaps
// between crates clear.
func GenerateObstacles(rng *rand.Rand, cfg Config, spawns []mgl64.Vec3) []Obstacle {
	count := cfg.Obstacles
	if count <= 0 || rng == nil {
		return nil
	}

	obstacles := make([]Obstacle, 0, count)
	attempts := 0
	maxAttempts := count * 20
	for len(obstacles) < count && attempts < maxAttempts {
		attempts++

		width := RandomRange(rng, ObstacleMinSize, ObstacleMaxSize)
		depth := RandomRange(rng, ObstacleMinSize, ObstacleMaxSize)
		maxX := cfg.Width - SpawnMargin - width
		maxY := cfg.Depth - SpawnMargin - depth
		if maxX <= SpawnMargin || maxY <= SpawnMargin {
			break
		}

		candidate := Obstacle{
			ID:     fmt.Sprintf("crate-%d", len(obstacles)+1),
			X:      RandomRange(rng, SpawnMargin, maxX),
			Y:      RandomRange(rng, SpawnMargin, maxY),
			Width:  width,
			Depth:  depth,
			Height: RandomRange(rng, ObstacleMinHeight, ObstacleMaxHeight),
		}

		blocked := false
		for _, spawn := range spawns {
			if footprintNear(spawn, SpawnSafeRadius, candidate) {
				blocked = true
				break
			}
		}
		for _, obs := range obstacles {
			if blocked {
				break
			}
			if ObstaclesOverlap(candidate, obs, HullHalfWidth*2) {
				blocked = true
			}
		}
		if blocked {
			continue
		}

		obstacles = append(obstacles, candidate)
	}
	return obstacles
}
