package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/XutaxKamay/css-enhanced-waf/internal/lagcomp"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandMove CommandType = "Move"
	CommandAim  CommandType = "Aim"
	CommandFire CommandType = "Fire"
)

// MoveCommand carries the desired walking direction.
type MoveCommand struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Crouch bool    `json:"crouch,omitempty"`
}

// AimCommand points the actor.
type AimCommand struct {
	Angles mgl64.Vec3 `json:"angles"`
}

// FireCommand is a hitscan shot resolved against the world as the client saw
// it.
type FireCommand struct {
	// Angles is the aim the client fired with.
	Angles mgl64.Vec3 `json:"angles"`
	// Range of the shot; zero uses the world default.
	Range float64 `json:"range,omitempty"`
	// Time is the client's view time of every actor without an entry in Times.
	Time  lagcomp.TargetTime   `json:"time"`
	Times []lagcomp.TargetTime `json:"times,omitempty"`
	// Transmit lists the slots the client had been sent. Nil means unknown.
	Transmit []lagcomp.Slot `json:"transmit,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64       `json:"originTick"`
	ActorID    lagcomp.Slot `json:"actorId"`
	Type       CommandType  `json:"type"`
	IssuedAt   time.Time    `json:"issuedAt"`
	Move       *MoveCommand `json:"move,omitempty"`
	Aim        *AimCommand  `json:"aim,omitempty"`
	Fire       *FireCommand `json:"fire,omitempty"`
}
