package sim

// ActorSnapshot is the diagnostic view of one occupied slot.
type ActorSnapshot struct {
	Slot    int        `json:"slot"`
	Name    string     `json:"name"`
	Kind    string     `json:"kind"`
	Team    int        `json:"team"`
	Alive   bool       `json:"alive"`
	Health  int        `json:"health"`
	Origin  [3]float64 `json:"origin"`
	History int        `json:"history"`
}

// Snapshot captures the state exposed to non-simulation callers.
type Snapshot struct {
	Tick   uint64          `json:"tick"`
	Time   float64         `json:"time"`
	Actors []ActorSnapshot `json:"actors,omitempty"`
	Shots  uint64          `json:"shots"`
	Hits   uint64          `json:"hits"`
}
