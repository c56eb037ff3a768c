package sim

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Enqueue(Command) (bool, string)
	Pending() int
	Snapshot() Snapshot
	Run(stop <-chan struct{})
}

// EngineCore is the single-goroutine simulation the loop drives.
type EngineCore interface {
	Apply([]Command) error
	Step(tick uint64) StepResult
	Snapshot() Snapshot
	Deps() Deps
}

var _ EngineCore = (*Core)(nil)
