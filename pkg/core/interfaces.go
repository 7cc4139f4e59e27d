package core

import (
	"context"
	"io"
)

// Environment defines the rules and mechanics of a sequential decision process
type Environment interface {
	// Reset reinitializes all state and returns the initial observation
	Reset() Observation
	// Step applies an action and advances the environment one timestep
	Step(action Action) (StepResult, error)
	// Render writes a textual dump of the current state
	Render(w io.Writer) error
	// Close releases any resources held by the environment
	Close() error
	// ActionSpace describes the legal actions
	ActionSpace() Discrete
	// ObservationSpace describes the bounds of emitted observations
	ObservationSpace() Box
}

// Agent selects actions from observations
type Agent interface {
	ID() string
	Act(ctx context.Context, obs Observation) (Action, error)
}

// Observer is implemented by agents that want feedback after each step
type Observer interface {
	Observe(ctx context.Context, t Transition) error
}

// Experiment coordinates the running of experiments
type Experiment interface {
	// Run executes the experiment according to configuration
	Run(ctx context.Context) error
	// GetStatus returns current experiment status
	GetStatus() ExperimentStatus
}
