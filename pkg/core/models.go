package core

import (
	"fmt"
	"time"
)

// Action is a discrete irrigation level chosen by an agent.
type Action int

// Observation is what an agent sees after each reset or step.
type Observation struct {
	SoilMoisture float64 // stored water fraction in [0, 1]
	GrowthStage  int     // 0 early, 1 mid, 2 late
	Weather      int     // 0 dry, 1 rainy
}

// Vector returns the observation as the float32 triple agents trained
// against the Box observation space expect.
func (o Observation) Vector() []float32 {
	return []float32{float32(o.SoilMoisture), float32(o.GrowthStage), float32(o.Weather)}
}

// Values returns the observation as float64 components in space order.
func (o Observation) Values() []float64 {
	return []float64{o.SoilMoisture, float64(o.GrowthStage), float64(o.Weather)}
}

func (o Observation) String() string {
	return fmt.Sprintf("(%.2f, %d, %d)", o.SoilMoisture, o.GrowthStage, o.Weather)
}

// Info carries auxiliary diagnostics from a step. It is currently always empty.
type Info map[string]any

// StepResult is the outcome of a single environment step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Info        Info
}

// Discrete describes an action space of N values {0, ..., N-1}.
type Discrete struct {
	N int
}

// Contains reports whether a is a member of the space.
func (d Discrete) Contains(a Action) bool {
	return a >= 0 && int(a) < d.N
}

// Box describes a component-wise bounded observation space.
type Box struct {
	Low  []float64
	High []float64
}

// Contains reports whether every component of v lies within the bounds.
func (b Box) Contains(v []float64) bool {
	if len(v) != len(b.Low) || len(v) != len(b.High) {
		return false
	}
	for i, x := range v {
		if x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

// Transition records one step of an episode as seen by the driver.
type Transition struct {
	EpisodeID   string
	Day         int
	Action      Action
	Observation Observation
	Reward      float64
	Terminated  bool
	Timestamp   time.Time
}

// ExperimentStatus tracks the lifecycle of a running experiment.
type ExperimentStatus struct {
	Running   bool
	Episodes  int
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}
