package environment

import (
	"fmt"
)

// Params holds the fixed configuration of an irrigation environment.
// It is read once at construction and never mutated by Reset or Step.
type Params struct {
	MaxDays           int
	IrrigationTable   []float64 // water added per action index
	RainProbability   float64
	RainMoistureDelta float64
	DryMoistureDelta  float64
	ComfortLow        float64 // inclusive
	ComfortHigh       float64 // inclusive
	InitialMoisture   float64
	// StageThresholds[i] is the day after which the crop enters stage i+1.
	StageThresholds []int
}

// DefaultParams returns the standard 30 day season.
func DefaultParams() Params {
	return Params{
		MaxDays:           30,
		IrrigationTable:   []float64{0, 0.1, 0.2, 0.3},
		RainProbability:   0.3,
		RainMoistureDelta: 0.2,
		DryMoistureDelta:  -0.1,
		ComfortLow:        0.3,
		ComfortHigh:       0.7,
		InitialMoisture:   0.5,
		StageThresholds:   []int{10, 20},
	}
}

// Validate reports the first inconsistency in p.
func (p Params) Validate() error {
	if p.MaxDays <= 0 {
		return fmt.Errorf("max days must be positive, got %d", p.MaxDays)
	}
	if len(p.IrrigationTable) == 0 {
		return fmt.Errorf("irrigation table is empty")
	}
	for i, v := range p.IrrigationTable {
		if v < 0 {
			return fmt.Errorf("irrigation volume for action %d is negative: %v", i, v)
		}
	}
	if p.RainProbability < 0 || p.RainProbability > 1 {
		return fmt.Errorf("rain probability %v outside [0, 1]", p.RainProbability)
	}
	if p.ComfortLow < 0 || p.ComfortHigh > 1 || p.ComfortLow > p.ComfortHigh {
		return fmt.Errorf("comfort band [%v, %v] is not a sub-interval of [0, 1]", p.ComfortLow, p.ComfortHigh)
	}
	if p.InitialMoisture < 0 || p.InitialMoisture > 1 {
		return fmt.Errorf("initial moisture %v outside [0, 1]", p.InitialMoisture)
	}
	for i := 1; i < len(p.StageThresholds); i++ {
		if p.StageThresholds[i] <= p.StageThresholds[i-1] {
			return fmt.Errorf("stage thresholds must be strictly increasing: %v", p.StageThresholds)
		}
	}
	return nil
}

// State is a snapshot of the simulation owned by an IrrigationEnvironment.
type State struct {
	Day          int
	SoilMoisture float64
	GrowthStage  int
	// Weather is only ever written by Reset. Step emits its fresh rain
	// sample in the observation but leaves this field alone.
	Weather    int
	Terminated bool
}
