package agent

import (
	"context"
	"math"

	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/environment"
)

// GreedyAgent irrigates toward the middle of the comfort band, planning for
// a dry day since dry days are the more likely outcome.
type GreedyAgent struct {
	id  string
	env environment.Params
}

func NewGreedyAgent(opts ...AgentOption) *GreedyAgent {
	params := buildParams(opts)
	return &GreedyAgent{
		id:  params.AgentID,
		env: params.Env,
	}
}

func (a *GreedyAgent) ID() string {
	return a.id
}

// Act returns the smallest action whose dry-day outcome is closest to the band midpoint.
func (a *GreedyAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	target := (a.env.ComfortLow + a.env.ComfortHigh) / 2
	best, bestDist := core.Action(0), math.Inf(1)
	for i, volume := range a.env.IrrigationTable {
		next := math.Max(0, math.Min(1, obs.SoilMoisture+volume+a.env.DryMoistureDelta))
		// small tolerance so decimal noise doesn't break ties toward more water
		if d := math.Abs(next - target); d < bestDist-1e-9 {
			best, bestDist = core.Action(i), d
		}
	}
	return best, nil
}
