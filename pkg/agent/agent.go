package agent

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/environment"
	"github.com/boristopalov/irrigo/pkg/logging"
	"github.com/boristopalov/irrigo/pkg/providers"
	"github.com/google/uuid"
)

type AgentParams struct {
	AgentID    string
	Seed       uint64
	Env        environment.Params // the model the agent plans against
	Client     providers.Client
	Model      string
	MemorySize int
	Logger     *slog.Logger
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithSeed(seed uint64) AgentOption {
	return func(p *AgentParams) {
		p.Seed = seed
	}
}

func WithEnvironmentParams(env environment.Params) AgentOption {
	return func(p *AgentParams) {
		p.Env = env
	}
}

func WithProvider(c providers.Client) AgentOption {
	return func(p *AgentParams) {
		p.Client = c
	}
}

func WithModel(model string) AgentOption {
	return func(p *AgentParams) {
		p.Model = model
	}
}

func WithMemorySize(n int) AgentOption {
	return func(p *AgentParams) {
		p.MemorySize = n
	}
}

func WithLogger(l *slog.Logger) AgentOption {
	return func(p *AgentParams) {
		p.Logger = l
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:    "agent-" + uuid.New().String(),
		Seed:       rand.Uint64(),
		Env:        environment.DefaultParams(),
		Model:      providers.DefaultOpenAIModel,
		MemorySize: 10,
	}
}

func buildParams(opts []AgentOption) *AgentParams {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	params.Logger = logging.OrDefault(params.Logger)
	return params
}

// RandomAgent picks uniformly from the action space.
type RandomAgent struct {
	id      string
	actions core.Discrete
	rng     *rand.Rand
}

func NewRandomAgent(opts ...AgentOption) *RandomAgent {
	params := buildParams(opts)
	return &RandomAgent{
		id:      params.AgentID,
		actions: core.Discrete{N: len(params.Env.IrrigationTable)},
		rng:     rand.New(rand.NewPCG(params.Seed, params.Seed>>1|1)),
	}
}

func (a *RandomAgent) ID() string {
	return a.id
}

func (a *RandomAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return core.Action(a.rng.IntN(a.actions.N)), nil
}
