package environment

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/logging"
)

// moistureScale snaps moisture onto a 1e-9 grid so decimal table entries
// (0.5+0.3-0.1) land exactly on the comfort band edges.
const moistureScale = 1e9

// IrrigationEnvironment simulates one field over a growing season. Each step
// is one day: the agent's irrigation and the day's weather change soil
// moisture, and the reward says whether moisture stayed in the comfort band.
//
// Note that State.Weather is only set by Reset. Step reports the freshly
// sampled rain flag in its observation without storing it, so Render shows
// the reset value for the whole episode. Existing agents depend on this
// observation contract, so it must not be "fixed".
type IrrigationEnvironment struct {
	params  Params
	sampler WeatherSampler
	logger  *slog.Logger
	state   State
	mu      sync.Mutex
}

type envOptions struct {
	sampler WeatherSampler
	seed    *uint64
	logger  *slog.Logger
}

// Option configures an IrrigationEnvironment.
type Option func(*envOptions)

// WithSampler injects the weather source, replacing the Bernoulli default.
func WithSampler(s WeatherSampler) Option {
	return func(o *envOptions) {
		o.sampler = s
	}
}

// WithSeed seeds the default Bernoulli weather source.
func WithSeed(seed uint64) Option {
	return func(o *envOptions) {
		o.seed = &seed
	}
}

// WithLogger sets the logger for per-step debug output. It defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *envOptions) {
		o.logger = l
	}
}

// NewIrrigationEnvironment creates an environment in its reset state.
func NewIrrigationEnvironment(params Params, opts ...Option) (*IrrigationEnvironment, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid environment params: %w", err)
	}

	o := &envOptions{}
	for _, opt := range opts {
		opt(o)
	}

	sampler := o.sampler
	if sampler == nil {
		seed := rand.Uint64()
		if o.seed != nil {
			seed = *o.seed
		}
		sampler = NewBernoulliSampler(params.RainProbability, seed)
	}

	// copy slices so callers can't mutate the model after construction
	params.IrrigationTable = append([]float64(nil), params.IrrigationTable...)
	params.StageThresholds = append([]int(nil), params.StageThresholds...)

	e := &IrrigationEnvironment{
		params:  params,
		sampler: sampler,
		logger:  logging.OrDefault(o.logger),
	}
	e.Reset()
	return e, nil
}

var _ core.Environment = (*IrrigationEnvironment)(nil)

// Reset reinitializes all state and returns the initial observation.
func (e *IrrigationEnvironment) Reset() core.Observation {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = State{
		Day:          0,
		SoilMoisture: e.params.InitialMoisture,
		GrowthStage:  0,
		Weather:      0,
	}
	return core.Observation{
		SoilMoisture: e.state.SoilMoisture,
		GrowthStage:  e.state.GrowthStage,
		Weather:      e.state.Weather,
	}
}

// Step irrigates, samples the day's weather and advances the season by one day.
func (e *IrrigationEnvironment) Step(action core.Action) (core.StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.actionSpace().Contains(action) {
		return core.StepResult{}, &InvalidActionError{Action: action, N: len(e.params.IrrigationTable)}
	}
	if e.state.Terminated {
		return core.StepResult{}, ErrEpisodeTerminated
	}

	irrigation := e.params.IrrigationTable[action]

	rain := e.sampler.SampleRain()
	weatherEffect := e.params.DryMoistureDelta
	if rain == 1 {
		weatherEffect = e.params.RainMoistureDelta
	}

	e.state.SoilMoisture = clampMoisture(e.state.SoilMoisture + irrigation + weatherEffect)
	reward := e.reward(e.state.SoilMoisture)

	// stage is a function of the day before incrementing
	for i, threshold := range e.params.StageThresholds {
		if e.state.Day > threshold {
			e.state.GrowthStage = i + 1
		}
	}

	e.state.Day++
	e.state.Terminated = e.state.Day >= e.params.MaxDays

	e.logger.Debug("irrigation step",
		"day", e.state.Day,
		"action", int(action),
		"rain", rain,
		"moisture", e.state.SoilMoisture,
		"stage", e.state.GrowthStage,
		"reward", reward,
		"terminated", e.state.Terminated,
	)

	return core.StepResult{
		Observation: core.Observation{
			SoilMoisture: e.state.SoilMoisture,
			GrowthStage:  e.state.GrowthStage,
			Weather:      rain,
		},
		Reward:     reward,
		Terminated: e.state.Terminated,
		Info:       core.Info{},
	}, nil
}

func (e *IrrigationEnvironment) reward(moisture float64) float64 {
	if moisture >= e.params.ComfortLow && moisture <= e.params.ComfortHigh {
		return 1.0
	}
	return -1.0
}

// Render writes the current day, moisture, growth stage and stored weather.
func (e *IrrigationEnvironment) Render(w io.Writer) error {
	s := e.State()
	weather := "Dry"
	if s.Weather == 1 {
		weather = "Rainy"
	}
	_, err := fmt.Fprintf(w, "Day: %d, Soil Moisture: %.2f, Growth Stage: %d, Weather: %s\n",
		s.Day, s.SoilMoisture, s.GrowthStage, weather)
	return err
}

// Close is a no-op; the environment holds no external resources.
func (e *IrrigationEnvironment) Close() error {
	return nil
}

// State returns a copy of the current simulation state.
func (e *IrrigationEnvironment) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Params returns the model the environment was built with.
func (e *IrrigationEnvironment) Params() Params {
	p := e.params
	p.IrrigationTable = append([]float64(nil), e.params.IrrigationTable...)
	p.StageThresholds = append([]int(nil), e.params.StageThresholds...)
	return p
}

// ActionSpace returns one discrete action per irrigation table entry.
func (e *IrrigationEnvironment) ActionSpace() core.Discrete {
	return e.actionSpace()
}

func (e *IrrigationEnvironment) actionSpace() core.Discrete {
	return core.Discrete{N: len(e.params.IrrigationTable)}
}

// ObservationSpace bounds (moisture, stage, weather) component-wise.
func (e *IrrigationEnvironment) ObservationSpace() core.Box {
	return core.Box{
		Low:  []float64{0, 0, 0},
		High: []float64{1, float64(len(e.params.StageThresholds)), 1},
	}
}

func clampMoisture(v float64) float64 {
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*moistureScale) / moistureScale
}
