package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/logging"
	"github.com/boristopalov/irrigo/pkg/messaging"
	"github.com/google/uuid"
)

// ErrObservationOutOfSpace is returned when an environment emits an
// observation outside its declared observation space.
var ErrObservationOutOfSpace = errors.New("observation outside observation space")

// EpisodeResult summarizes one completed episode.
type EpisodeResult struct {
	ID            string
	Episode       int
	Steps         int
	TotalReward   float64
	InBandDays    int
	FinalMoisture float64
	FinalStage    int
}

// InBandRatio is the fraction of days that ended inside the comfort band.
func (r EpisodeResult) InBandRatio() float64 {
	if r.Steps == 0 {
		return 0
	}
	return float64(r.InBandDays) / float64(r.Steps)
}

// Runner drives an agent through episodes of an environment: reset, then
// alternate agent action selection and environment steps until terminated.
type Runner struct {
	env      core.Environment
	agent    core.Agent
	episodes int
	broker   messaging.Broker
	render   io.Writer
	recorder *CSVRecorder
	logger   *slog.Logger

	mu      sync.RWMutex
	status  core.ExperimentStatus
	results []EpisodeResult
}

type RunnerOption func(*Runner)

func WithEpisodes(n int) RunnerOption {
	return func(r *Runner) {
		r.episodes = n
	}
}

// WithBroker publishes every transition as a broadcast from its episode ID.
func WithBroker(b messaging.Broker) RunnerOption {
	return func(r *Runner) {
		r.broker = b
	}
}

// WithRender renders the environment to w after every step.
func WithRender(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.render = w
	}
}

// WithRecorder writes one CSV row per finished episode.
func WithRecorder(rec *CSVRecorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

func NewRunner(env core.Environment, agent core.Agent, opts ...RunnerOption) *Runner {
	r := &Runner{
		env:      env,
		agent:    agent,
		episodes: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger)
	return r
}

var _ core.Experiment = (*Runner)(nil)

// Run executes all episodes, stopping at the first error or cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.status = core.ExperimentStatus{Running: true, StartTime: time.Now()}
	r.results = nil
	r.mu.Unlock()

	err := r.runLoop(ctx)

	r.mu.Lock()
	r.status.Running = false
	r.status.EndTime = time.Now()
	if err != nil {
		r.status.Errors = append(r.status.Errors, err)
	}
	r.mu.Unlock()

	if err == nil {
		r.logSummary()
	}
	return err
}

func (r *Runner) runLoop(ctx context.Context) error {
	for ep := 1; ep <= r.episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := r.RunEpisode(ctx, ep)
		if err != nil {
			return err
		}

		r.mu.Lock()
		r.results = append(r.results, result)
		r.status.Episodes++
		r.mu.Unlock()

		if r.recorder != nil {
			if err := r.recorder.Record(result); err != nil {
				r.logger.Warn("failed to record episode stats", "episode", ep, "error", err)
			}
		}
	}
	return nil
}

// RunEpisode plays a single episode from a fresh reset.
func (r *Runner) RunEpisode(ctx context.Context, episode int) (EpisodeResult, error) {
	result := EpisodeResult{ID: uuid.NewString(), Episode: episode}
	r.logger.Info("starting episode", "episode", episode, "id", result.ID, "agent", r.agent.ID())

	space := r.env.ObservationSpace()
	obs := r.env.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		day := result.Steps + 1
		action, err := r.agent.Act(ctx, obs)
		if err != nil {
			return result, fmt.Errorf("episode %s day %d: agent %s: %w", result.ID, day, r.agent.ID(), err)
		}

		step, err := r.env.Step(action)
		if err != nil {
			return result, fmt.Errorf("episode %s day %d: step: %w", result.ID, day, err)
		}
		if !space.Contains(step.Observation.Values()) {
			return result, fmt.Errorf("episode %s day %d: %w: %v", result.ID, day, ErrObservationOutOfSpace, step.Observation)
		}

		result.Steps = day
		result.TotalReward += step.Reward
		if step.Reward > 0 {
			result.InBandDays++
		}
		result.FinalMoisture = step.Observation.SoilMoisture
		result.FinalStage = step.Observation.GrowthStage

		t := core.Transition{
			EpisodeID:   result.ID,
			Day:         day,
			Action:      action,
			Observation: step.Observation,
			Reward:      step.Reward,
			Terminated:  step.Terminated,
			Timestamp:   time.Now(),
		}
		if err := r.dispatch(ctx, t); err != nil {
			return result, err
		}

		obs = step.Observation
		if step.Terminated {
			break
		}
	}

	r.logger.Info("finished episode",
		"episode", episode,
		"id", result.ID,
		"steps", result.Steps,
		"total_reward", result.TotalReward,
		"in_band_days", result.InBandDays,
		"final_moisture", result.FinalMoisture,
	)
	return result, nil
}

// dispatch hands a transition to the agent, the broker and the renderer.
func (r *Runner) dispatch(ctx context.Context, t core.Transition) error {
	if obs, ok := r.agent.(core.Observer); ok {
		if err := obs.Observe(ctx, t); err != nil {
			return fmt.Errorf("episode %s day %d: observe: %w", t.EpisodeID, t.Day, err)
		}
	}

	if r.broker != nil {
		msg := messaging.Message{From: t.EpisodeID, Transition: t, Timestamp: t.Timestamp}
		if err := r.broker.Publish(msg); err != nil {
			// a slow listener must not stall the simulation
			r.logger.Warn("dropped transition", "episode", t.EpisodeID, "day", t.Day, "error", err)
		}
	}

	if r.render != nil {
		if err := r.env.Render(r.render); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	return nil
}

// Results returns a copy of the finished episodes.
func (r *Runner) Results() []EpisodeResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EpisodeResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Runner) GetStatus() core.ExperimentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.Errors = append([]error(nil), r.status.Errors...)
	return s
}

// Summary aggregates the finished episodes.
func (r *Runner) Summary() Summary {
	return Summarize(r.Results())
}

func (r *Runner) logSummary() {
	s := r.Summary()
	r.logger.Info("experiment summary",
		"episodes", s.Episodes,
		"mean_reward", s.MeanReward,
		"stddev_reward", s.StdDevReward,
		"min_reward", s.MinReward,
		"max_reward", s.MaxReward,
		"mean_in_band_ratio", s.MeanInBandRatio,
	)
}

// IsCancellation reports whether err stems from context cancellation or timeout.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
