package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/boristopalov/irrigo/pkg/agent"
	"github.com/boristopalov/irrigo/pkg/config"
	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/environment"
	"github.com/boristopalov/irrigo/pkg/experiment"
	"github.com/boristopalov/irrigo/pkg/logging"
	"github.com/boristopalov/irrigo/pkg/messaging"
	"github.com/boristopalov/irrigo/pkg/providers"
)

type runFlags struct {
	configPath string
	episodes   int
	seed       uint64
	agentType  string
	render     bool
	statsPath  string
	trace      bool
	logLevel   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "irrigo",
		Short: "Irrigo simulates an irrigation scheduling season for decision-making agents.",
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(newRunCmd(), newSpacesCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run irrigation episodes with the configured agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to a YAML experiment config")
	cmd.Flags().IntVarP(&f.episodes, "episodes", "n", 0, "number of episodes (overrides config)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for weather and agent (0 picks one)")
	cmd.Flags().StringVarP(&f.agentType, "agent", "a", "", "agent type: random, greedy or llm")
	cmd.Flags().BoolVar(&f.render, "render", false, "print the field state after every day")
	cmd.Flags().StringVar(&f.statsPath, "stats", "", "write per-episode statistics to this CSV file")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "log every transition")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	return cmd
}

func newSpacesCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "Print the action and observation spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			env, err := environment.NewIrrigationEnvironment(cfg.Environment.Params())
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "action space: Discrete(%d)\n", env.ActionSpace().N)
			for i, v := range env.Params().IrrigationTable {
				fmt.Fprintf(out, "  %d: irrigate %.2f\n", i, v)
			}
			box := env.ObservationSpace()
			fmt.Fprintf(out, "observation space: Box(low=%v, high=%v)\n", box.Low, box.High)
			fmt.Fprintln(out, "  (soil moisture, growth stage, weather)")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML experiment config")
	return cmd
}

func loadConfig(path string) (*config.ExperimentConfig, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runExperiment(cmd *cobra.Command, f *runFlags) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	logger.Info("starting experiment", "name", cfg.Name, "episodes", cfg.Episodes, "agent", cfg.Agent.Type, "seed", cfg.Seed)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	params := cfg.Environment.Params()
	env, err := environment.NewIrrigationEnvironment(params,
		environment.WithSeed(cfg.Seed),
		environment.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := newAgent(ctx, cfg, params, logger)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	opts := []experiment.RunnerOption{
		experiment.WithEpisodes(cfg.Episodes),
		experiment.WithLogger(logger),
	}
	if cfg.Render {
		opts = append(opts, experiment.WithRender(cmd.OutOrStdout()))
	}
	if cfg.StatsPath != "" {
		statsFile, err := os.Create(cfg.StatsPath)
		if err != nil {
			return fmt.Errorf("failed to create stats file: %w", err)
		}
		defer statsFile.Close()
		rec, err := experiment.NewCSVRecorder(statsFile)
		if err != nil {
			return err
		}
		opts = append(opts, experiment.WithRecorder(rec))
	}
	if f.trace {
		broker, stop, err := startTrace(logger, params.MaxDays)
		if err != nil {
			return err
		}
		defer stop()
		opts = append(opts, experiment.WithBroker(broker))
	}

	runner := experiment.NewRunner(env, a, opts...)
	if err := runner.Run(ctx); err != nil {
		if experiment.IsCancellation(err) {
			logger.Warn("experiment interrupted", "completed_episodes", len(runner.Results()))
			return nil
		}
		return fmt.Errorf("experiment failed: %w", err)
	}

	s := runner.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "episodes: %d  mean reward: %.2f  std dev: %.2f  min: %.0f  max: %.0f  in band: %.1f%%\n",
		s.Episodes, s.MeanReward, s.StdDevReward, s.MinReward, s.MaxReward, s.MeanInBandRatio*100)
	return nil
}

// startTrace logs every published transition. The returned stop function
// unsubscribes the listener and waits until it has logged everything queued.
func startTrace(logger *slog.Logger, buffer int) (*messaging.SimpleBroker, func(), error) {
	broker := messaging.NewBlockingBroker()
	ch := make(chan messaging.Message, buffer)
	if err := broker.Subscribe("trace", ch); err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// stops when ch is closed, after the queue is drained
		messaging.Listen(context.Background(), ch, func(m messaging.Message) {
			t := m.Transition
			logger.Info("transition",
				"episode", t.EpisodeID,
				"day", t.Day,
				"action", int(t.Action),
				"observation", t.Observation.String(),
				"reward", t.Reward,
				"terminated", t.Terminated,
			)
		})
	}()

	stop := func() {
		if err := broker.Unsubscribe("trace"); err != nil {
			logger.Warn("trace unsubscribe failed", "error", err)
		}
		close(ch)
		<-done
	}
	return broker, stop, nil
}

// applyFlags overrides config values with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.ExperimentConfig, f *runFlags) {
	flags := cmd.Flags()
	if flags.Changed("episodes") {
		cfg.Episodes = f.episodes
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("agent") {
		cfg.Agent.Type = f.agentType
	}
	if flags.Changed("render") {
		cfg.Render = f.render
	}
	if flags.Changed("stats") {
		cfg.StatsPath = f.statsPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
}

func newAgent(ctx context.Context, cfg *config.ExperimentConfig, params environment.Params, logger *slog.Logger) (core.Agent, error) {
	opts := []agent.AgentOption{
		agent.WithSeed(cfg.Seed),
		agent.WithEnvironmentParams(params),
		agent.WithLogger(logger),
	}

	switch cfg.Agent.Type {
	case config.AgentGreedy:
		return agent.NewGreedyAgent(opts...), nil
	case config.AgentLLM:
		client, err := providers.New(ctx, cfg.Agent.Provider)
		if err != nil {
			return nil, err
		}
		model := cfg.Agent.Model
		if model == "" {
			model = providers.DefaultModel(cfg.Agent.Provider)
		}
		opts = append(opts,
			agent.WithProvider(client),
			agent.WithModel(model),
			agent.WithMemorySize(cfg.Agent.MemorySize),
		)
		return agent.NewLLMAgent(opts...)
	default:
		return agent.NewRandomAgent(opts...), nil
	}
}
