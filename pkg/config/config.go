package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/boristopalov/irrigo/pkg/environment"
	"github.com/boristopalov/irrigo/pkg/providers"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	AgentRandom = "random"
	AgentGreedy = "greedy"
	AgentLLM    = "llm"
)

type ExperimentConfig struct {
	Name        string      `yaml:"name"`
	Episodes    int         `yaml:"episodes"`
	Seed        uint64      `yaml:"seed"` // 0 draws a random seed
	Render      bool        `yaml:"render"`
	StatsPath   string      `yaml:"stats_path"`
	Agent       AgentConfig `yaml:"agent"`
	Environment EnvConfig   `yaml:"environment"`
	Logging     LogConfig   `yaml:"logging"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AgentConfig struct {
	Type       string `yaml:"type"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	MemorySize int    `yaml:"memory_size"`
}

type EnvConfig struct {
	MaxDays           int       `yaml:"max_days"`
	IrrigationTable   []float64 `yaml:"irrigation_table"`
	RainProbability   float64   `yaml:"rain_probability"`
	RainMoistureDelta float64   `yaml:"rain_moisture_delta"`
	DryMoistureDelta  float64   `yaml:"dry_moisture_delta"`
	ComfortLow        float64   `yaml:"comfort_low"`
	ComfortHigh       float64   `yaml:"comfort_high"`
	InitialMoisture   float64   `yaml:"initial_moisture"`
	StageThresholds   []int     `yaml:"stage_thresholds"`
}

// Params converts the config into environment parameters.
func (c EnvConfig) Params() environment.Params {
	return environment.Params{
		MaxDays:           c.MaxDays,
		IrrigationTable:   append([]float64(nil), c.IrrigationTable...),
		RainProbability:   c.RainProbability,
		RainMoistureDelta: c.RainMoistureDelta,
		DryMoistureDelta:  c.DryMoistureDelta,
		ComfortLow:        c.ComfortLow,
		ComfortHigh:       c.ComfortHigh,
		InitialMoisture:   c.InitialMoisture,
		StageThresholds:   append([]int(nil), c.StageThresholds...),
	}
}

// Default returns the standard 30 day season with a random agent.
func Default() *ExperimentConfig {
	p := environment.DefaultParams()
	return &ExperimentConfig{
		Name:     "irrigation",
		Episodes: 1,
		Agent: AgentConfig{
			Type:       AgentRandom,
			Provider:   providers.OpenAIProvider,
			MemorySize: 10,
		},
		Environment: EnvConfig{
			MaxDays:           p.MaxDays,
			IrrigationTable:   p.IrrigationTable,
			RainProbability:   p.RainProbability,
			RainMoistureDelta: p.RainMoistureDelta,
			DryMoistureDelta:  p.DryMoistureDelta,
			ComfortLow:        p.ComfortLow,
			ComfortHigh:       p.ComfortHigh,
			InitialMoisture:   p.InitialMoisture,
			StageThresholds:   p.StageThresholds,
		},
		Logging: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*ExperimentConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays IRRIGO_* environment variables onto the config.
func (c *ExperimentConfig) ApplyEnv() error {
	if v := os.Getenv("IRRIGO_EPISODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IRRIGO_EPISODES: %w", err)
		}
		c.Episodes = n
	}
	if v := os.Getenv("IRRIGO_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("IRRIGO_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := os.Getenv("IRRIGO_MAX_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IRRIGO_MAX_DAYS: %w", err)
		}
		c.Environment.MaxDays = n
	}
	if v := os.Getenv("IRRIGO_RAIN_PROBABILITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("IRRIGO_RAIN_PROBABILITY: %w", err)
		}
		c.Environment.RainProbability = f
	}
	if v := os.Getenv("IRRIGO_AGENT"); v != "" {
		c.Agent.Type = strings.ToLower(v)
	}
	if v := os.Getenv("IRRIGO_PROVIDER"); v != "" {
		c.Agent.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("IRRIGO_MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("IRRIGO_STATS_PATH"); v != "" {
		c.StatsPath = v
	}
	if v := os.Getenv("IRRIGO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the config and the environment model it describes.
func (c *ExperimentConfig) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidConfig, c.Episodes)
	}
	switch c.Agent.Type {
	case AgentRandom, AgentGreedy:
	case AgentLLM:
		switch c.Agent.Provider {
		case providers.OpenAIProvider, providers.GeminiProvider:
		default:
			return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Agent.Provider)
		}
	default:
		return fmt.Errorf("%w: unknown agent type %q", ErrInvalidConfig, c.Agent.Type)
	}
	if c.Agent.MemorySize < 0 {
		return fmt.Errorf("%w: memory size must not be negative", ErrInvalidConfig)
	}
	if err := c.Environment.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
