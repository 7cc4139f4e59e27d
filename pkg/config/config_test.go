package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/boristopalov/irrigo/pkg/providers"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irrigo.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultSeason(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	p := cfg.Environment.Params()
	if p.MaxDays != 30 || p.RainProbability != 0.3 || p.InitialMoisture != 0.5 {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if p.ComfortLow != 0.3 || p.ComfortHigh != 0.7 {
		t.Errorf("comfort band = [%v, %v], want [0.3, 0.7]", p.ComfortLow, p.ComfortHigh)
	}
	want := []float64{0, 0.1, 0.2, 0.3}
	for i, v := range want {
		if p.IrrigationTable[i] != v {
			t.Errorf("irrigation table = %v, want %v", p.IrrigationTable, want)
			break
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
name: dry-season
episodes: 20
seed: 7
agent:
  type: greedy
environment:
  rain_probability: 0.1
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Name != "dry-season" || cfg.Episodes != 20 || cfg.Seed != 7 {
		t.Errorf("top-level fields not loaded: %+v", cfg)
	}
	if cfg.Agent.Type != AgentGreedy {
		t.Errorf("agent type = %q, want greedy", cfg.Agent.Type)
	}
	if cfg.Environment.RainProbability != 0.1 {
		t.Errorf("rain probability = %v, want 0.1", cfg.Environment.RainProbability)
	}
	// unset fields keep defaults
	if cfg.Environment.MaxDays != 30 || cfg.Environment.ComfortHigh != 0.7 {
		t.Errorf("defaults lost: %+v", cfg.Environment)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "episodes: [not, a, number]")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IRRIGO_EPISODES", "5")
	t.Setenv("IRRIGO_SEED", "99")
	t.Setenv("IRRIGO_MAX_DAYS", "10")
	t.Setenv("IRRIGO_RAIN_PROBABILITY", "0.5")
	t.Setenv("IRRIGO_AGENT", "LLM")
	t.Setenv("IRRIGO_PROVIDER", "gemini")
	t.Setenv("IRRIGO_MODEL", "gemini-pro")
	t.Setenv("IRRIGO_STATS_PATH", "/tmp/stats.csv")
	t.Setenv("IRRIGO_LOG_LEVEL", "warn")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Episodes != 5 || cfg.Seed != 99 || cfg.Environment.MaxDays != 10 || cfg.Environment.RainProbability != 0.5 {
		t.Errorf("numeric overrides not applied: %+v", cfg)
	}
	if cfg.Agent.Type != AgentLLM || cfg.Agent.Provider != "gemini" || cfg.Agent.Model != "gemini-pro" {
		t.Errorf("agent overrides not applied: %+v", cfg.Agent)
	}
	if cfg.StatsPath != "/tmp/stats.csv" || cfg.Logging.Level != "warn" {
		t.Errorf("string overrides not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("IRRIGO_EPISODES", "many")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric IRRIGO_EPISODES")
	}
}

func TestValidateAcceptsEveryProvider(t *testing.T) {
	for _, name := range []string{providers.OpenAIProvider, providers.GeminiProvider} {
		cfg := Default()
		cfg.Agent.Type = AgentLLM
		cfg.Agent.Provider = name
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with provider %q error = %v", name, err)
		}
	}
	if Default().Agent.Provider != providers.OpenAIProvider {
		t.Errorf("default provider = %q, want %q", Default().Agent.Provider, providers.OpenAIProvider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExperimentConfig)
	}{
		{"zero episodes", func(c *ExperimentConfig) { c.Episodes = 0 }},
		{"unknown agent", func(c *ExperimentConfig) { c.Agent.Type = "oracle" }},
		{"unknown provider", func(c *ExperimentConfig) { c.Agent.Type, c.Agent.Provider = AgentLLM, "acme" }},
		{"negative memory", func(c *ExperimentConfig) { c.Agent.MemorySize = -1 }},
		{"bad rain probability", func(c *ExperimentConfig) { c.Environment.RainProbability = 2 }},
		{"no days", func(c *ExperimentConfig) { c.Environment.MaxDays = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
