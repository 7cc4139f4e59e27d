package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpacesCommand(t *testing.T) {
	cmd := newSpacesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("spaces error = %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"action space: Discrete(4)",
		"3: irrigate 0.30",
		"observation space: Box(low=[0 0 0], high=[1 2 1])",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunCommand(t *testing.T) {
	statsPath := filepath.Join(t.TempDir(), "stats.csv")

	cmd := newRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--agent", "greedy",
		"--episodes", "3",
		"--seed", "11",
		"--render",
		"--stats", statsPath,
		"--log-level", "error",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run error = %v", err)
	}

	got := out.String()
	if n := strings.Count(got, "Day: "); n != 90 {
		t.Errorf("rendered %d days, want 90", n)
	}
	if !strings.Contains(got, "episodes: 3") {
		t.Errorf("summary missing:\n%s", got)
	}

	f, err := os.Open(statsPath)
	if err != nil {
		t.Fatalf("opening stats: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading stats: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("stats has %d rows, want header plus 3", len(rows))
	}
}

func TestRunCommandRejectsUnknownAgent(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--agent", "oracle"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestLoadConfigAppliesEnv(t *testing.T) {
	t.Setenv("IRRIGO_EPISODES", "8")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Episodes != 8 {
		t.Errorf("episodes = %d, want 8", cfg.Episodes)
	}
}

func TestRunCommandTracesEveryTransition(t *testing.T) {
	for run := 0; run < 5; run++ {
		cmd := newRunCmd()
		var out, logs bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&logs)
		cmd.SetArgs([]string{
			"--agent", "greedy",
			"--episodes", "3",
			"--seed", "5",
			"--trace",
			"--log-level", "info",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("run %d: error = %v", run, err)
		}
		if n := strings.Count(logs.String(), "msg=transition"); n != 90 {
			t.Fatalf("run %d: traced %d of 90 transitions", run, n)
		}
		for _, day := range []string{"day=1 ", "day=30 "} {
			if strings.Count(logs.String(), day) < 3 {
				t.Errorf("run %d: expected %q in every episode's trace", run, day)
			}
		}
	}
}
