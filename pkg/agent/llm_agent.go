package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/boristopalov/irrigo/pkg/core"
	"github.com/boristopalov/irrigo/pkg/environment"
	"github.com/boristopalov/irrigo/pkg/memory"
	"github.com/boristopalov/irrigo/pkg/providers"
)

const (
	systemPrompt = `You are managing irrigation for a crop field over a growing season of %d days. Each day you choose how much water to add. After your choice the day's weather is drawn: rain adds %.2f to soil moisture, a dry day changes it by %.2f. Soil moisture is always kept between 0 and 1. You earn +1 for every day that ends with soil moisture between %.2f and %.2f (inclusive) and -1 for every other day. Your goal is to maximize your total reward over the season.`

	actionPromptTemplate = `%s

Available actions:
%s

Recent days:
%s

Today the soil moisture is %.2f, the crop growth stage is %d (0 early, 1 mid, 2 late) and yesterday was %s.
Which action do you take? Very briefly think step by step and then provide your answer. Your answer should follow the string "ANSWER" like so: ANSWER: <action number>`

	retryPromptTemplate = `Your previous response did not include a valid action. Here was your response:

%s

Reply with exactly one line of the form "ANSWER: N" where N is an action number between 0 and %d.`
)

// promptHistoryDays caps how many remembered days go into a prompt.
const promptHistoryDays = 5

var answerPattern = regexp.MustCompile(`ANSWER:\s*(-?\d+)`)

// ErrNoAnswer is returned when a model response carries no usable action.
var ErrNoAnswer = errors.New("no valid action in model response")

// LLMAgent asks a language model which irrigation action to take.
type LLMAgent struct {
	id     string
	model  string
	client providers.Client
	env    environment.Params
	memory *memory.Memory[core.Transition]
	logger *slog.Logger
}

// NewLLMAgent creates an agent backed by the provider set with WithProvider.
func NewLLMAgent(opts ...AgentOption) (*LLMAgent, error) {
	params := buildParams(opts)
	if params.Client == nil {
		return nil, fmt.Errorf("llm agent %s requires a provider client", params.AgentID)
	}

	return &LLMAgent{
		id:     params.AgentID,
		model:  params.Model,
		client: params.Client,
		env:    params.Env,
		memory: memory.NewMemory[core.Transition](params.MemorySize),
		logger: params.Logger,
	}, nil
}

func (a *LLMAgent) ID() string {
	return a.id
}

func (a *LLMAgent) GetModel() string {
	return a.model
}

// GetMemory returns the agent's recent transitions
func (a *LLMAgent) GetMemory() *memory.Memory[core.Transition] {
	return a.memory
}

// Act prompts the model and parses its chosen action, retrying once when
// the answer is missing or outside the action space.
func (a *LLMAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	prompt := a.buildPrompt(obs)

	response, err := a.client.Complete(ctx, a.model, prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to generate response: %w", err)
	}
	a.logger.Debug("llm response", "agent", a.id, "response", response)

	action, err := a.parseAction(response)
	if err == nil {
		return action, nil
	}

	retry := fmt.Sprintf(retryPromptTemplate, response, len(a.env.IrrigationTable)-1)
	response, err = a.client.Complete(ctx, a.model, retry)
	if err != nil {
		return 0, fmt.Errorf("failed to generate response on retry: %w", err)
	}
	return a.parseAction(response)
}

// Observe records the transition so later prompts can include it.
func (a *LLMAgent) Observe(ctx context.Context, t core.Transition) error {
	if t.Day == 1 {
		a.memory.Clear()
	}
	a.memory.Store(t)
	return nil
}

func (a *LLMAgent) buildPrompt(obs core.Observation) string {
	system := fmt.Sprintf(systemPrompt,
		a.env.MaxDays,
		a.env.RainMoistureDelta,
		a.env.DryMoistureDelta,
		a.env.ComfortLow,
		a.env.ComfortHigh,
	)

	var actions strings.Builder
	for i, v := range a.env.IrrigationTable {
		fmt.Fprintf(&actions, "%d: add %.2f water\n", i, v)
	}

	history := "This is the first day, so there is no history yet."
	if recent := a.memory.Recent(promptHistoryDays); len(recent) > 0 {
		lines := make([]string, 0, len(recent))
		for _, t := range recent {
			lines = append(lines, fmt.Sprintf("Day %d: action %d, %s, moisture %.2f, reward %+.0f",
				t.Day, t.Action, weatherName(t.Observation.Weather), t.Observation.SoilMoisture, t.Reward))
		}
		history = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(actionPromptTemplate,
		system,
		strings.TrimRight(actions.String(), "\n"),
		history,
		obs.SoilMoisture,
		obs.GrowthStage,
		weatherName(obs.Weather),
	)
}

func (a *LLMAgent) parseAction(response string) (core.Action, error) {
	matches := answerPattern.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoAnswer, response)
	}

	// the last answer wins when the model restates itself
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}
	action := core.Action(n)
	if !(core.Discrete{N: len(a.env.IrrigationTable)}).Contains(action) {
		return 0, fmt.Errorf("%w: action %d out of range", ErrNoAnswer, n)
	}
	return action, nil
}

func weatherName(w int) string {
	if w == 1 {
		return "rainy"
	}
	return "dry"
}
