package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/sim"
	"github.com/san-kum/odesim/internal/storage"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// ContinueOnError keeps going after a failed step.
	ContinueOnError bool   `yaml:"continue_on_error"`
	Steps           []Step `yaml:"steps"`
}

// Step is one run. Its config starts from the preset, or the defaults, and
// every key present under config overrides it.
type Step struct {
	Name   string    `yaml:"name"`
	Model  string    `yaml:"model"`
	Preset string    `yaml:"preset"`
	Save   bool      `yaml:"save"`
	Config yaml.Node `yaml:"config"`
}

// StepResult is the outcome of one step. Err is set for a failed step;
// Result may still hold the partial trajectory.
type StepResult struct {
	Step   string
	Config *config.Config
	Result *sim.Result
	RunID  string
	Err    error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrConfiguration, sc.Name)
	}
	for i := range sc.Steps {
		if _, err := sc.Steps[i].Resolve(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &sc, nil
}

// Resolve builds the validated run config of the step.
func (s *Step) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if s.Preset != "" {
		if s.Model == "" {
			return nil, fmt.Errorf("%w: preset %q needs a model", dynamo.ErrConfiguration, s.Preset)
		}
		cfg = config.GetPreset(s.Model, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %s/%s", dynamo.ErrConfiguration, s.Model, s.Preset)
		}
	} else {
		cfg = config.DefaultConfig()
		if s.Model != "" {
			cfg.Model = s.Model
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Step) label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step%d", i+1)
}

// Runner executes scenarios. A nil store disables saving.
type Runner struct {
	reg    *experiment.Registry
	store  *storage.Store
	logger *slog.Logger
}

func NewRunner(reg *experiment.Registry, store *storage.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{reg: reg, store: store, logger: logger}
}

// Run executes the steps in order. It stops at the first failure unless
// the scenario continues on error, and always returns the results so far.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for i := range sc.Steps {
		step := &sc.Steps[i]
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}

		sr := r.runStep(ctx, step, i)
		results = append(results, sr)
		if sr.Err != nil {
			r.logger.Warn("scenario step failed",
				"scenario", sc.Name,
				"step", sr.Step,
				"error", sr.Err)
			if !sc.ContinueOnError {
				return results, fmt.Errorf("%s: %w", sr.Step, sr.Err)
			}
			continue
		}
		r.logger.Info("scenario step done",
			"scenario", sc.Name,
			"step", sr.Step,
			"reason", sr.Result.Reason,
			"steps", sr.Result.Stats.Accepted,
			"run_id", sr.RunID)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step *Step, i int) StepResult {
	sr := StepResult{Step: step.label(i)}
	cfg, err := step.Resolve()
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.Config = cfg

	exp, err := experiment.New(cfg, r.reg, r.logger)
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.Result, sr.Err = exp.Run(ctx)
	if sr.Result == nil || !step.Save || r.store == nil {
		return sr
	}
	if err := r.store.Init(); err != nil {
		sr.Err = err
		return sr
	}
	id, err := r.store.Save(storage.NewMetadata(cfg, exp.Model()), sr.Result)
	if err != nil && sr.Err == nil {
		sr.Err = err
	}
	sr.RunID = id
	return sr
}
