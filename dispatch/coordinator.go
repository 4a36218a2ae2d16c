package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/types"
)

const (
	// DefaultMaxConcurrency bounds how many steps run at once per command.
	DefaultMaxConcurrency = 4
	// DefaultStepTimeout applies to capabilities without their own timeout.
	DefaultStepTimeout = 10 * time.Second
)

// Config holds dispatch settings.
type Config struct {
	// MaxConcurrency caps concurrently running steps within one command.
	MaxConcurrency int `yaml:"max_concurrency"`
	// StepTimeout is the default per-step timeout. Registry entries with a
	// non-zero Timeout override it.
	StepTimeout time.Duration `yaml:"step_timeout"`
}

// DefaultConfig returns the documented dispatch defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultMaxConcurrency,
		StepTimeout:    DefaultStepTimeout,
	}
}

// Observer receives step lifecycle notifications for invoked steps.
// Skipped steps never start, so they are not observed.
type Observer interface {
	StepStarted(capability string)
	StepFinished(result types.StepResult)
}

type nopObserver struct{}

func (nopObserver) StepStarted(string) {}

func (nopObserver) StepFinished(types.StepResult) {}

// Coordinator dispatches plan steps with bounded concurrency.
type Coordinator struct {
	config   Config
	observer Observer
	logger   *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver attaches a step lifecycle observer, typically the metrics
// collector.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewCoordinator creates a coordinator. Zero config fields fall back to
// the documented defaults.
func NewCoordinator(config Config, logger *zap.Logger, opts ...Option) *Coordinator {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.StepTimeout <= 0 {
		config.StepTimeout = DefaultStepTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		config:   config,
		observer: nopObserver{},
		logger:   logger.With(zap.String("component", "dispatch_coordinator")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// stepOutcome carries one finished step back to the scheduler.
type stepOutcome struct {
	result  types.StepResult
	payload map[string]any
}

// Execute runs every step of the plan to a terminal state and returns one
// StepResult per step in plan declaration order. Dispatch-stage failures
// are recorded in the results, never raised: the error surface of this
// method is empty by design of the partial-failure contract.
func (c *Coordinator) Execute(ctx context.Context, pl *types.Plan, reg *capability.Registry) []types.StepResult {
	if pl == nil || len(pl.Steps) == 0 {
		return nil
	}

	steps := make(map[string]types.PlanStep, len(pl.Steps))
	indegree := make(map[string]int, len(pl.Steps))
	dependents := make(map[string][]string, len(pl.Steps))
	for _, s := range pl.Steps {
		steps[s.ID] = s
		indegree[s.ID] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var (
		results  = make(map[string]types.StepResult, len(pl.Steps))
		payloads = make(map[string]map[string]any, len(pl.Steps))
		blocked  = make(map[string]string, len(pl.Steps))
		launched = make(map[string]bool, len(pl.Steps))
		// local holds outcomes produced by the scheduler itself: skipped
		// steps and launch-time resolution failures.
		local []stepOutcome
	)

	completions := make(chan stepOutcome)
	sem := make(chan struct{}, c.config.MaxConcurrency)
	var g errgroup.Group

	schedule := func() {
		for _, s := range pl.Steps {
			if launched[s.ID] || indegree[s.ID] != 0 {
				continue
			}
			launched[s.ID] = true
			step := steps[s.ID]

			// An already-cancelled command never starts another step.
			if ctx.Err() != nil {
				local = append(local, cancelOutcome(step))
				continue
			}

			if blocker, ok := blocked[s.ID]; ok {
				local = append(local, skipOutcome(step, blocker))
				continue
			}

			entry, ok := reg.Lookup(step.Capability)
			if !ok {
				// Validation catches this before dispatch; a hot unregister
				// between planning and execution still lands here.
				local = append(local, failOutcome(step,
					types.Errorf(types.ErrUnknownCapability,
						"capability %q is not registered", step.Capability)))
				continue
			}

			params, err := resolveParams(step, payloads)
			if err != nil {
				local = append(local, failOutcome(step, err))
				continue
			}

			g.Go(func() error {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					completions <- cancelOutcome(step)
					return nil
				}
				defer func() { <-sem }()

				completions <- c.runStep(ctx, step, entry, params)
				return nil
			})
		}
	}

	schedule()
	for finished := 0; finished < len(pl.Steps); finished++ {
		var out stepOutcome
		if len(local) > 0 {
			out, local = local[0], local[1:]
		} else {
			out = <-completions
		}

		id := out.result.StepID
		results[id] = out.result
		payloads[id] = out.payload

		failed := out.result.Status.Failure() || out.result.Status == types.StepSkipped
		for _, dep := range dependents[id] {
			indegree[dep]--
			if failed {
				if _, already := blocked[dep]; !already {
					blocked[dep] = id
				}
			}
		}
		schedule()
	}
	// Step goroutines never return errors; Wait only fences their exit.
	_ = g.Wait()

	ordered := make([]types.StepResult, 0, len(pl.Steps))
	for _, s := range pl.Steps {
		ordered = append(ordered, results[s.ID])
	}
	return ordered
}

// runStep invokes one capability under its per-step timeout. The handler
// runs in its own goroutine so that a collaborator ignoring context
// cancellation still cannot hold the step past its deadline.
func (c *Coordinator) runStep(ctx context.Context, step types.PlanStep, entry *capability.Entry, params map[string]any) stepOutcome {
	timeout := c.config.StepTimeout
	if entry.Timeout > 0 {
		timeout = entry.Timeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.observer.StepStarted(step.Capability)
	start := time.Now()

	res := types.StepResult{StepID: step.ID, Capability: step.Capability}
	var payload map[string]any

	if err := entry.Wait(stepCtx); err != nil {
		res.Status = types.StepFailed
		res.Reason = types.AsError(err).Sanitized()
		return c.finishStep(res, payload, start)
	}
	if err := entry.Schema.ValidateParams(params); err != nil {
		res.Status = types.StepFailed
		res.Reason = types.AsError(err).Sanitized()
		return c.finishStep(res, payload, start)
	}

	type invocation struct {
		payload map[string]any
		err     error
	}
	done := make(chan invocation, 1)
	go func() {
		p, err := entry.Handler.Invoke(stepCtx, params)
		done <- invocation{payload: p, err: err}
	}()

	select {
	case inv := <-done:
		switch {
		case inv.err == nil:
			res.Status = types.StepSucceeded
			payload = inv.payload
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			res.Status = types.StepTimedOut
			res.Reason = types.Errorf(types.ErrStepTimedOut,
				"capability %q exceeded its %s timeout", step.Capability, timeout).Sanitized()
		case ctx.Err() != nil:
			res.Status = types.StepFailed
			res.Reason = types.NewError(types.ErrCommandCancelled,
				"command cancelled during invocation").Sanitized()
		default:
			res.Status = types.StepFailed
			res.Reason = sanitizeInvocationError(step.Capability, inv.err)
		}
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			res.Status = types.StepFailed
			res.Reason = types.NewError(types.ErrCommandCancelled,
				"command cancelled during invocation").Sanitized()
		} else {
			res.Status = types.StepTimedOut
			res.Reason = types.Errorf(types.ErrStepTimedOut,
				"capability %q exceeded its %s timeout", step.Capability, timeout).Sanitized()
		}
	}
	return c.finishStep(res, payload, start)
}

func (c *Coordinator) finishStep(res types.StepResult, payload map[string]any, start time.Time) stepOutcome {
	res.Latency = time.Since(start)
	c.observer.StepFinished(res)

	c.logger.Debug("step finished",
		zap.String("step_id", res.StepID),
		zap.String("capability", res.Capability),
		zap.String("status", string(res.Status)),
		zap.Duration("latency", res.Latency),
	)
	return stepOutcome{result: res, payload: payload}
}

// resolveParams replaces ParamRef values with fields from upstream
// payloads. All referenced steps have finished by the time a step is
// scheduled, so resolution never blocks.
func resolveParams(step types.PlanStep, payloads map[string]map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(step.Params))
	for name, v := range step.Params {
		ref, isRef := v.(types.ParamRef)
		if !isRef {
			resolved[name] = v
			continue
		}
		value, ok := payloads[ref.StepID][ref.Field]
		if !ok || value == nil {
			return nil, types.Errorf(types.ErrMissingParameter,
				"dependency %q produced no %q field", ref.StepID, ref.Field)
		}
		resolved[name] = value
	}
	return resolved, nil
}

func skipOutcome(step types.PlanStep, blocker string) stepOutcome {
	return stepOutcome{result: types.StepResult{
		StepID:     step.ID,
		Capability: step.Capability,
		Status:     types.StepSkipped,
		BlockedBy:  blocker,
		Reason: types.Errorf(types.ErrStepSkipped,
			"dependency %q did not succeed", blocker).Sanitized(),
	}}
}

func cancelOutcome(step types.PlanStep) stepOutcome {
	return stepOutcome{result: types.StepResult{
		StepID:     step.ID,
		Capability: step.Capability,
		Status:     types.StepSkipped,
		Reason: types.NewError(types.ErrCommandCancelled,
			"command cancelled before step started").Sanitized(),
	}}
}

func failOutcome(step types.PlanStep, err error) stepOutcome {
	return stepOutcome{result: types.StepResult{
		StepID:     step.ID,
		Capability: step.Capability,
		Status:     types.StepFailed,
		Reason:     types.AsError(err).Sanitized(),
	}}
}

// sanitizeInvocationError renders a handler error without leaking
// collaborator payloads. Structured errors keep their code and message;
// anything else collapses to a generic invocation failure.
func sanitizeInvocationError(capability string, err error) string {
	var e *types.Error
	if errors.As(err, &e) {
		return e.Sanitized()
	}
	return types.Errorf(types.ErrCapabilityInvocationFailed,
		"capability %q invocation failed", capability).Sanitized()
}
