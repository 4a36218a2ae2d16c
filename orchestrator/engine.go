package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/dispatch"
	"github.com/voxflow/voxflow/intent"
	"github.com/voxflow/voxflow/internal/session"
	"github.com/voxflow/voxflow/plan"
	"github.com/voxflow/voxflow/types"
)

// Metrics is the engine's observability sink. The metrics collector
// implements it; tests use the no-op default.
type Metrics interface {
	dispatch.Observer
	ObserveCommand(status types.ResponseStatus, latency time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) StepStarted(string) {}

func (nopMetrics) StepFinished(types.StepResult) {}

func (nopMetrics) ObserveCommand(types.ResponseStatus, time.Duration) {}

// Config holds engine settings.
type Config struct {
	Intent   intent.Config   `yaml:"intent"`
	Dispatch dispatch.Config `yaml:"dispatch"`
}

// DefaultConfig returns the documented engine defaults.
func DefaultConfig() Config {
	return Config{
		Intent:   intent.DefaultConfig(),
		Dispatch: dispatch.DefaultConfig(),
	}
}

// Engine wires the classifier, planner, coordinator and aggregator into
// the command processing pipeline.
type Engine struct {
	registry   *capability.Registry
	classifier *intent.Classifier
	planner    *plan.Planner
	aggregator *Aggregator
	config     Config
	metrics    Metrics
	sessions   session.Store
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMetrics attaches the metrics collector.
func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSessionStore enables cross-command session context.
func WithSessionStore(s session.Store) EngineOption {
	return func(e *Engine) { e.sessions = s }
}

// NewEngine creates an engine over the given capability registry.
func NewEngine(registry *capability.Registry, config Config, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		registry:   registry,
		classifier: intent.NewClassifier(config.Intent, logger),
		planner:    plan.NewPlanner(registry, logger),
		aggregator: NewAggregator(logger),
		config:     config,
		metrics:    nopMetrics{},
		logger:     logger.With(zap.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// commandOptions carries per-command settings.
type commandOptions struct {
	sessionID     string
	actorID       string
	transcription float64
}

// CommandOption configures one command.
type CommandOption func(*commandOptions)

// WithSession links the command to a session so resolved patient context
// carries over to the next command.
func WithSession(id string) CommandOption {
	return func(o *commandOptions) { o.sessionID = id }
}

// WithActor records who issued the command; it flows into audit fields
// such as the ordering provider.
func WithActor(id string) CommandOption {
	return func(o *commandOptions) { o.actorID = id }
}

// WithTranscriptionConfidence attaches the speech-to-text confidence.
// Commands below the configured threshold are rejected as ambiguous.
func WithTranscriptionConfidence(c float64) CommandOption {
	return func(o *commandOptions) { o.transcription = c }
}

// ProcessCommand takes one spoken command through classification,
// planning, dispatch and aggregation. Pre-dispatch problems return a
// *types.Error and no capability is invoked; once dispatch starts the
// response is always well formed and the returned error is nil.
func (e *Engine) ProcessCommand(ctx context.Context, text string, opts ...CommandOption) (*types.AggregatedResponse, error) {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}
	return e.execute(ctx, text, o, runHooks{})
}

// runHooks let the streaming variant observe pipeline progress.
type runHooks struct {
	onClassified func(res intent.Result)
	observer     dispatch.Observer
}

func (e *Engine) execute(ctx context.Context, text string, o commandOptions, hooks runHooks) (*types.AggregatedResponse, error) {
	start := time.Now()

	cmd := types.NewCommand(text)
	cmd.TranscriptionConfidence = o.transcription
	cmd.SessionID = o.sessionID

	ctx = types.WithCommandID(ctx, cmd.ID)
	if o.sessionID != "" {
		ctx = types.WithSessionID(ctx, o.sessionID)
	}
	if o.actorID != "" {
		ctx = types.WithActorID(ctx, o.actorID)
	}

	res := e.classifier.Classify(cmd)
	if hooks.onClassified != nil {
		hooks.onClassified(res)
	}

	switch res.Kind {
	case types.KindAmbiguous:
		return nil, e.reject(cmd, start, types.NewError(types.ErrClassificationAmbiguous,
			"could not confidently understand the command, please rephrase"))
	case types.KindIncomplete:
		return nil, e.reject(cmd, start, types.Errorf(types.ErrIncompleteIntent,
			"command is missing required details: %s",
			strings.Join(missingDetails(res), ", ")))
	}

	e.applySessionContext(ctx, &res)

	pl, err := e.planner.Build(res)
	if err != nil {
		return nil, e.reject(cmd, start, types.AsError(err))
	}

	observer := dispatch.Observer(e.metrics)
	if hooks.observer != nil {
		observer = multiObserver{e.metrics, hooks.observer}
	}
	coordinator := dispatch.NewCoordinator(e.config.Dispatch, e.logger, dispatch.WithObserver(observer))
	results := coordinator.Execute(ctx, pl, e.registry)

	resp := e.aggregator.Aggregate(cmd, results, ctx.Err() != nil)
	resp.Latency = time.Since(start)

	e.rememberPatient(ctx, o.sessionID, results)
	e.metrics.ObserveCommand(resp.Status, resp.Latency)

	e.logger.Info("command processed",
		zap.String("command_id", cmd.ID),
		zap.String("status", string(resp.Status)),
		zap.Int("steps", len(resp.Steps)),
		zap.Duration("latency", resp.Latency),
	)
	return resp, nil
}

// reject records and returns a pre-dispatch command rejection.
func (e *Engine) reject(cmd types.Command, start time.Time, err *types.Error) *types.Error {
	e.metrics.ObserveCommand(types.ResponseFailed, time.Since(start))
	e.logger.Info("command rejected",
		zap.String("command_id", cmd.ID),
		zap.String("code", string(err.Code)),
	)
	return err
}

// missingDetails collects the non-deferrable missing parameter names
// across all intents, deduplicated and sorted for a stable message.
func missingDetails(res intent.Result) []string {
	seen := map[string]bool{}
	for _, it := range res.Intents {
		deferrable := intent.DeferrableParams(it.Category)
		for _, name := range it.MissingParams {
			if !containsName(deferrable, name) {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsName(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// applySessionContext fills a missing patient identity from the session's
// remembered patient, so "now order a CBC" binds to the patient resolved
// by the previous command.
func (e *Engine) applySessionContext(ctx context.Context, res *intent.Result) {
	if e.sessions == nil || res.Command.SessionID == "" {
		return
	}
	state, err := e.sessions.Get(ctx, res.Command.SessionID)
	if err != nil || state.PatientID == "" {
		return
	}

	for i := range res.Intents {
		it := &res.Intents[i]
		if !containsName(it.MissingParams, "patient_id") {
			continue
		}
		if _, named := it.Params["patient_name"]; named {
			continue
		}
		it.Params["patient_id"] = state.PatientID
		it.MissingParams = removeName(it.MissingParams, "patient_id")

		e.logger.Debug("patient bound from session",
			zap.String("session_id", res.Command.SessionID),
			zap.String("patient_id", state.PatientID),
		)
	}
}

func removeName(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// rememberPatient stores the last successfully resolved patient in the
// session for follow-up commands.
func (e *Engine) rememberPatient(ctx context.Context, sessionID string, results []types.StepResult) {
	if e.sessions == nil || sessionID == "" {
		return
	}

	state := session.State{}
	for _, res := range results {
		if res.Status != types.StepSucceeded {
			continue
		}
		if res.Capability != "patient.search" && res.Capability != "chart.open" {
			continue
		}
		if id, ok := res.Payload["patient_id"].(string); ok && id != "" {
			state.PatientID = id
			if name, ok := res.Payload["patient_name"].(string); ok {
				state.PatientName = name
			}
		}
	}
	if state.PatientID == "" {
		return
	}
	if err := e.sessions.Put(ctx, sessionID, state); err != nil {
		e.logger.Warn("failed to persist session context",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// multiObserver fans lifecycle events out to several observers.
type multiObserver []dispatch.Observer

func (m multiObserver) StepStarted(capability string) {
	for _, o := range m {
		o.StepStarted(capability)
	}
}

func (m multiObserver) StepFinished(result types.StepResult) {
	for _, o := range m {
		o.StepFinished(result)
	}
}
