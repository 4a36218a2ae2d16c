package types

import (
	"fmt"
	"time"
)

// ParamRef is a deferred parameter binding: the value is taken from the
// named field of an upstream step's payload once that step succeeds.
type ParamRef struct {
	// StepID is the upstream step whose payload supplies the value.
	StepID string `json:"step_id"`
	// Field is the payload field to read.
	Field string `json:"field"`
}

// String implements fmt.Stringer for log output.
func (r ParamRef) String() string {
	return fmt.Sprintf("${%s.%s}", r.StepID, r.Field)
}

// PlanStep is one capability invocation within a Plan. Parameter values are
// either literals or ParamRef references resolved at dispatch time.
type PlanStep struct {
	// ID uniquely identifies the step within its Plan.
	ID string `json:"id"`
	// Capability names the registry entry to invoke.
	Capability string `json:"capability"`
	// Params maps parameter names to literal values or ParamRef bindings.
	Params map[string]any `json:"params,omitempty"`
	// DependsOn lists step IDs that must reach a terminal state before
	// this step may start. Steps with no dependencies are ready immediately.
	DependsOn []string `json:"depends_on,omitempty"`
	// Span is the command fragment the step was planned from.
	Span string `json:"span,omitempty"`
}

// Plan is the executable dependency graph derived from one command's
// intents. Step order is the declaration order and determines the ordering
// of results in the AggregatedResponse. A Plan is owned by the dispatch
// invocation that executes it and must not be shared.
type Plan struct {
	// CommandID links the plan back to its originating command.
	CommandID string `json:"command_id"`
	// Steps holds the plan steps in declaration order.
	Steps []PlanStep `json:"steps"`
}

// Step returns the step with the given ID, or false if absent.
func (p *Plan) Step(id string) (PlanStep, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return PlanStep{}, false
}

// StepStatus is the terminal state of one plan step.
type StepStatus string

const (
	// StepSucceeded means the capability invocation returned a payload.
	StepSucceeded StepStatus = "succeeded"
	// StepFailed means the capability invocation returned an error.
	StepFailed StepStatus = "failed"
	// StepSkipped means the step never ran because a dependency failed
	// or the command was cancelled.
	StepSkipped StepStatus = "skipped"
	// StepTimedOut means the invocation exceeded its per-step timeout.
	// Timed-out steps count as failures for dependency propagation.
	StepTimedOut StepStatus = "timed_out"
)

// Terminal reports whether the status represents a finished step.
// All four statuses are terminal; the method exists so trace assertions
// read naturally.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepSucceeded, StepFailed, StepSkipped, StepTimedOut:
		return true
	}
	return false
}

// Failure reports whether the status propagates as a failure to dependents.
func (s StepStatus) Failure() bool {
	return s == StepFailed || s == StepTimedOut
}

// StepResult is the terminal outcome of one plan step.
type StepResult struct {
	// StepID identifies the plan step.
	StepID string `json:"step_id"`
	// Capability names the invoked capability.
	Capability string `json:"capability"`
	// Status is the terminal status.
	Status StepStatus `json:"status"`
	// Payload is the structured result on success.
	Payload map[string]any `json:"payload,omitempty"`
	// Reason is a sanitized failure or skip reason. Collaborator error
	// payloads are never copied here verbatim.
	Reason string `json:"reason,omitempty"`
	// BlockedBy names the failed dependency for skipped steps.
	BlockedBy string `json:"blocked_by,omitempty"`
	// Latency is the invocation duration. Zero for skipped steps.
	Latency time.Duration `json:"latency"`
}

// ResponseStatus is the overall outcome of one command.
type ResponseStatus string

const (
	// ResponseSucceeded means every step succeeded.
	ResponseSucceeded ResponseStatus = "succeeded"
	// ResponsePartial means some steps succeeded and others failed or
	// were skipped.
	ResponsePartial ResponseStatus = "partial"
	// ResponseFailed means no step succeeded.
	ResponseFailed ResponseStatus = "failed"
	// ResponseCancelled means the command was cancelled before completion.
	ResponseCancelled ResponseStatus = "cancelled"
)

// AggregatedResponse is the unified result of one command. StepResults
// appear in plan declaration order regardless of completion order.
type AggregatedResponse struct {
	// CommandID identifies the originating command.
	CommandID string `json:"command_id"`
	// Status is the overall command outcome.
	Status ResponseStatus `json:"status"`
	// Steps holds one result per plan step, in declaration order.
	Steps []StepResult `json:"steps"`
	// Summary is a generated human-readable account of what happened.
	Summary string `json:"summary"`
	// Latency is the end-to-end command duration.
	Latency time.Duration `json:"latency"`
}
