package orchestrator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

// Aggregator folds step results into the unified command response.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger.With(zap.String("component", "aggregator"))}
}

// Aggregate computes the overall status and summary from step results.
// Results arrive in plan declaration order and are passed through
// unchanged; the reasons they carry are already sanitized by dispatch.
func (a *Aggregator) Aggregate(cmd types.Command, results []types.StepResult, cancelled bool) *types.AggregatedResponse {
	succeeded := 0
	for _, res := range results {
		if res.Status == types.StepSucceeded {
			succeeded++
		}
	}

	var status types.ResponseStatus
	switch {
	case cancelled:
		status = types.ResponseCancelled
	case succeeded == len(results):
		status = types.ResponseSucceeded
	case succeeded == 0:
		status = types.ResponseFailed
	default:
		status = types.ResponsePartial
	}

	return &types.AggregatedResponse{
		CommandID: cmd.ID,
		Status:    status,
		Steps:     results,
		Summary:   buildSummary(results, status),
	}
}

// buildSummary renders one sentence per step: what succeeded, what
// failed and why, and what was skipped behind which dependency.
func buildSummary(results []types.StepResult, status types.ResponseStatus) string {
	parts := make([]string, 0, len(results)+1)
	if status == types.ResponseCancelled {
		parts = append(parts, "The command was cancelled before completing")
	}
	for _, res := range results {
		parts = append(parts, describeStep(res))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

func describeStep(res types.StepResult) string {
	switch res.Status {
	case types.StepSucceeded:
		return describeSuccess(res)
	case types.StepSkipped:
		if res.BlockedBy != "" {
			return fmt.Sprintf("Skipped %s because %s did not succeed", res.Capability, res.BlockedBy)
		}
		return fmt.Sprintf("Skipped %s: %s", res.Capability, res.Reason)
	case types.StepTimedOut:
		return fmt.Sprintf("%s timed out: %s", res.Capability, res.Reason)
	default:
		return fmt.Sprintf("%s failed: %s", res.Capability, res.Reason)
	}
}

func describeSuccess(res types.StepResult) string {
	p := res.Payload
	switch res.Capability {
	case "patient.search":
		name, _ := p["patient_name"].(string)
		if matches := payloadInt(p, "match_count"); matches > 1 {
			return fmt.Sprintf("Found patient %s (%d matches)", name, matches)
		}
		return fmt.Sprintf("Found patient %s", name)
	case "chart.open":
		if name, ok := p["patient_name"].(string); ok && name != "" {
			return fmt.Sprintf("Opened the chart for %s", name)
		}
		return "Opened the patient chart"
	case "order.lab", "order.imaging", "order.medication":
		if desc, ok := p["description"].(string); ok && desc != "" {
			return fmt.Sprintf("Placed %s order: %s", p["order_type"], desc)
		}
		return fmt.Sprintf("Placed a %s order", strings.TrimPrefix(res.Capability, "order."))
	case "order.list":
		return fmt.Sprintf("Retrieved %d orders", payloadInt(p, "count"))
	case "message.send":
		if mt, ok := p["message_type"].(string); ok && mt != "" {
			return fmt.Sprintf("Sent a %s message to the patient", mt)
		}
		return "Sent a message to the patient"
	case "referral.create":
		if specialty, ok := p["specialty"].(string); ok && specialty != "" {
			return fmt.Sprintf("Created a %s referral", specialty)
		}
		return "Created a referral"
	default:
		return fmt.Sprintf("Completed %s", res.Capability)
	}
}

// payloadInt reads a numeric payload field regardless of whether it was
// produced in-process (int) or decoded from JSON (float64).
func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
