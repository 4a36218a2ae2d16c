package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

func step(id, capability string, status types.StepStatus) types.StepResult {
	return types.StepResult{StepID: id, Capability: capability, Status: status}
}

func TestAggregate_StatusRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		results   []types.StepResult
		cancelled bool
		want      types.ResponseStatus
	}{
		{
			name: "all succeeded",
			results: []types.StepResult{
				step("step_1", "patient.search", types.StepSucceeded),
				step("step_2", "order.lab", types.StepSucceeded),
			},
			want: types.ResponseSucceeded,
		},
		{
			name: "mixed outcomes are partial",
			results: []types.StepResult{
				step("step_1", "patient.search", types.StepSucceeded),
				step("step_2", "order.lab", types.StepFailed),
			},
			want: types.ResponsePartial,
		},
		{
			name: "timed out counts as not succeeded",
			results: []types.StepResult{
				step("step_1", "patient.search", types.StepSucceeded),
				step("step_2", "order.imaging", types.StepTimedOut),
			},
			want: types.ResponsePartial,
		},
		{
			name: "nothing succeeded",
			results: []types.StepResult{
				step("step_1", "patient.search", types.StepFailed),
				step("step_2", "order.lab", types.StepSkipped),
			},
			want: types.ResponseFailed,
		},
		{
			name: "cancellation dominates",
			results: []types.StepResult{
				step("step_1", "patient.search", types.StepSucceeded),
			},
			cancelled: true,
			want:      types.ResponseCancelled,
		},
	}

	a := NewAggregator(zap.NewNop())
	cmd := types.NewCommand("test")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := a.Aggregate(cmd, tt.results, tt.cancelled)
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, cmd.ID, resp.CommandID)
			assert.Len(t, resp.Steps, len(tt.results))
		})
	}
}

func TestAggregate_SummaryNamesOutcomes(t *testing.T) {
	t.Parallel()
	a := NewAggregator(zap.NewNop())

	results := []types.StepResult{
		{
			StepID: "step_1", Capability: "patient.search", Status: types.StepSucceeded,
			Payload: map[string]any{"patient_name": "Jane Smith", "match_count": 1},
		},
		{
			StepID: "step_2", Capability: "order.lab", Status: types.StepFailed,
			Reason: "[COLLABORATOR_ERROR] emr returned status 502",
		},
		{
			StepID: "step_3", Capability: "message.send", Status: types.StepSkipped,
			BlockedBy: "step_2",
		},
	}

	resp := a.Aggregate(types.NewCommand("test"), results, false)
	assert.Contains(t, resp.Summary, "Found patient Jane Smith")
	assert.Contains(t, resp.Summary, "order.lab failed: [COLLABORATOR_ERROR] emr returned status 502")
	assert.Contains(t, resp.Summary, "Skipped message.send because step_2 did not succeed")
}

func TestAggregate_SummaryHandlesJSONNumbers(t *testing.T) {
	t.Parallel()
	a := NewAggregator(zap.NewNop())

	results := []types.StepResult{
		{
			StepID: "step_1", Capability: "order.list", Status: types.StepSucceeded,
			Payload: map[string]any{"count": float64(3)},
		},
	}
	resp := a.Aggregate(types.NewCommand("test"), results, false)
	assert.Contains(t, resp.Summary, "Retrieved 3 orders")
}

func TestAggregate_PreservesDeclarationOrder(t *testing.T) {
	t.Parallel()
	a := NewAggregator(zap.NewNop())

	results := []types.StepResult{
		step("step_1", "patient.search", types.StepSucceeded),
		step("step_2", "order.lab", types.StepSucceeded),
		step("step_3", "message.send", types.StepSucceeded),
	}
	resp := a.Aggregate(types.NewCommand("test"), results, false)
	for i, res := range resp.Steps {
		assert.Equal(t, results[i].StepID, res.StepID)
	}
}
