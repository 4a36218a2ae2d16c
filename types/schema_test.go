package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderSchema() *JSONSchema {
	return NewObjectSchema().
		AddProperty("patient_id", NewStringSchema().WithDescription("Patient identifier")).
		AddProperty("lab_type", NewStringSchema()).
		AddProperty("priority", NewEnumSchema("routine", "stat")).
		AddRequired("patient_id", "lab_type")
}

func TestJSONSchema_ValidateShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		schema  *JSONSchema
		wantErr ErrorCode
	}{
		{name: "valid object schema", schema: orderSchema()},
		{name: "nil schema", schema: nil, wantErr: ErrInvalidSchema},
		{name: "non-object schema", schema: NewStringSchema(), wantErr: ErrInvalidSchema},
		{
			name:    "required property not declared",
			schema:  NewObjectSchema().AddRequired("ghost"),
			wantErr: ErrInvalidSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.schema.ValidateShape()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsErrorCode(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestJSONSchema_ValidateParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  map[string]any
		wantErr ErrorCode
	}{
		{
			name:   "all required present",
			params: map[string]any{"patient_id": "12345", "lab_type": "cbc"},
		},
		{
			name:    "missing required",
			params:  map[string]any{"lab_type": "cbc"},
			wantErr: ErrMissingParameter,
		},
		{
			name:    "empty required string",
			params:  map[string]any{"patient_id": "", "lab_type": "cbc"},
			wantErr: ErrMissingParameter,
		},
		{
			name:    "wrong type",
			params:  map[string]any{"patient_id": 42, "lab_type": "cbc"},
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "enum violation",
			params:  map[string]any{"patient_id": "12345", "lab_type": "cbc", "priority": "yesterday"},
			wantErr: ErrInvalidParameter,
		},
		{
			name:   "enum accepted",
			params: map[string]any{"patient_id": "12345", "lab_type": "cbc", "priority": "stat"},
		},
		{
			name:   "unknown params pass through",
			params: map[string]any{"patient_id": "12345", "lab_type": "cbc", "note": "fasting"},
		},
	}

	schema := orderSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := schema.ValidateParams(tt.params)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsErrorCode(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	t.Parallel()
	data, err := orderSchema().ToJSON()
	require.NoError(t, err)

	got, err := SchemaFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, SchemaTypeObject, got.Type)
	assert.True(t, got.IsRequired("patient_id"))
	assert.False(t, got.IsRequired("priority"))
}

func TestStepStatus(t *testing.T) {
	t.Parallel()
	for _, s := range []StepStatus{StepSucceeded, StepFailed, StepSkipped, StepTimedOut} {
		assert.True(t, s.Terminal())
	}
	assert.False(t, StepStatus("running").Terminal())

	assert.True(t, StepFailed.Failure())
	assert.True(t, StepTimedOut.Failure())
	assert.False(t, StepSucceeded.Failure())
	assert.False(t, StepSkipped.Failure())
}
