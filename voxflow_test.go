package voxflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/types"
)

func TestNew_DefaultsToFakeEMR(t *testing.T) {
	t.Parallel()

	engine, err := New()
	require.NoError(t, err)

	resp, err := engine.ProcessCommand(context.Background(), "order CBC for patient 123")
	require.NoError(t, err)
	assert.Equal(t, types.ResponseSucceeded, resp.Status)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, "order.lab", resp.Steps[0].Capability)
}
