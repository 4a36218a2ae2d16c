package emr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/types"
)

func registeredHandlers(t *testing.T) (*capability.Registry, *Fake) {
	t.Helper()
	fake := NewFake()
	reg := capability.NewRegistry(zap.NewNop())
	require.NoError(t, RegisterAll(reg, fake, zap.NewNop()))
	return reg, fake
}

func invoke(t *testing.T, reg *capability.Registry, name string, params map[string]any) (map[string]any, error) {
	t.Helper()
	entry, ok := reg.Lookup(name)
	require.True(t, ok, "capability %s not registered", name)
	require.NoError(t, entry.Schema.ValidateParams(params))
	return entry.Handler.Invoke(context.Background(), params)
}

func TestRegisterAll_CoversEveryCapability(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	want := []string{
		"chart.open", "message.send", "order.imaging", "order.lab",
		"order.list", "order.medication", "patient.search", "referral.create",
	}
	assert.Equal(t, want, reg.List())
}

func TestPatientSearchHandler(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "patient.search", map[string]any{"query": "Smith"})
	require.NoError(t, err)
	assert.Equal(t, "456", payload["patient_id"])
	assert.Equal(t, "Jane Smith", payload["patient_name"])
	assert.Equal(t, 1, payload["match_count"])
}

func TestPatientSearchHandler_NoMatch(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	_, err := invoke(t, reg, "patient.search", map[string]any{"query": "Nobody"})
	assert.True(t, types.IsErrorCode(err, types.ErrCollaboratorError))
}

func TestChartOpenHandler(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "chart.open", map[string]any{"patient_id": "123"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", payload["patient_name"])
	assert.Equal(t, []string{"Penicillin"}, payload["allergies"])
}

func TestOrderLabHandler_ExpandsAbbreviations(t *testing.T) {
	t.Parallel()
	reg, fake := registeredHandlers(t)

	payload, err := invoke(t, reg, "order.lab", map[string]any{
		"patient_id": "123",
		"lab_type":   "cbc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Complete Blood Count", payload["description"])
	assert.NotEmpty(t, payload["order_id"])

	orders, err := fake.ListOrders(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, OrderTypeLab, orders[0].Type)
}

func TestOrderLabHandler_PassesFullNamesThrough(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "order.lab", map[string]any{
		"patient_id": "456",
		"lab_type":   "Lipid Panel",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lipid Panel", payload["description"])
}

func TestOrderImagingHandler_DefaultReason(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "order.imaging", map[string]any{
		"patient_id":   "123",
		"imaging_type": "chest_xray",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chest X-Ray - Clinical indication", payload["description"])
}

func TestOrderMedicationHandler(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "order.medication", map[string]any{
		"patient_id": "123",
		"medication": "lisinopril",
		"dosage":     "10mg",
		"frequency":  "daily",
	})
	require.NoError(t, err)
	assert.Equal(t, "lisinopril 10mg daily", payload["description"])
}

func TestOrderListHandler(t *testing.T) {
	t.Parallel()
	reg, fake := registeredHandlers(t)

	_, err := fake.CreateOrder(context.Background(), Order{
		PatientID: "456", Type: OrderTypeLab, Description: "Urinalysis", OrderedBy: "dr-lee",
	})
	require.NoError(t, err)

	payload, err := invoke(t, reg, "order.list", map[string]any{"patient_id": "456"})
	require.NoError(t, err)
	assert.Equal(t, 1, payload["count"])
}

func TestMessageSendHandler_Defaults(t *testing.T) {
	t.Parallel()
	reg, fake := registeredHandlers(t)

	payload, err := invoke(t, reg, "message.send", map[string]any{
		"patient_id":   "123",
		"message_type": "lab_results",
	})
	require.NoError(t, err)
	assert.Equal(t, true, payload["delivered"])

	msgs := fake.Messages("123")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "lab_results")
}

func TestReferralCreateHandler(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	payload, err := invoke(t, reg, "referral.create", map[string]any{
		"patient_id": "123",
		"specialty":  "cardiology",
	})
	require.NoError(t, err)
	assert.Equal(t, true, payload["created"])
}

func TestHandlers_UnknownPatientFails(t *testing.T) {
	t.Parallel()
	reg, _ := registeredHandlers(t)

	_, err := invoke(t, reg, "order.lab", map[string]any{
		"patient_id": "999",
		"lab_type":   "cbc",
	})
	assert.True(t, types.IsErrorCode(err, types.ErrCollaboratorError))
}

func TestOrderedBy_UsesActorFromContext(t *testing.T) {
	t.Parallel()
	reg, fake := registeredHandlers(t)

	entry, ok := reg.Lookup("order.lab")
	require.True(t, ok)

	ctx := types.WithActorID(context.Background(), "dr-garcia")
	_, err := entry.Handler.Invoke(ctx, map[string]any{"patient_id": "123", "lab_type": "tsh"})
	require.NoError(t, err)

	orders, err := fake.ListOrders(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "dr-garcia", orders[0].OrderedBy)
}
