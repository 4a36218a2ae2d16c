package emr

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/types"
)

// labDescriptions maps abbreviations arriving through the API to full
// order descriptions. Spoken commands arrive already expanded; unmapped
// values pass through unchanged.
var labDescriptions = map[string]string{
	"cbc":        "Complete Blood Count",
	"bmp":        "Basic Metabolic Panel",
	"cmp":        "Comprehensive Metabolic Panel",
	"lipid":      "Lipid Panel",
	"hba1c":      "Hemoglobin A1C",
	"a1c":        "Hemoglobin A1C",
	"tsh":        "Thyroid Stimulating Hormone",
	"urinalysis": "Urinalysis",
	"culture":    "Blood Culture",
}

var imagingDescriptions = map[string]string{
	"chest_xray":     "Chest X-Ray",
	"abdominal_xray": "Abdominal X-Ray",
	"ct_head":        "CT Head without contrast",
	"ct_chest":       "CT Chest with contrast",
	"mri_brain":      "MRI Brain without contrast",
	"ultrasound":     "Ultrasound",
	"echo":           "Echocardiogram",
}

func describe(value string, table map[string]string) string {
	if desc, ok := table[strings.ToLower(value)]; ok {
		return desc
	}
	return value
}

// orderedBy resolves the ordering provider from the request context.
func orderedBy(ctx context.Context) string {
	if actor, ok := types.ActorID(ctx); ok {
		return actor
	}
	return "voice-assistant"
}

func stringParam(params map[string]any, name string) string {
	v, _ := params[name].(string)
	return v
}

// RegisterAll registers one handler per engine capability against the
// given EMR client. Registration is all-or-nothing: the first failure is
// returned and no rollback is attempted, matching startup-only use.
func RegisterAll(reg *capability.Registry, client Client, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "emr_handlers"))

	handlers := []struct {
		name   string
		schema *types.JSONSchema
		fn     func(ctx context.Context, params map[string]any) (map[string]any, error)
	}{
		{
			name: "patient.search",
			schema: types.NewObjectSchema().
				AddProperty("query", types.NewStringSchema().WithDescription("patient name, MRN or identifier")).
				AddRequired("query"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				query := stringParam(params, "query")
				patients, err := client.SearchPatients(ctx, query, 10)
				if err != nil {
					return nil, err
				}
				if len(patients) == 0 {
					return nil, types.Errorf(types.ErrCollaboratorError,
						"no patient matched %q", query)
				}

				matches := make([]map[string]any, 0, len(patients))
				for _, p := range patients {
					matches = append(matches, map[string]any{
						"id":            p.ID,
						"name":          p.FullName(),
						"mrn":           p.MRN,
						"date_of_birth": p.DateOfBirth,
					})
				}
				// The first match is the binding target for dependent steps.
				return map[string]any{
					"patient_id":   patients[0].ID,
					"patient_name": patients[0].FullName(),
					"match_count":  len(patients),
					"patients":     matches,
				}, nil
			},
		},
		{
			name: "chart.open",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddRequired("patient_id"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				patientID := stringParam(params, "patient_id")
				patient, err := client.GetPatient(ctx, patientID)
				if err != nil {
					return nil, err
				}
				chart, err := client.GetChart(ctx, patientID)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"patient_id":   patient.ID,
					"patient_name": patient.FullName(),
					"last_visit":   chart.LastVisit,
					"allergies":    chart.Allergies,
					"medications":  chart.Medications,
				}, nil
			},
		},
		{
			name: "order.lab",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddProperty("lab_type", types.NewStringSchema().WithDescription("lab test name or abbreviation")).
				AddRequired("patient_id", "lab_type"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				created, err := client.CreateOrder(ctx, Order{
					PatientID:   stringParam(params, "patient_id"),
					Type:        OrderTypeLab,
					Description: describe(stringParam(params, "lab_type"), labDescriptions),
					OrderedBy:   orderedBy(ctx),
				})
				if err != nil {
					return nil, err
				}
				return orderPayload(created), nil
			},
		},
		{
			name: "order.imaging",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddProperty("imaging_type", types.NewStringSchema()).
				AddProperty("reason", types.NewStringSchema()).
				AddRequired("patient_id", "imaging_type"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				reason := stringParam(params, "reason")
				if reason == "" {
					reason = "Clinical indication"
				}
				description := describe(stringParam(params, "imaging_type"), imagingDescriptions)
				created, err := client.CreateOrder(ctx, Order{
					PatientID:   stringParam(params, "patient_id"),
					Type:        OrderTypeImaging,
					Description: fmt.Sprintf("%s - %s", description, reason),
					OrderedBy:   orderedBy(ctx),
				})
				if err != nil {
					return nil, err
				}
				return orderPayload(created), nil
			},
		},
		{
			name: "order.medication",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddProperty("medication", types.NewStringSchema()).
				AddProperty("dosage", types.NewStringSchema()).
				AddProperty("frequency", types.NewStringSchema()).
				AddRequired("patient_id", "medication"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				description := strings.TrimSpace(strings.Join([]string{
					stringParam(params, "medication"),
					stringParam(params, "dosage"),
					stringParam(params, "frequency"),
				}, " "))
				created, err := client.CreateOrder(ctx, Order{
					PatientID:   stringParam(params, "patient_id"),
					Type:        OrderTypeMedication,
					Description: strings.Join(strings.Fields(description), " "),
					OrderedBy:   orderedBy(ctx),
				})
				if err != nil {
					return nil, err
				}
				return orderPayload(created), nil
			},
		},
		{
			name: "order.list",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddRequired("patient_id"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				orders, err := client.ListOrders(ctx, stringParam(params, "patient_id"))
				if err != nil {
					return nil, err
				}
				list := make([]map[string]any, 0, len(orders))
				for _, o := range orders {
					list = append(list, orderPayload(&o))
				}
				return map[string]any{
					"patient_id": stringParam(params, "patient_id"),
					"count":      len(orders),
					"orders":     list,
				}, nil
			},
		},
		{
			name: "message.send",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddProperty("message", types.NewStringSchema()).
				AddProperty("message_type", types.NewEnumSchema("general", "appointment", "lab_results")).
				AddRequired("patient_id"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				messageType := stringParam(params, "message_type")
				if messageType == "" {
					messageType = "general"
				}
				message := stringParam(params, "message")
				if message == "" {
					message = defaultMessage(messageType)
				}
				patientID := stringParam(params, "patient_id")
				if err := client.SendMessage(ctx, patientID, message, messageType); err != nil {
					return nil, err
				}
				return map[string]any{
					"patient_id":   patientID,
					"message_type": messageType,
					"delivered":    true,
				}, nil
			},
		},
		{
			name: "referral.create",
			schema: types.NewObjectSchema().
				AddProperty("patient_id", types.NewStringSchema()).
				AddProperty("specialty", types.NewStringSchema()).
				AddProperty("reason", types.NewStringSchema()).
				AddRequired("patient_id", "specialty"),
			fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				patientID := stringParam(params, "patient_id")
				specialty := stringParam(params, "specialty")
				reason := stringParam(params, "reason")
				if reason == "" {
					reason = "Specialist evaluation requested"
				}
				if err := client.CreateReferral(ctx, patientID, specialty, reason); err != nil {
					return nil, err
				}
				return map[string]any{
					"patient_id": patientID,
					"specialty":  specialty,
					"created":    true,
				}, nil
			},
		},
	}

	for _, h := range handlers {
		if err := reg.Register(h.name, capability.NewHandlerFunc(h.name, h.fn), h.schema); err != nil {
			return err
		}
	}
	log.Info("EMR capabilities registered", zap.Int("count", len(handlers)))
	return nil
}

func orderPayload(o *Order) map[string]any {
	return map[string]any{
		"order_id":    o.ID,
		"patient_id":  o.PatientID,
		"order_type":  o.Type,
		"description": o.Description,
		"status":      o.Status,
		"ordered_by":  o.OrderedBy,
		"created_at":  o.CreatedAt,
	}
}

func defaultMessage(messageType string) string {
	switch messageType {
	case "appointment":
		return "You have an upcoming appointment. Please contact the office with any questions."
	case "lab_results":
		return "Your lab results are available. Please contact your care team to review them."
	default:
		return "You have a new notification from your care team."
	}
}
