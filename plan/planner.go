package plan

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/intent"
	"github.com/voxflow/voxflow/types"
)

// route binds an intent category to a capability. Routes are consulted in
// declaration order; the first match wins, which makes capability
// selection deterministic when categories overlap.
type route struct {
	category   types.IntentCategory
	capability string
}

// defaultRoutes is the built-in category-to-capability routing table.
var defaultRoutes = []route{
	{types.IntentPatientSearch, "patient.search"},
	{types.IntentChartOpen, "chart.open"},
	{types.IntentOrderLab, "order.lab"},
	{types.IntentOrderImaging, "order.imaging"},
	{types.IntentOrderMedication, "order.medication"},
	{types.IntentOrderList, "order.list"},
	{types.IntentMessageSend, "message.send"},
	{types.IntentReferralCreate, "referral.create"},
}

// patientProducers lists capabilities whose payload carries a resolved
// patient identifier, keyed by capability name with the payload field the
// identifier lives in. Later steps missing a literal patient_id bind to
// the nearest preceding producer.
var patientProducers = map[string]string{
	"patient.search": "patient_id",
	"chart.open":     "patient_id",
}

// Planner builds validated Plans from classified intents.
type Planner struct {
	registry *capability.Registry
	routes   []route
	logger   *zap.Logger
}

// NewPlanner creates a planner over the given capability registry.
func NewPlanner(registry *capability.Registry, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		registry: registry,
		routes:   defaultRoutes,
		logger:   logger.With(zap.String("component", "workflow_planner")),
	}
}

// routeCapability resolves the capability for an intent category.
func (p *Planner) routeCapability(category types.IntentCategory) (string, bool) {
	for _, r := range p.routes {
		if r.category == category {
			return r.capability, true
		}
	}
	return "", false
}

// Build maps each intent to one plan step in mention order, records data
// dependency edges, and validates the resulting graph. Planning errors
// abort the whole command before any dispatch.
func (p *Planner) Build(res intent.Result) (*types.Plan, error) {
	intents := res.MentionOrder()
	if len(intents) == 0 {
		return nil, types.NewError(types.ErrClassificationAmbiguous, "no intents to plan")
	}

	pl := &types.Plan{CommandID: res.Command.ID}
	// lastProducer is the most recent step whose payload carries a
	// resolved patient identifier.
	lastProducer := ""

	for _, it := range intents {
		capName, ok := p.routeCapability(it.Category)
		if !ok {
			return nil, types.Errorf(types.ErrUnknownCapability,
				"no capability routed for intent category %q", it.Category)
		}
		if !p.registry.Has(capName) {
			return nil, types.Errorf(types.ErrUnknownCapability,
				"capability %q is not registered", capName).WithCapability(capName)
		}

		step := types.PlanStep{
			ID:         fmt.Sprintf("step_%d", len(pl.Steps)+1),
			Capability: capName,
			Params:     make(map[string]any, len(it.Params)),
			Span:       it.Span,
		}
		for k, v := range it.Params {
			step.Params[k] = v
		}

		// Bind a missing patient identifier to the nearest preceding
		// producer, or synthesize a lookup when only a name was spoken.
		if needsPatientBinding(it, step) {
			switch {
			case lastProducer != "":
				step.Params["patient_id"] = types.ParamRef{
					StepID: lastProducer,
					Field:  patientProducers[mustCapability(pl, lastProducer)],
				}
				step.DependsOn = append(step.DependsOn, lastProducer)
			case step.Params["patient_name"] != nil:
				lookup := types.PlanStep{
					ID:         fmt.Sprintf("step_%d", len(pl.Steps)+1),
					Capability: "patient.search",
					Params:     map[string]any{"query": step.Params["patient_name"]},
					Span:       it.Span,
				}
				if !p.registry.Has(lookup.Capability) {
					return nil, types.Errorf(types.ErrUnknownCapability,
						"capability %q is not registered", lookup.Capability)
				}
				pl.Steps = append(pl.Steps, lookup)
				lastProducer = lookup.ID

				step.ID = fmt.Sprintf("step_%d", len(pl.Steps)+1)
				step.Params["patient_id"] = types.ParamRef{StepID: lookup.ID, Field: "patient_id"}
				step.DependsOn = append(step.DependsOn, lookup.ID)
			default:
				return nil, types.Errorf(types.ErrMissingParameter,
					"step %q requires patient_id with no literal value and no resolvable dependency",
					capName).WithCapability(capName)
			}
		}

		pl.Steps = append(pl.Steps, step)
		if _, produces := patientProducers[capName]; produces {
			lastProducer = step.ID
		}
	}

	if err := p.Validate(pl); err != nil {
		return nil, err
	}

	p.logger.Debug("plan built",
		zap.String("command_id", pl.CommandID),
		zap.Int("steps", len(pl.Steps)),
	)
	return pl, nil
}

// needsPatientBinding reports whether the step requires a patient_id it
// does not yet carry as a literal.
func needsPatientBinding(it types.Intent, step types.PlanStep) bool {
	required := false
	for _, name := range intent.RequiredParams(it.Category) {
		if name == "patient_id" {
			required = true
		}
	}
	if !required {
		return false
	}
	v, ok := step.Params["patient_id"]
	if !ok {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}

// mustCapability returns the capability of an already-appended step.
func mustCapability(pl *types.Plan, stepID string) string {
	s, _ := pl.Step(stepID)
	return s.Capability
}
