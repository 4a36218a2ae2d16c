package plan

import (
	"github.com/voxflow/voxflow/types"
)

// Validate rejects a plan that cannot be dispatched safely: duplicate or
// unknown step references, dependency cycles, capabilities absent from the
// registry, or required parameters with neither a literal value nor a
// resolvable dependency.
func (p *Planner) Validate(pl *types.Plan) error {
	if len(pl.Steps) == 0 {
		return types.NewError(types.ErrMissingParameter, "plan has no steps")
	}

	ids := make(map[string]bool, len(pl.Steps))
	for _, s := range pl.Steps {
		if ids[s.ID] {
			return types.Errorf(types.ErrCyclicDependency, "duplicate step id %q", s.ID)
		}
		ids[s.ID] = true
	}

	for _, s := range pl.Steps {
		entry, ok := p.registry.Lookup(s.Capability)
		if !ok {
			return types.Errorf(types.ErrUnknownCapability,
				"step %q uses unregistered capability %q", s.ID, s.Capability).
				WithCapability(s.Capability)
		}

		for _, dep := range s.DependsOn {
			if !ids[dep] {
				return types.Errorf(types.ErrCyclicDependency,
					"step %q depends on unknown step %q", s.ID, dep)
			}
			if dep == s.ID {
				return types.Errorf(types.ErrCyclicDependency,
					"step %q depends on itself", s.ID)
			}
		}

		// Parameter references must point at declared dependencies.
		for name, v := range s.Params {
			ref, isRef := v.(types.ParamRef)
			if !isRef {
				continue
			}
			if !ids[ref.StepID] {
				return types.Errorf(types.ErrCyclicDependency,
					"step %q parameter %q references unknown step %q", s.ID, name, ref.StepID)
			}
			if !containsString(s.DependsOn, ref.StepID) {
				return types.Errorf(types.ErrCyclicDependency,
					"step %q parameter %q references step %q without a dependency edge",
					s.ID, name, ref.StepID)
			}
		}

		// Every schema-required parameter needs a literal or a reference.
		for _, name := range entry.Schema.Required {
			v, ok := s.Params[name]
			if !ok || v == nil {
				return types.Errorf(types.ErrMissingParameter,
					"step %q missing required parameter %q", s.ID, name).
					WithCapability(s.Capability)
			}
			if str, isStr := v.(string); isStr && str == "" {
				return types.Errorf(types.ErrMissingParameter,
					"step %q required parameter %q is empty", s.ID, name).
					WithCapability(s.Capability)
			}
		}
	}

	if hasCycle(pl) {
		return types.NewError(types.ErrCyclicDependency, "dependency graph contains a cycle")
	}
	return nil
}

// hasCycle runs Kahn's algorithm over the dependency edges. Steps that
// never reach zero in-degree are part of a cycle.
func hasCycle(pl *types.Plan) bool {
	indegree := make(map[string]int, len(pl.Steps))
	dependents := make(map[string][]string, len(pl.Steps))

	for _, s := range pl.Steps {
		indegree[s.ID] += 0
		for _, dep := range s.DependsOn {
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	queue := make([]string, 0, len(pl.Steps))
	for _, s := range pl.Steps {
		if indegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited != len(pl.Steps)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
