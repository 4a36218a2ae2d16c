// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package plan turns classified intents into an executable dependency graph.

The planner maps each intent category to a capability through a fixed
routing table, binds extracted parameters, and records explicit dependency
edges wherever a step needs the output of an earlier step — most commonly
the patient identifier resolved by a lookup. Steps that share no data
dependency carry no edge and are eligible for concurrent dispatch.

Every plan is validated before it reaches the dispatcher: unknown
capabilities, dependency cycles, references to nonexistent steps and
required parameters with neither a literal value nor a resolvable
dependency all fail the whole command up front, so no partial execution
can occur for a malformed command.
*/
package plan
