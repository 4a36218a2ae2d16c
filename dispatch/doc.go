// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package dispatch executes validated plans against the capability registry.

The coordinator runs a level-parallel topological walk over the plan: every
step whose dependencies have finished is ready, ready steps run as
goroutines bounded by a concurrency limit, and the ready set is
re-evaluated each time a step reaches a terminal state. Parameter
references are resolved from upstream payloads immediately before launch.

Failures stay local to their branch. A failed or timed-out step marks its
direct and transitive dependents skipped while independent branches keep
running, so one slow or broken collaborator never takes down the rest of a
compound command. Every step gets exactly one terminal result and the
caller receives them in plan declaration order regardless of completion
order.
*/
package dispatch
