// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type contracts of the VoxFlow engine.

types is the lowest-level package and depends on no other VoxFlow package.
The capability, intent, plan, dispatch and orchestrator packages all build
on the contracts defined here, which keeps the import graph acyclic.

Core types:

  - Command            — one immutable inbound command (text + confidence)
  - Intent             — a classified purpose with extracted parameters
  - Plan / PlanStep    — the validated dependency graph for one command
  - StepResult         — terminal outcome of a single capability invocation
  - AggregatedResponse — the unified, ordered result of a whole command
  - Error / ErrorCode  — structured error taxonomy shared across stages
  - JSONSchema         — parameter schema declaration and validation
  - MetricsSnapshot    — point-in-time counters and latency summaries

Context propagation helpers (WithSessionID, WithCommandID, WithActorID)
carry request-scoped identity through classification and dispatch.
*/
package types
