// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package orchestrator is the engine facade: one call takes a spoken
command from raw text to an aggregated response.

ProcessCommand runs the full pipeline. Classification and planning
problems reject the command up front with a structured error and zero
capability invocations, so a command that cannot be fully understood
never partially executes. Once dispatch starts, failures stay inside the
response: the aggregator folds every step outcome into a single
AggregatedResponse with an overall status and a human-readable summary
that never leaks raw collaborator payloads.

ProcessStream is the incremental variant for live transcription. It
accumulates transcript fragments and emits updates as the command is
received, classified and executed step by step, ending with the same
aggregated response ProcessCommand would return.

With a session store attached, the patient resolved by one command is
remembered so a follow-up like "now order a CBC" binds to the same
patient without repeating the name.
*/
package orchestrator
