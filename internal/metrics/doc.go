// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package metrics collects engine counters: command outcomes and
// durations, capability invocation outcomes and durations, and the number
// of steps currently in flight. Counters are exported through Prometheus
// and mirrored in process-local shadow state so Snapshot can hand callers
// a consistent copy without scraping.
//
// This package is internal and should not be imported by external
// projects.
package metrics
