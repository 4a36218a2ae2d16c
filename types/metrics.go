package types

import "time"

// LatencySummary is a compact latency distribution for one key.
type LatencySummary struct {
	// Count is the number of observations.
	Count int64 `json:"count"`
	// Total is the summed duration of all observations.
	Total time.Duration `json:"total"`
	// Min and Max bound the observed durations.
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Mean returns the average observed duration.
func (s LatencySummary) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// CapabilityStats aggregates invocation outcomes for one capability.
type CapabilityStats struct {
	// Succeeded, Failed and TimedOut count terminal invocation outcomes.
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
	// Latency summarizes invocation durations across all outcomes.
	Latency LatencySummary `json:"latency"`
}

// MetricsSnapshot is an atomic, consistent view of engine counters as of
// the read instant. Snapshots are copies; mutating one never affects the
// live collector.
type MetricsSnapshot struct {
	// TakenAt is the snapshot read instant.
	TakenAt time.Time `json:"taken_at"`
	// Capabilities keys invocation stats by capability name.
	Capabilities map[string]CapabilityStats `json:"capabilities"`
	// Commands counts completed commands by overall status.
	Commands map[ResponseStatus]int64 `json:"commands"`
	// CommandLatency summarizes end-to-end command durations.
	CommandLatency LatencySummary `json:"command_latency"`
}
