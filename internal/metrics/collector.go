package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

// Collector records engine metrics. It implements dispatch.Observer for
// step lifecycle events and is safe for concurrent use.
type Collector struct {
	commandsTotal    *prometheus.CounterVec
	commandDuration  prometheus.Histogram
	invocationsTotal *prometheus.CounterVec
	invocationDur    *prometheus.HistogramVec
	stepsInFlight    prometheus.Gauge

	// Shadow state backing Snapshot. Prometheus counters cannot be read
	// back cheaply, so the same observations are kept here.
	mu           sync.Mutex
	commands     map[types.ResponseStatus]int64
	capabilities map[string]types.CapabilityStats
	commandLat   types.LatencySummary

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg. A nil reg uses the
// default Prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		commands:     make(map[types.ResponseStatus]int64),
		capabilities: make(map[string]types.CapabilityStats),
		logger:       logger.With(zap.String("component", "metrics")),
	}

	c.commandsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of processed commands by outcome",
		},
		[]string{"status"},
	)

	c.commandDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "End-to-end command duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	c.invocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_invocations_total",
			Help:      "Total number of capability invocations by capability and status",
		},
		[]string{"capability", "status"},
	)

	c.invocationDur = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_invocation_duration_seconds",
			Help:      "Capability invocation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"capability"},
	)

	c.stepsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "steps_in_flight",
			Help:      "Number of plan steps currently executing",
		},
	)

	return c
}

// ObserveCommand records one completed command.
func (c *Collector) ObserveCommand(status types.ResponseStatus, latency time.Duration) {
	c.commandsTotal.WithLabelValues(string(status)).Inc()
	c.commandDuration.Observe(latency.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[status]++
	observe(&c.commandLat, latency)
}

// StepStarted implements dispatch.Observer.
func (c *Collector) StepStarted(capability string) {
	c.stepsInFlight.Inc()
}

// StepFinished implements dispatch.Observer.
func (c *Collector) StepFinished(result types.StepResult) {
	c.stepsInFlight.Dec()
	c.invocationsTotal.WithLabelValues(result.Capability, string(result.Status)).Inc()
	c.invocationDur.WithLabelValues(result.Capability).Observe(result.Latency.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.capabilities[result.Capability]
	switch result.Status {
	case types.StepSucceeded:
		stats.Succeeded++
	case types.StepTimedOut:
		stats.TimedOut++
	default:
		stats.Failed++
	}
	observe(&stats.Latency, result.Latency)
	c.capabilities[result.Capability] = stats
}

// Snapshot returns a consistent copy of all counters as of now.
func (c *Collector) Snapshot() types.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := types.MetricsSnapshot{
		TakenAt:        time.Now(),
		Capabilities:   make(map[string]types.CapabilityStats, len(c.capabilities)),
		Commands:       make(map[types.ResponseStatus]int64, len(c.commands)),
		CommandLatency: c.commandLat,
	}
	for name, stats := range c.capabilities {
		snap.Capabilities[name] = stats
	}
	for status, count := range c.commands {
		snap.Commands[status] = count
	}
	return snap
}

func observe(s *types.LatencySummary, d time.Duration) {
	if s.Count == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Count++
	s.Total += d
}
