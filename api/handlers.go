package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/orchestrator"
	"github.com/voxflow/voxflow/types"
)

// MetricsSource supplies the JSON metrics snapshot.
type MetricsSource interface {
	Snapshot() types.MetricsSnapshot
}

// Handler serves the command API.
type Handler struct {
	engine   *orchestrator.Engine
	registry *capability.Registry
	metrics  MetricsSource
	logger   *zap.Logger
}

// NewHandler creates the API handler. metrics may be nil, which
// disables the /v1/metrics snapshot endpoint.
func NewHandler(engine *orchestrator.Engine, registry *capability.Registry, metrics MetricsSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:   engine,
		registry: registry,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "api")),
	}
}

// HandleCommand processes one command synchronously.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteJSON(w, http.StatusMethodNotAllowed, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    types.ErrInvalidParameter,
				Message: "method not allowed",
			},
			Timestamp: time.Now(),
		})
		return
	}
	if !RequireContentType(w, r, h.logger) {
		return
	}

	var req CommandRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Text == "" {
		WriteError(w, types.NewError(types.ErrInvalidParameter, "text is required"), h.logger)
		return
	}

	opts := commandOptions(req)
	start := time.Now()
	resp, err := h.engine.ProcessCommand(r.Context(), req.Text, opts...)
	if err != nil {
		WriteError(w, types.AsError(err), h.logger)
		return
	}

	h.logger.Info("command processed",
		zap.String("command_id", resp.CommandID),
		zap.String("status", string(resp.Status)),
		zap.Int("steps", len(resp.Steps)),
		zap.Duration("duration", time.Since(start)),
	)
	WriteSuccess(w, resp)
}

func commandOptions(req CommandRequest) []orchestrator.CommandOption {
	var opts []orchestrator.CommandOption
	if req.SessionID != "" {
		opts = append(opts, orchestrator.WithSession(req.SessionID))
	}
	if req.ActorID != "" {
		opts = append(opts, orchestrator.WithActor(req.ActorID))
	}
	if req.TranscriptionConfidence > 0 {
		opts = append(opts, orchestrator.WithTranscriptionConfidence(req.TranscriptionConfidence))
	}
	return opts
}

// HandleCapabilities lists registered capabilities with their schemas.
func (h *Handler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	names := h.registry.List()
	infos := make([]CapabilityInfo, 0, len(names))
	for _, name := range names {
		info := CapabilityInfo{Name: name}
		if schema, ok := h.registry.Schema(name); ok {
			info.Schema = schema
		}
		infos = append(infos, info)
	}
	WriteSuccess(w, infos)
}

// HandleMetricsSnapshot returns engine counters as JSON. The Prometheus
// exposition lives at /metrics.
func (h *Handler) HandleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		WriteError(w, types.NewError(types.ErrInternalError, "metrics not enabled"), h.logger)
		return
	}
	WriteSuccess(w, h.metrics.Snapshot())
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}
