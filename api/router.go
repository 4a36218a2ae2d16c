package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the API route table. A nil gatherer disables the
// Prometheus exposition endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/v1/command", h.HandleCommand)
	mux.HandleFunc("/v1/stream", h.HandleStream)
	mux.HandleFunc("/v1/capabilities", h.HandleCapabilities)
	mux.HandleFunc("/v1/metrics", h.HandleMetricsSnapshot)

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}
