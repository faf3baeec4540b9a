package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/modellab/pkg/metrics"
)

// StatsProvider reports a point-in-time view of the lab service.
type StatsProvider interface {
	GetStats() map[string]any
}

// OpsHandler serves the operational endpoints: the Prometheus exposition on
// /healthz and the service snapshot on /stats.
type OpsHandler struct {
	stats   StatsProvider
	exposer http.Handler
}

// NewOpsHandler exposes the lab registry and the given stats provider.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	return &OpsHandler{
		stats:   stats,
		exposer: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true}),
	}
}

// HandleHealth answers GET /healthz. A scrape that succeeds is the liveness
// signal.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.exposer.ServeHTTP(w, r)
}

// HandleStats answers GET /stats. It keeps answering while the service is
// stopped, so operators can see why reads fail.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}
