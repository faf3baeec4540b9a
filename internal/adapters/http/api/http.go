// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/modellab/internal/app"
	"github.com/okian/modellab/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submit applies an edit and reports the resulting revision.
	Submit(ctx context.Context, e model.Edit) (service.Receipt, error)

	// Read operations expose the recomputation of the current revision.
	Result(ctx context.Context) (model.Result, error)
	Rankings(ctx context.Context, n int) ([]model.RankedEntity, error)
	Entity(ctx context.Context, id string) (model.RankedEntity, error)
	Matchups(ctx context.Context, changedOnly bool) ([]model.MatchupPrediction, error)
	Summary(ctx context.Context) (model.Summary, error)
	Weights(ctx context.Context) (rank, pred model.WeightState, err error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	opsHandler      *OpsHandler
	weightsHandler  *WeightsHandler
	rankingsHandler *RankingsHandler
	labHandler      *LabHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// number of entities a single rankings request returns.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		opsHandler:      NewOpsHandler(statsProvider),
		weightsHandler:  NewWeightsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps, maxLimit),
		labHandler:      NewLabHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.opsHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.opsHandler.HandleStats, "stats"))
	mux.HandleFunc("/weights", MetricsMiddleware(s.weightsHandler.HandleGetWeights, "weights"))
	mux.HandleFunc("/weights/", MetricsMiddleware(s.weightsHandler.HandlePostWeights, "weights_edit"))
	mux.HandleFunc("/lab", MetricsMiddleware(s.labHandler.HandleGetLab, "lab"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/rankings/", MetricsMiddleware(s.rankingsHandler.HandleGetEntity, "rankings_entity"))
	mux.HandleFunc("/matchups", MetricsMiddleware(s.labHandler.HandleGetMatchups, "matchups"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.labHandler.HandleGetSummary, "summary"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error onto its HTTP status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}
