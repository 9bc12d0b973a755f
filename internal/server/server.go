// Package server exposes the chart pipeline over HTTP.
//
// The server is a thin shell around [pipeline.Runner]: it decodes request
// bodies, runs the pipeline, and maps structured error codes onto HTTP
// status codes. Chart persistence is optional and only wired when a store
// is configured.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerflow/flowchart/pkg/errors"
	"github.com/ledgerflow/flowchart/pkg/pipeline"
	"github.com/ledgerflow/flowchart/pkg/store"
)

// maxPayloadBytes bounds request bodies; payloads are per-account edge
// records, so even large ledgers stay well under this.
const maxPayloadBytes = 16 << 20

// Server handles chart HTTP requests.
type Server struct {
	runner *pipeline.Runner
	store  *store.ChartStore // nil when persistence is not configured
	logger *log.Logger
}

// New creates a server. store may be nil to disable persistence endpoints.
func New(runner *pipeline.Runner, chartStore *store.ChartStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: chartStore, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/charts", func(r chi.Router) {
		r.Post("/flow", s.handleFlow)
		r.Post("/flow/save", s.handleFlowSave)
		r.Get("/{id}", s.handleGetChart)
	})
	return r
}

// flowRequest is the body of POST /v1/charts/flow.
type flowRequest struct {
	// Payload is the raw encoded records as served by the reporting engine.
	Payload json.RawMessage `json:"payload"`

	// Options configures annotation and export.
	Options pipeline.Options `json:"options"`
}

// flowResponse is the body of a successful chart build.
type flowResponse struct {
	ID        string          `json:"id,omitempty"`
	GraphHash string          `json:"graph_hash"`
	NodeCount int             `json:"node_count"`
	EdgeCount int             `json:"edge_count"`
	Chart     json.RawMessage `json:"chart"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFlowRequest(w, r)
	if !ok {
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Payload, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, flowResponse{
		GraphHash: result.GraphHash,
		NodeCount: result.Stats.NodeCount,
		EdgeCount: result.Stats.EdgeCount,
		Chart:     result.Artifacts[pipeline.FormatJSON],
	})
}

func (s *Server) handleFlowSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "chart persistence is not configured"))
		return
	}
	req, ok := s.decodeFlowRequest(w, r)
	if !ok {
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Payload, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.store.Save(r.Context(), result.Chart, result.GraphHash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("saved chart", "id", id, "graph_hash", result.GraphHash)

	writeJSON(w, http.StatusCreated, flowResponse{
		ID:        id,
		GraphHash: result.GraphHash,
		NodeCount: result.Stats.NodeCount,
		EdgeCount: result.Stats.EdgeCount,
		Chart:     result.Artifacts[pipeline.FormatJSON],
	})
}

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "chart persistence is not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	stored, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) decodeFlowRequest(w http.ResponseWriter, r *http.Request) (flowRequest, bool) {
	var req flowRequest
	body := http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return flowRequest{}, false
	}
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "request payload is empty"))
		return flowRequest{}, false
	}
	req.Options.Logger = s.logger
	return req, true
}

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}

	resp := errorResponse{Error: errors.UserMessage(err)}
	if code := errors.GetCode(err); code != "" {
		resp.Code = string(code)
	}
	writeJSON(w, status, resp)
}

func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPayload,
		errors.ErrCodeInvalidRecord, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeChartNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
