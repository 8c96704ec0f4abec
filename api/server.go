// Package api exposes the question answering graphs and news search over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/news"
	"github.com/poiesic/ragpipe/pipeline"
)

const maxBodyBytes = 1 << 20

// NewsSearcher finds stored news articles. *news.Pipeline satisfies it.
type NewsSearcher interface {
	Search(ctx context.Context, query string, k int) ([]news.Hit, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	simple   *pipeline.Runnable
	filtered *pipeline.Runnable
	news     NewsSearcher
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithSimpleQA serves unfiltered questions with r.
func WithSimpleQA(r *pipeline.Runnable) Option {
	return func(s *Server) error {
		s.simple = r
		return nil
	}
}

// WithFilteredQA serves section-filtered questions with r.
func WithFilteredQA(r *pipeline.Runnable) Option {
	return func(s *Server) error {
		s.filtered = r
		return nil
	}
}

// WithNewsSearch serves news search with n.
func WithNewsSearch(n NewsSearcher) Option {
	return func(s *Server) error {
		s.news = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.log = logger
		return nil
	}
}

// NewServer creates and configures the HTTP server. Endpoints whose backing
// service was not configured answer 501.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		log: slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/news/search", s.handleNewsSearch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askRequest struct {
	Question string `json:"question"`
	Filtered bool   `json:"filtered"`
	Stream   bool   `json:"stream"`
}

type streamLine struct {
	Node   string           `json:"node"`
	Update *pipeline.Update `json:"update,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	graph := s.simple
	if req.Filtered {
		graph = s.filtered
	}
	if graph == nil {
		jsonError(w, "question answering is not configured", http.StatusNotImplemented)
		return
	}

	input := pipeline.State{Question: req.Question}
	if req.Stream {
		s.streamAsk(w, r, graph, input)
		return
	}

	final, err := graph.Invoke(r.Context(), input)
	if err != nil {
		s.log.Error("ask failed", "graph", graph.Name(), "err", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, final)
}

// streamAsk writes one JSON line per completed node. Once streaming has
// started the status is fixed, so a failure is reported as a final line
// carrying the error.
func (s *Server) streamAsk(w http.ResponseWriter, r *http.Request, graph *pipeline.Runnable, input pipeline.State) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for u, err := range graph.Stream(r.Context(), input) {
		line := streamLine{Node: u.Node}
		if err != nil {
			s.log.Error("streamed ask failed", "graph", graph.Name(), "node", u.Node, "err", err)
			line.Error = err.Error()
		} else {
			line.Update = &u.Update
		}
		if encErr := enc.Encode(line); encErr != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type newsSearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type newsSearchResponse struct {
	Hits []news.Hit `json:"hits"`
}

func (s *Server) handleNewsSearch(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		jsonError(w, "news search is not configured", http.StatusNotImplemented)
		return
	}

	var req newsSearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	hits, err := s.news.Search(r.Context(), req.Query, req.K)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	if hits == nil {
		hits = []news.Hit{}
	}
	writeJSON(w, http.StatusOK, newsSearchResponse{Hits: hits})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyQuery), errors.Is(err, core.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrSchemaViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrEmbedding), errors.Is(err, ai.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
