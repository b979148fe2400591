package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
	"github.com/MeKo-Tech/gradescan/internal/scan"
)

// Scanner runs one scan. *scan.Pipeline satisfies it.
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (*scan.Result, error)
}

// FactorStore serves stored grading systems and factor tables. *store.Store satisfies it.
type FactorStore interface {
	GradingSystem(ctx context.Context, id string) (*bonus.GradingSystem, error)
	FactorTable(ctx context.Context, userID, childID string) (*bonus.FactorTable, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner     Scanner
	store       FactorStore
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	version     string
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Version     string
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string  `json:"error"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

// BonusRequest is a whole-report calculation. When GradingSystemID is set and no
// grading system is inlined, the system and the caller's factors come from the store.
type BonusRequest struct {
	bonus.Input
	GradingSystemID string `json:"grading_system_id,omitempty"`
}

// BonusSubjectRequest is the single-subject variant of BonusRequest.
type BonusSubjectRequest struct {
	bonus.SingleInput
	GradingSystemID string `json:"grading_system_id,omitempty"`
}

// NewServer creates a server. store may be nil.
func NewServer(config Config, scanner Scanner, store FactorStore) *Server {
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 10
	}
	timeout := time.Duration(config.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{
		scanner:     scanner,
		store:       store,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: maxUpload,
		timeout:     timeout,
		version:     config.Version,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scans", s.scanHandler)
		r.Get("/scans/ws", s.scanWebSocketHandler)
		r.Post("/bonus", s.bonusHandler)
		r.Post("/bonus/subject", s.bonusSubjectHandler)
	})
	return r
}
