// Package server exposes the change-request broker over HTTP for the admin
// panel.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/ericvanlare/aimod/internal/auditlog"
	"github.com/ericvanlare/aimod/internal/reconcile"
	"github.com/ericvanlare/aimod/internal/request"
)

// Broker performs the change-request lifecycle operations.
type Broker interface {
	Create(ctx context.Context, description string) (request.CreateResult, error)
	Approve(ctx context.Context, prNumber int) (request.ApproveResult, error)
	Reject(ctx context.Context, prNumber int) (request.RejectResult, error)
	Revise(ctx context.Context, p request.ReviseParams) (request.ReviseResult, error)
	Revert(ctx context.Context, prNumber int, description string) (request.RevertResult, error)
}

// Reconciler derives request status from provider state.
type Reconciler interface {
	List(ctx context.Context) ([]reconcile.ChangeRequest, error)
	Status(ctx context.Context, issueNumber int) (reconcile.IssueStatus, error)
}

// Audit journals the actions the API performed.
type Audit interface {
	Record(action string, issueNumber, prNumber int, detail string) error
	Recent(limit int) ([]auditlog.Entry, error)
}

// Config holds server configuration.
type Config struct {
	Broker     Broker
	Reconciler Reconciler
	// Audit is the local action journal. Optional; when nil the activity
	// endpoint is not registered and actions are not recorded.
	Audit Audit
	// Hub is the WebSocket hub for real-time updates. When non-nil, the
	// events endpoint is registered.
	Hub *Hub
	// AdminOrigin is the only origin granted CORS access. Empty disables
	// cross-origin access.
	AdminOrigin string
	Logger      *slog.Logger
}

// Server wraps the HTTP server.
type Server struct {
	mux      *http.ServeMux
	handler  http.Handler
	listener net.Listener
}

// New creates a Server bound to the given address (e.g. "127.0.0.1:8787").
// It does not start serving; call Serve() for that.
func New(addr string, cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{mux: mux, listener: ln}
	s.registerRoutes(cfg)
	s.handler = withCORS(cfg.AdminOrigin, mux)
	return s, nil
}

// Addr returns the listener's address (useful when binding to :0 in tests).
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve starts accepting connections. It blocks until the listener is closed.
func (s *Server) Serve() error {
	return http.Serve(s.listener, s.handler)
}

// Close shuts down the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Handler returns the server's root handler, CORS middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerRoutes(cfg Config) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	api := &apiHandler{
		broker:     cfg.Broker,
		reconciler: cfg.Reconciler,
		audit:      cfg.Audit,
		hub:        cfg.Hub,
		logger:     logger,
	}

	s.mux.HandleFunc("POST /api/ai-mod/request", api.handleCreate)
	s.mux.HandleFunc("GET /api/ai-mod/list", api.handleList)
	s.mux.HandleFunc("GET /api/ai-mod/status", api.handleStatus)
	s.mux.HandleFunc("POST /api/ai-mod/approve", api.handleApprove)
	s.mux.HandleFunc("POST /api/ai-mod/reject", api.handleReject)
	s.mux.HandleFunc("POST /api/ai-mod/revise", api.handleRevise)
	s.mux.HandleFunc("POST /api/ai-mod/revert", api.handleRevert)

	if cfg.Audit != nil {
		s.mux.HandleFunc("GET /api/ai-mod/activity", api.handleActivity)
	}

	if cfg.Hub != nil {
		s.mux.HandleFunc("GET /api/ai-mod/events", cfg.Hub.ServeWS)
	}

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Catch-all — same envelope as every other response.
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "Not found"})
	})
}

// withCORS grants cross-origin access only to the exact configured origin.
// Everything else gets no CORS headers and the browser refuses the response.
func withCORS(adminOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if adminOrigin != "" && origin == adminOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
