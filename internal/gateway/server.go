// Package gateway serves the single-page UI and the HTTP API in front of
// the extraction pipeline.
package gateway

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"justdraft/internal/events"
	"justdraft/internal/extract"
	"justdraft/internal/gateway/ws"
	"justdraft/internal/sessions"
)

//go:embed index.html
var indexHTML []byte

// ExtractorFactory builds an extraction client bound to the caller's
// API credential. The credential lives for one request only.
type ExtractorFactory func(apiKey string) (*extract.Client, error)

// Server is the Just Draft gateway HTTP server.
type Server struct {
	httpServer   *http.Server
	hub          *ws.Hub
	bus          *events.Bus
	store        sessions.Store
	newExtractor ExtractorFactory
}

// NewServer creates a new gateway server.
func NewServer(bus *events.Bus, store sessions.Store, factory ExtractorFactory, host string, port int) *Server {
	s := &Server{
		hub:          ws.NewHub(bus),
		bus:          bus,
		store:        store,
		newExtractor: factory,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Post("/api/login", s.handleLogin)
		r.Get("/api/session", s.handleSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/api/extract", s.handleExtract)
			r.Put("/api/result", s.handleUpdateResult)
			r.Get("/api/history", s.handleHistory)
			r.Post("/api/reset", s.handleReset)
			r.Get("/api/export/{format}", s.handleExport)
			r.Get("/api/events", s.handleEvents)
			r.Get("/api/ws", s.handleWS)
		})
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Just Draft gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	history := s.bus.History(limit)

	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.hub.ServeWS(w, r, sess.ID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
