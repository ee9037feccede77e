// Package api implements the HTTP surface of the agent: a chat
// endpoint, per-user history and profiles, analytics views, feedback
// intake, and a live WebSocket chat.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/soline/banter/internal/buildinfo"
	"github.com/soline/banter/internal/learning"
	"github.com/soline/banter/internal/pipeline"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logger.Debug("failed to write error response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	agent   *pipeline.Pipeline
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates an API server over the given pipeline.
func NewServer(address string, port int, agent *pipeline.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{address: address, port: port, agent: agent, logger: logger}
}

// routes builds the request mux. Split out from Start so tests can
// exercise handlers without binding a port.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/ws", s.handleWebSocket)

	mux.HandleFunc("GET /v1/history/{userId}", s.handleHistory)
	mux.HandleFunc("GET /v1/profile/{userId}", s.handleProfile)
	mux.HandleFunc("POST /v1/feedback", s.handleFeedback)

	mux.HandleFunc("GET /v1/analytics/stats", s.handleStats)
	mux.HandleFunc("GET /v1/analytics/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /v1/insights", s.handleInsights)
	mux.HandleFunc("GET /v1/learning", s.handleLearning)
	mux.HandleFunc("POST /v1/optimize", s.handleOptimize)

	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins serving HTTP requests. It blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	mux := s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", s.logger)
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	result := s.agent.Process(r.Context(), req.UserID, req.Message)
	writeJSON(w, result, s.logger)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	turns, err := s.agent.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history unavailable", s.logger)
		return
	}
	writeJSON(w, map[string]any{"user_id": userID, "turns": turns}, s.logger)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	profile, err := s.agent.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "profile unavailable", s.logger)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "unknown user", s.logger)
		return
	}
	writeJSON(w, profile, s.logger)
}

type feedbackRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Response string `json:"response"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5", s.logger)
		return
	}

	s.agent.Feedback(r.Context(), learning.FeedbackEntry{
		UserID:   req.UserID,
		Message:  req.Message,
		Response: req.Response,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	writeJSON(w, map[string]string{"status": "recorded"}, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			windowDays = n
		}
	}

	stats, err := s.agent.Statistics(r.Context(), windowDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "statistics unavailable", s.logger)
		return
	}
	writeJSON(w, stats, s.logger)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.agent.Insights(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "insights unavailable", s.logger)
		return
	}
	writeJSON(w, map[string]any{"insights": insights}, s.logger)
}

func (s *Server) handleLearning(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.agent.LearningSummary(), s.logger)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	report, err := s.agent.Optimize(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "optimization failed", s.logger)
		return
	}
	writeJSON(w, report, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.agent.CheckHealth(r.Context())
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Debug("failed to write health response", "error", err)
	}
}
