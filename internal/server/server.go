// Package server provides the HTTP API of the outreach engine: tracking endpoints,
// the bounce webhook, campaign generation and polling, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Champ-Deep/ChampMail-sub000/internal/db"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
	"github.com/Champ-Deep/ChampMail-sub000/internal/server/ratelimit"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tasks"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Tracker records engagement and bounces
type Tracker interface {
	Resolve(ctx context.Context, trackingID, signature string) (*types.TrackingMapping, error)
	RecordOpen(ctx context.Context, trackingID, signature string) (*types.EngagementEvent, error)
	RecordClick(ctx context.Context, trackingID, signature, destination string) (*types.EngagementEvent, error)
	Unsubscribe(ctx context.Context, trackingID, signature string) (*types.TrackingMapping, error)
	ProcessBounceWebhook(ctx context.Context, payload tracking.BouncePayload) tracking.BounceResult
	Stats(ctx context.Context, campaignID string) (map[string]int64, error)
}

// PipelineRunner starts pipeline runs and reports their status
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*pipeline.Result, error)
	Status(ctx context.Context, campaignID string) (*types.PipelineRun, bool, error)
}

// ScheduleReader returns a campaign's published schedule
type ScheduleReader interface {
	GetSchedule(ctx context.Context, campaignID string) (*types.ScheduleSummary, bool, error)
}

// CampaignReader loads campaign records
type CampaignReader interface {
	GetCampaign(ctx context.Context, campaignID string) (*db.Campaign, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of a Server. Tracker, Pipeline, Schedules and Tasks are required.
type Deps struct {
	Tracker   Tracker
	Pipeline  PipelineRunner
	Schedules ScheduleReader
	Campaigns CampaignReader
	Tasks     *tasks.Runner
	Checks    map[string]HealthCheck
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
	Logger    logging.Logger
}

// Config holds server configuration
type Config struct {
	Port int
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	tracker     Tracker
	pipeline    PipelineRunner
	schedules   ScheduleReader
	campaigns   CampaignReader
	tasks       *tasks.Runner
	checks      map[string]HealthCheck
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	logger      logging.Logger
	validate    *validator.Validate
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Tracker == nil:
		return nil, fmt.Errorf("tracker is required")
	case deps.Pipeline == nil:
		return nil, fmt.Errorf("pipeline runner is required")
	case deps.Schedules == nil:
		return nil, fmt.Errorf("schedule reader is required")
	case deps.Tasks == nil:
		return nil, fmt.Errorf("task runner is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	s := &Server{
		tracker:     deps.Tracker,
		pipeline:    deps.Pipeline,
		schedules:   deps.Schedules,
		campaigns:   deps.Campaigns,
		tasks:       deps.Tasks,
		checks:      deps.Checks,
		rateLimiter: deps.Limiter,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		validate:    newValidator(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with every middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Tracking
	mux.HandleFunc("GET /track/open/{tracking_id}", s.handleTrackOpen)
	mux.HandleFunc("GET /track/click/{tracking_id}", s.handleTrackClick)
	mux.HandleFunc("GET /track/unsubscribe/{tracking_id}", s.handleUnsubscribePage)
	mux.HandleFunc("POST /track/unsubscribe/{tracking_id}", s.handleUnsubscribe)
	mux.HandleFunc("POST /track/bounce", s.handleBounce)

	// Campaigns
	mux.HandleFunc("POST /campaigns/{campaign_id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /campaigns/{campaign_id}/pipeline", s.handlePipelineStatus)
	mux.HandleFunc("GET /campaigns/{campaign_id}/schedule", s.handleSchedule)
	mux.HandleFunc("GET /campaigns/{campaign_id}/stats", s.handleStats)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs every request and records its latency
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.HTTPRequest(r.Method, endpoint, rec.status, elapsed)
		s.logger.WithFields(logging.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed.String(),
			"remote":   r.RemoteAddr,
		}).Debug("Request completed")
	})
}

// handleHealth reports the reachability of every dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = "error: " + err.Error()
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	s.jsonResponse(w, status, map[string]any{"status": overall, "checks": checks})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Warn("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to its status code and writes it
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
		s.errorResponse(w, status, "internal error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		seconds = max(seconds, 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.WithFields(logging.Fields{
		"client": s.extractClientID(r),
		"path":   r.URL.Path,
		"limit":  info.Limit,
	}).Warn("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
