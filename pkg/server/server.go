package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/harun/labreport/internal/metrics"
	"github.com/harun/labreport/pkg/gateway"
	"github.com/harun/labreport/pkg/session"
)

// Server is the lab report HTTP server
type Server struct {
	options        Options
	server         *http.Server
	store          *session.Store
	extractor      Extractor
	answerer       Answerer
	hub            *gateway.Hub
	metrics        *metrics.Metrics
	rateLimiter    *RateLimiter
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new server. The hub and metrics may be nil when
// the corresponding features are disabled.
func NewServer(options Options, store *session.Store, extractor Extractor, answerer Answerer, hub *gateway.Hub, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 5000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.MaxUploadBytes == 0 {
		options.MaxUploadBytes = 16 << 20
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 30 * time.Second
	}

	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}

	return &Server{
		options:     options,
		store:       store,
		extractor:   extractor,
		answerer:    answerer,
		hub:         hub,
		metrics:     m,
		rateLimiter: NewRateLimiter(options.RateLimitPerMinute),
		logger:      logger,
		startTime:   time.Now(),
	}, nil
}

// Handler returns the server's routing handler. Exposed so tests can
// drive the full middleware stack without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.wrap("/", s.handleIndex))
	mux.HandleFunc("POST /upload", s.wrap("/upload", s.handleUpload))
	mux.HandleFunc("POST /ask", s.wrap("/ask", s.handleAsk))
	mux.HandleFunc("GET /session/{id}", s.wrap("/session/{id}", s.handleSessionInfo))
	mux.HandleFunc("GET /health", s.wrap("/health", s.handleHealth))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	}

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.wrap("*", s.handleNotFound))

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// wrap applies the shared middleware stack to a handler: shutdown
// refusal, in-flight tracking, rate limiting, panic recovery, request
// logging, and metrics.
func (s *Server) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ip := s.getClientIP(r)

		if !s.rateLimiter.CheckLimit(ip) {
			retryAfter := s.rateLimiter.GetRetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		requestID, _ := gonanoid.New()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		// Metrics and the access log run in the deferred block so that
		// panicked requests are still counted and logged.
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error().
					Interface("panic", p).
					Str("requestId", requestID).
					Str("path", r.URL.Path).
					Msg("Handler panicked")
				rec.status = http.StatusInternalServerError
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}

			duration := time.Since(startTime)

			if s.metrics != nil {
				s.metrics.ObserveRequest(route, r.Method, rec.status, duration)
			}

			s.logger.Info().
				Str("requestId", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", ip).
				Int("status", rec.status).
				Int64("duration", duration.Milliseconds()).
				Msg("Request completed")
		}()

		handler(rec, r)
	}
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// getClientIP extracts the client IP from the request
func (s *Server) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
