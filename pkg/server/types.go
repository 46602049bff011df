// Package server is the HTTP boundary of the lab report analyzer. It
// accepts PDF uploads, answers questions against stored sessions, and
// exposes session metadata, health, and metrics endpoints.
package server

import (
	"context"
	"time"
)

// Options configures the HTTP server
type Options struct {
	Host               string        // Server host (default: "0.0.0.0")
	Port               int           // Server port (default: 5000)
	MaxUploadBytes     int64         // Upload size cap (default: 16 MiB)
	RateLimitPerMinute int           // Requests per minute per IP (default: 100)
	UploadsDir         string        // When set, uploads are persisted to disk named by session id
	ShutdownTimeout    time.Duration // Grace period for in-flight requests (default: 30s)
}

// Extractor turns uploaded PDF bytes into plain text.
type Extractor func(data []byte) (string, error)

// Answerer produces an answer about a stored report. Implementations
// never fail the request; model errors collapse to fallback text.
type Answerer interface {
	Answer(ctx context.Context, reportText, question string) string
}

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	Message    string `json:"message"`
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	TextLength int    `json:"text_length"`
}

// AskRequest is the body of POST /ask
type AskRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// AskResponse is returned by POST /ask
type AskResponse struct {
	Response string `json:"response"`
	Filename string `json:"filename"`
}

// SessionInfoResponse is returned by GET /session/{id}
type SessionInfoResponse struct {
	Filename   string `json:"filename"`
	TextLength int    `json:"text_length"`
	UploadTime string `json:"upload_time"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Timestamp      string `json:"timestamp"`
}

// ErrorResponse is the JSON error envelope used by every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}
