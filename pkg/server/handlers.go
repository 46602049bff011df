package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

//go:embed templates
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// handleIndex serves the landing page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, nil); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render landing page")
	}
}

// handleUpload handles PDF upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes)

	file, header, err := r.FormFile("pdf")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.countUpload("error")
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 16MB.")
			return
		}
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	if !allowedFile(header.Filename) {
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file: %v", err))
		return
	}

	if len(data) == 0 {
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "File is empty")
		return
	}

	if s.metrics != nil {
		s.metrics.UploadBytes.Observe(float64(len(data)))
	}

	sanitized := sanitizeFilename(header.Filename)

	// In the disk-backed variant the file is persisted before extraction
	// and named by the session id, so cleanup on failure can find it.
	var sessionID, filePath string
	if s.options.UploadsDir != "" {
		sessionID = s.store.NewID()
		filePath = filepath.Join(s.options.UploadsDir, sessionID+"_"+sanitized)

		if err := os.MkdirAll(s.options.UploadsDir, 0755); err != nil {
			s.logger.Error().Err(err).Msg("Failed to create uploads directory")
			s.countUpload("error")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := os.WriteFile(filePath, data, 0644); err != nil {
			s.logger.Error().Err(err).Str("path", filePath).Msg("Failed to persist upload")
			s.countUpload("error")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	extractStart := time.Now()
	text, err := s.extractor(data)
	if s.metrics != nil {
		s.metrics.ExtractionDuration.Observe(time.Since(extractStart).Seconds())
	}
	if err != nil {
		s.removeUploadedFile(filePath)
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to process PDF: %v", err))
		return
	}
	if strings.TrimSpace(text) == "" {
		s.removeUploadedFile(filePath)
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "No text could be extracted from the PDF")
		return
	}

	if filePath != "" {
		err = s.store.CreateWithID(sessionID, text, sanitized, filePath)
	} else {
		sessionID, err = s.store.Create(text, sanitized)
	}
	if err != nil {
		s.removeUploadedFile(filePath)
		s.countUpload("error")
		writeError(w, http.StatusBadRequest, "No text could be extracted from the PDF")
		return
	}

	s.countUpload("success")
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.SessionsActive.Set(float64(s.store.Count()))
	}

	s.hub.Broadcast("session.created", map[string]interface{}{
		"session_id":  sessionID,
		"filename":    sanitized,
		"text_length": len(text),
	})

	s.logger.Info().
		Str("sessionId", sessionID).
		Str("filename", sanitized).
		Int("textLength", len(text)).
		Msg("PDF uploaded and processed")

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:    "PDF uploaded and processed successfully",
		SessionID:  sessionID,
		Filename:   sanitized,
		TextLength: len(text),
	})
}

// handleAsk handles a question about an uploaded report
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.countQuestion("error")
		writeError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}

	query := strings.TrimSpace(req.Query)
	sessionID := strings.TrimSpace(req.SessionID)

	if query == "" {
		s.countQuestion("error")
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}
	if sessionID == "" {
		s.countQuestion("error")
		writeError(w, http.StatusBadRequest, "No session ID provided")
		return
	}

	record, err := s.store.GetAndTouch(sessionID)
	if err != nil {
		s.countQuestion("error")
		writeError(w, http.StatusBadRequest, "Session not found or expired. Please upload your PDF again.")
		return
	}

	answer := s.answerer.Answer(r.Context(), record.Text, query)

	s.countQuestion("success")

	s.hub.Broadcast("question.answered", map[string]interface{}{
		"session_id": sessionID,
		"filename":   record.Filename,
	})

	writeJSON(w, http.StatusOK, AskResponse{
		Response: answer,
		Filename: record.Filename,
	})
}

// handleSessionInfo returns metadata for a session without touching it
func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Peek(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, SessionInfoResponse{
		Filename:   record.Filename,
		TextLength: len(record.Text),
		UploadTime: record.Timestamp.Format(time.RFC3339),
	})
}

// handleHealth reports liveness and the active session count
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		ActiveSessions: s.store.Count(),
		Timestamp:      time.Now().Format(time.RFC3339),
	})
}

// handleNotFound is the catch-all for unmatched routes
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func (s *Server) countUpload(status string) {
	if s.metrics != nil {
		s.metrics.UploadsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) countQuestion(status string) {
	if s.metrics != nil {
		s.metrics.QuestionsTotal.WithLabelValues(status).Inc()
	}
}

// removeUploadedFile deletes a partially processed upload, best effort
func (s *Server) removeUploadedFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
	}
}

// allowedFile reports whether the filename carries a .pdf extension
func allowedFile(filename string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename reduces an uploaded filename to a safe basename:
// path components are stripped, unsafe characters become underscores,
// and leading dots are removed so the result cannot escape the uploads
// directory or hide as a dotfile.
func sanitizeFilename(filename string) string {
	name := filename
	// Strip path components regardless of client platform.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "upload.pdf"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
