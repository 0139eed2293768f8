package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an engine error to an HTTP status and the text shown to
// the client. Store failures never leak their cause.
func statusFor(err error) (int, string) {
	if errors.Is(err, core.ErrReadOnlyView) {
		return http.StatusForbidden, err.Error()
	}
	switch core.Kind(err) {
	case core.ErrValidation:
		return http.StatusBadRequest, err.Error()
	case core.ErrNotFound:
		return http.StatusNotFound, err.Error()
	case core.ErrConflict:
		return http.StatusConflict, err.Error()
	case core.ErrStore:
		return http.StatusBadGateway, "storage unavailable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	s.writeErrorMessage(w, r, status, msg, err)
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	logger := log.FromContext(r.Context())
	fields := []any{
		log.FieldStatusCode, status,
		log.FieldErrorType, errorType(err),
		log.FieldError, err.Error(),
	}
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func errorType(err error) string {
	switch core.Kind(err) {
	case core.ErrValidation:
		return log.ErrorTypeValidation
	case core.ErrNotFound:
		return log.ErrorTypeNotFound
	case core.ErrConflict:
		return log.ErrorTypeConflict
	case core.ErrStore:
		return log.ErrorTypeStore
	}
	return log.ErrorTypeInternal
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// decodeJSON reads a single JSON object of at most 64 KiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.Kind(err) != nil {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrValidation, err)
	}
	return nil
}
