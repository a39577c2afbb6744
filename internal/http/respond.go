package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/store-rating/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

// statusClientClosedRequest marks requests whose client went away before a
// response was produced.
const statusClientClosedRequest = 499

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Details []fieldErrorResponse `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps a service error onto a status code and body.
// Unclassified errors are logged and answered with 500.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		details := make([]fieldErrorResponse, 0, len(vErr.Errors))
		for _, fe := range vErr.Errors {
			details = append(details, fieldErrorResponse{Field: fe.Field, Message: fe.Message})
		}
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Request validation failed",
			Details: details,
		})
	case errors.Is(err, domain.ErrValidation):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed")
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	case errors.Is(err, domain.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "CONFLICT", "Resource already exists")
	case errors.Is(err, domain.ErrTransientConflict), errors.Is(err, context.DeadlineExceeded):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, "TRY_AGAIN", "The request could not be completed, retry shortly")
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request canceled", zap.String("op", op))
		w.WriteHeader(statusClientClosedRequest)
	default:
		s.logger.Error(op+" failed", zap.Error(err), zap.String("path", r.URL.Path))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// roundAverage trims a stored mean to two decimals for presentation.
func roundAverage(value *float64) *float64 {
	if value == nil {
		return nil
	}
	rounded := math.Round(*value*100) / 100
	return &rounded
}
