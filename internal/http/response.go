package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		loggerFrom(r).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps the domain error taxonomy onto status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	var transition *domain.IllegalTransitionError

	switch {
	case errors.As(err, &validation):
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Error: validation.Message,
			Code:  "validation_failed",
			Field: validation.Field,
		})
	case errors.As(err, &transition):
		respondJSON(w, r, http.StatusConflict, ErrorResponse{
			Error: transition.Error(),
			Code:  "illegal_transition",
			From:  string(transition.From),
			To:    string(transition.To),
		})
	case errors.Is(err, repository.ErrStatusConflict):
		respondError(w, r, http.StatusConflict, "status_conflict", "order status changed concurrently, retry")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrAuthenticationRequired):
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
	case errors.Is(err, domain.ErrPermissionDenied):
		respondError(w, r, http.StatusForbidden, "permission_denied", "permission denied")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		loggerFrom(r).Error().Err(err).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
