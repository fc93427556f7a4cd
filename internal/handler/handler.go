package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"foodkart/internal/middleware"
	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps err onto a status. Domain errors keep their code
// and message; anything else is reported as an internal error.
func writeServiceError(w http.ResponseWriter, err error, fallback string, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, fallback, logger)
		return
	}
	writeError(w, statusFor(de.Code), de.Code, de.Message, logger)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeNotFound, model.ErrCodeRestaurantNotFound, model.ErrCodeMenuItemNotFound,
		model.ErrCodeLineNotFound, model.ErrCodeOrderNotFound, model.ErrCodePaymentLinkNotFound:
		return http.StatusNotFound
	case model.ErrCodeCheckoutInProgress, model.ErrCodeIdempotencyConflict,
		model.ErrCodePaymentNotCompleted, model.ErrCodeRestaurantMismatch, model.ErrCodePaymentLinkInUse:
		return http.StatusConflict
	case model.ErrCodeMinimumOrderNotMet, model.ErrCodeTotalsMismatch, model.ErrCodeRestaurantClosed,
		model.ErrCodePaymentLinkExpired:
		return http.StatusUnprocessableEntity
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeInternalError, model.ErrCodeUnreconciledPayment:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// requireUser returns the caller's user ID, writing a 401 when absent.
func requireUser(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "X-User-ID header is required", logger)
		return "", false
	}
	return userID, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
