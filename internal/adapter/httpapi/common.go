package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// Response is the uniform JSON envelope for every endpoint
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the JSON shape of a failed request
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// writeError maps domain error kinds onto HTTP status codes. Cache errors
// never reach here: they are swallowed below this layer.
func writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: &APIError{Code: code, Message: err.Error()}})
}

func classify(err error) (code string, status int) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, domain.ErrSyncAlreadyInProgress):
		return "sync_already_in_progress", http.StatusConflict
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token", http.StatusBadRequest
	case errors.Is(err, domain.ErrCredentialsExpired):
		return "credentials_expired", http.StatusUnauthorized
	case errors.Is(err, domain.ErrProviderAuth):
		return "provider_auth_failed", http.StatusBadGateway
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "provider_unavailable", http.StatusBadGateway
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(Response{Error: &APIError{Code: "bad_request", Message: message}})
}
