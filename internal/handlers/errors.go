package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"familyquest/internal/logger"
	"familyquest/internal/security"
	"familyquest/internal/service"
	"familyquest/internal/validation"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// respondWithError writes a JSON error body. err, when present, is logged
// under logMsg and never shown to the client.
func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, "error", err, "status", status)
		} else {
			log.Debug(logMsg, "error", err, "status", status)
		}
	}
	writeError(w, status, errorCode(status), userMsg)
}

// respondWithServiceError maps service errors to status codes.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiError{
			Code:    errorCode(http.StatusBadRequest),
			Message: verr.Message,
			Field:   verr.Field,
		}})
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, log, http.StatusNotFound, err.Error(), logMsg, err)
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrAlreadyLinked):
		respondWithError(w, log, http.StatusConflict, err.Error(), logMsg, err)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, log, http.StatusForbidden, ErrForbidden, logMsg, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, log, http.StatusUnauthorized, err.Error(), logMsg, err)
	case errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, log, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}
