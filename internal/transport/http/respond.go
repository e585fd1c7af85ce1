package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"learnpath-service/internal/domain"
)

type errorBody struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if authErr, ok := domain.AsAuthError(err); ok {
		switch authErr.Reason {
		case domain.AuthRateLimited:
			w.Header().Set("Retry-After", strconv.Itoa(authErr.RetryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:      authErr.Message,
				Reason:     string(authErr.Reason),
				RetryAfter: authErr.RetryAfter,
			})
		case domain.AuthValidation:
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: authErr.Message, Reason: string(authErr.Reason)})
		default:
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: authErr.Message, Reason: string(authErr.Reason)})
		}
		return
	}

	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrPaperNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrNotificationNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAttemptInProgress),
		errors.Is(err, domain.ErrAttemptCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrEmptyQuiz):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
