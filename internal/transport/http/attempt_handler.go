package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"learnpath-service/internal/app"
)

// AttemptHandler drives the quiz attempt lifecycle over REST.
type AttemptHandler struct {
	sessions *app.SessionService
}

func NewAttemptHandler(sessions *app.SessionService) *AttemptHandler {
	return &AttemptHandler{sessions: sessions}
}

type startAttemptRequest struct {
	QuizID string `json:"quizId"`
}

type selectAnswerRequest struct {
	OptionIndex int `json:"optionIndex"`
}

func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "quizId is required"})
		return
	}
	view, err := h.sessions.StartAttempt(r.Context(), requestUserID(r), req.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttemptHandler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	var req selectAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	view, err := h.sessions.SelectAnswer(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r), req.OptionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttemptHandler) Advance(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Advance(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttemptHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Retreat(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Submit(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttemptHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.sessions.Result(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AttemptHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Abandon(r.Context(), mux.Vars(r)["attemptID"], requestUserID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
