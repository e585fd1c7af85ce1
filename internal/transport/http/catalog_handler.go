package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"learnpath-service/internal/app"
	"learnpath-service/internal/domain"
)

// CatalogHandler serves papers, quizzes, lessons and the recent-quizzes list.
type CatalogHandler struct {
	catalog  *app.CatalogService
	validate *validator.Validate
}

func NewCatalogHandler(catalog *app.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, validate: validator.New()}
}

func (h *CatalogHandler) ListPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := h.catalog.Papers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, papers)
}

func (h *CatalogHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.Quizzes(r.Context(), r.URL.Query().Get("paperId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// GetQuiz returns the browsing view of one quiz. Question content (and the
// answer key) only travels inside an attempt.
func (h *CatalogHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.Quiz(r.Context(), mux.Vars(r)["quizID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.QuizSummary{
		ID:               quiz.ID,
		PaperID:          quiz.PaperID,
		Title:            quiz.Title,
		QuestionCount:    len(quiz.Questions),
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		PassingScore:     quiz.PassingScore,
	})
}

func (h *CatalogHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.catalog.Lessons(r.Context(), r.URL.Query().Get("paperId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

type lessonRequestBody struct {
	Subject string `json:"subject" validate:"required,min=1,max=100"`
	Topic   string `json:"topic" validate:"required,min=1,max=500"`
}

func (h *CatalogHandler) RequestLesson(w http.ResponseWriter, r *http.Request) {
	var body lessonRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, &domain.AuthError{Reason: domain.AuthValidation, Message: err.Error()})
		return
	}
	req, err := h.catalog.RequestLesson(r.Context(), requestUserID(r), body.Subject, body.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *CatalogHandler) RecentQuizzes(w http.ResponseWriter, r *http.Request) {
	recents, err := h.catalog.RecentQuizzes(r.Context(), requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recents)
}
