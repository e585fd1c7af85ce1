package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnpath-service/internal/app"
	"learnpath-service/internal/domain"
	"learnpath-service/internal/infra/memory"
	"learnpath-service/internal/logging"
)

type testServer struct {
	*httptest.Server
	notifications *memory.NotificationStore
	results       *memory.ResultStore
}

func newTestServer(t *testing.T, limiter app.RateLimiter) *testServer {
	t.Helper()

	log := logging.Discard()
	quiz := domain.Quiz{
		ID:               "quiz-1",
		PaperID:          "paper-1",
		Title:            "Algebra Basics",
		TimeLimitMinutes: 10,
		PassingScore:     50,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1, Points: 1},
			{ID: "q2", Text: "What is 3 * 3?", Options: []string{"6", "9"}, CorrectIndex: 1, Points: 1},
		},
	}

	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{quiz.ID: quiz}), time.Minute)
	store := memory.NewCatalogStore()
	store.SeedPapers(domain.Paper{ID: "paper-1", Subject: "Maths", Title: "Paper 1"})
	store.SeedQuizzes(domain.QuizSummary{
		ID: quiz.ID, PaperID: quiz.PaperID, Title: quiz.Title,
		QuestionCount: len(quiz.Questions), TimeLimitMinutes: quiz.TimeLimitMinutes, PassingScore: quiz.PassingScore,
	})
	store.SeedLessons(domain.Lesson{ID: "lesson-1", PaperID: "paper-1", Title: "Intro"})
	notifications := memory.NewNotificationStore()
	results := memory.NewResultStore()

	authSvc := app.NewAuthService(memory.NewUserStore(), limiter, memory.NewTokenDenylist(), "test-secret", time.Hour, log)
	notificationSvc := app.NewNotificationService(notifications, log)
	catalogSvc := app.NewCatalogService(store, repo, store, store, memory.NewBlobStore(), log)
	sessionSvc := app.NewSessionService(memory.NewAttemptStore(), repo, results, catalogSvc, log)

	router := NewRouter(RouterDeps{
		Auth:           NewAuthHandler(authSvc),
		Catalog:        NewCatalogHandler(catalogSvc),
		Notifications:  NewNotificationHandler(notificationSvc),
		Attempts:       NewAttemptHandler(sessionSvc),
		WS:             NewWSHandler(sessionSvc, notificationSvc, 20*time.Millisecond, log, app.WithDismissAfter(time.Hour)),
		Middleware:     AuthMiddleware(authSvc),
		AllowedOrigins: []string{"*"},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, notifications: notifications, results: results}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func signUpAndIn(t *testing.T, s *testServer) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "learner@example.com", "displayName": "Learner", "password": "supersecret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "learner@example.com", "password": "supersecret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var session struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	decodeBody(t, resp, &session)
	if session.Token == "" {
		t.Fatal("no token in login response")
	}
	return session.Token
}

func TestAPIRequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.do(t, http.MethodGet, "/api/papers", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthValidationStatus(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "displayName": "X", "password": "supersecret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestSignInRateLimitedResponse(t *testing.T) {
	limiter := memory.NewRateLimiter(1, time.Minute, 5*time.Minute)
	s := newTestServer(t, limiter)

	body := map[string]string{"email": "a@b.com", "password": "wrongwrong"}
	resp := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	resp.Body.Close()

	resp = s.do(t, http.MethodPost, "/api/auth/login", "", body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "300" {
		t.Errorf("Retry-After = %q, want 300", resp.Header.Get("Retry-After"))
	}
	var body429 struct {
		Reason     string `json:"reason"`
		RetryAfter int    `json:"retryAfter"`
	}
	decodeBody(t, resp, &body429)
	if body429.Reason != string(domain.AuthRateLimited) || body429.RetryAfter != 300 {
		t.Fatalf("body = %+v, want rate_limited with 300s", body429)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := signUpAndIn(t, s)

	var papers []domain.Paper
	resp := s.do(t, http.MethodGet, "/api/papers", token, nil)
	decodeBody(t, resp, &papers)
	if len(papers) != 1 || papers[0].ID != "paper-1" {
		t.Fatalf("papers = %+v, want seeded paper", papers)
	}

	var quizzes []domain.QuizSummary
	resp = s.do(t, http.MethodGet, "/api/quizzes?paperId=paper-1", token, nil)
	decodeBody(t, resp, &quizzes)
	if len(quizzes) != 1 || quizzes[0].ID != "quiz-1" {
		t.Fatalf("quizzes = %+v, want seeded quiz", quizzes)
	}

	var summary domain.QuizSummary
	resp = s.do(t, http.MethodGet, "/api/quizzes/quiz-1", token, nil)
	decodeBody(t, resp, &summary)
	if summary.QuestionCount != 2 {
		t.Fatalf("summary = %+v, want 2 questions", summary)
	}

	resp = s.do(t, http.MethodPost, "/api/lesson-requests", token, map[string]string{
		"subject": "Maths", "topic": "Quadratics",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("lesson request status = %d, want 201", resp.StatusCode)
	}
}

func TestAttemptLifecycleOverREST(t *testing.T) {
	s := newTestServer(t, nil)
	token := signUpAndIn(t, s)

	var view app.AttemptView
	resp := s.do(t, http.MethodPost, "/api/attempts", token, map[string]string{"quizId": "quiz-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", resp.StatusCode)
	}
	decodeBody(t, resp, &view)
	if view.State != app.StateInProgress || view.Question == nil {
		t.Fatalf("view = %+v, want in-progress with question", view)
	}

	resp = s.do(t, http.MethodPost, "/api/attempts/"+view.ID+"/answer", token, map[string]int{"optionIndex": 1})
	decodeBody(t, resp, &view)
	if view.PendingIndex == nil || *view.PendingIndex != 1 {
		t.Fatalf("pending = %v, want 1", view.PendingIndex)
	}

	resp = s.do(t, http.MethodPost, "/api/attempts/"+view.ID+"/advance", token, nil)
	decodeBody(t, resp, &view)
	if view.QuestionIndex != 1 || view.Answered != 1 {
		t.Fatalf("after advance view = %+v", view)
	}

	// Result is a conflict while still in progress.
	resp = s.do(t, http.MethodGet, "/api/attempts/"+view.ID+"/result", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("early result status = %d, want 409", resp.StatusCode)
	}

	resp = s.do(t, http.MethodPost, "/api/attempts/"+view.ID+"/answer", token, map[string]int{"optionIndex": 1})
	resp.Body.Close()
	resp = s.do(t, http.MethodPost, "/api/attempts/"+view.ID+"/submit", token, nil)
	decodeBody(t, resp, &view)
	if view.State != app.StateCompleted {
		t.Fatalf("state after submit = %s, want completed", view.State)
	}

	var result domain.AttemptResult
	resp = s.do(t, http.MethodGet, "/api/attempts/"+view.ID+"/result", token, nil)
	decodeBody(t, resp, &result)
	if result.ScorePercent != 100 || !result.Passed {
		t.Fatalf("result = %+v, want full score", result)
	}

	var recents []domain.RecentQuiz
	resp = s.do(t, http.MethodGet, "/api/quizzes/recent", token, nil)
	decodeBody(t, resp, &recents)
	if len(recents) != 1 || recents[0].QuizID != "quiz-1" {
		t.Fatalf("recents = %+v, want the finished quiz", recents)
	}
}

func TestAttemptOwnershipOverREST(t *testing.T) {
	s := newTestServer(t, nil)
	token := signUpAndIn(t, s)

	var view app.AttemptView
	resp := s.do(t, http.MethodPost, "/api/attempts", token, map[string]string{"quizId": "quiz-1"})
	decodeBody(t, resp, &view)

	resp = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "other@example.com", "displayName": "Other", "password": "supersecret",
	})
	resp.Body.Close()
	resp = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "other@example.com", "password": "supersecret",
	})
	var session struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &session)

	resp = s.do(t, http.MethodGet, "/api/attempts/"+view.ID, session.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign attempt status = %d, want 404", resp.StatusCode)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := signUpAndIn(t, s)

	s.notifications.Seed(
		domain.Notification{ID: "n1", Type: "announcement", Title: "Welcome", Message: "hello", CreatedAt: time.Now()},
	)

	var list []domain.Notification
	resp := s.do(t, http.MethodGet, "/api/notifications", token, nil)
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].ID != "n1" {
		t.Fatalf("notifications = %+v, want seeded broadcast", list)
	}

	resp = s.do(t, http.MethodPost, "/api/notifications/n1/read", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("mark read status = %d, want 204", resp.StatusCode)
	}

	resp = s.do(t, http.MethodGet, "/api/notifications", token, nil)
	decodeBody(t, resp, &list)
	if len(list) != 1 || !list[0].Read() {
		t.Fatalf("notifications = %+v, want read entry", list)
	}
}

func TestSignOutRevokesAccess(t *testing.T) {
	s := newTestServer(t, nil)
	token := signUpAndIn(t, s)

	resp := s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}

	resp = s.do(t, http.MethodGet, "/api/papers", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", resp.StatusCode)
	}
}
