package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Auth          *AuthHandler
	Catalog       *CatalogHandler
	Notifications *NotificationHandler
	Attempts      *AttemptHandler
	WS            *WSHandler
	Middleware    mux.MiddlewareFunc
	AllowedOrigins []string
}

// NewRouter wires the public auth routes, the authenticated API and the
// websocket feeds behind a CORS wrapper.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", deps.Auth.SignUp).Methods(http.MethodPost)
	auth.HandleFunc("/login", deps.Auth.SignIn).Methods(http.MethodPost)
	auth.HandleFunc("/reset", deps.Auth.ResetPassword).Methods(http.MethodPost)
	auth.Handle("/logout", deps.Middleware(http.HandlerFunc(deps.Auth.SignOut))).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(deps.Middleware)

	api.HandleFunc("/papers", deps.Catalog.ListPapers).Methods(http.MethodGet)
	api.HandleFunc("/quizzes", deps.Catalog.ListQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/recent", deps.Catalog.RecentQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{quizID}", deps.Catalog.GetQuiz).Methods(http.MethodGet)
	api.HandleFunc("/lessons", deps.Catalog.ListLessons).Methods(http.MethodGet)
	api.HandleFunc("/lesson-requests", deps.Catalog.RequestLesson).Methods(http.MethodPost)

	api.HandleFunc("/notifications", deps.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", deps.Notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", deps.Notifications.MarkRead).Methods(http.MethodPost)

	api.HandleFunc("/attempts", deps.Attempts.Start).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}", deps.Attempts.Get).Methods(http.MethodGet)
	api.HandleFunc("/attempts/{attemptID}", deps.Attempts.Abandon).Methods(http.MethodDelete)
	api.HandleFunc("/attempts/{attemptID}/answer", deps.Attempts.SelectAnswer).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}/advance", deps.Attempts.Advance).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}/retreat", deps.Attempts.Retreat).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}/submit", deps.Attempts.Submit).Methods(http.MethodPost)
	api.HandleFunc("/attempts/{attemptID}/result", deps.Attempts.Result).Methods(http.MethodGet)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(deps.Middleware)
	ws.HandleFunc("/attempts/{attemptID}", deps.WS.ServeAttemptWS).Methods(http.MethodGet)
	ws.HandleFunc("/notifications", deps.WS.ServeNotificationsWS).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
