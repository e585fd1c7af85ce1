package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"learnpath-service/internal/app"
	"learnpath-service/internal/config"
	"learnpath-service/internal/domain"
	"learnpath-service/internal/infra/memory"
	pgstore "learnpath-service/internal/infra/postgres"
	redisstore "learnpath-service/internal/infra/redis"
	"learnpath-service/internal/logging"
	transport "learnpath-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the learning platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New("learnpath-service", cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Quiz content: Postgres-backed loader behind a cache, or an in-memory
	// demo catalog when no database is configured.
	demo := newDemoData()
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(demo.quizzes)
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var (
		papers      app.PaperRepository
		quizCatalog app.QuizCatalog
		lessons     app.LessonRepository
		users       app.UserRepository
		notifRepo   app.NotificationRepository
		results     app.ResultRepository
	)
	if pool != nil {
		pgLoader := pgstore.NewQuizLoader(pool)
		papers = pgstore.NewPaperRepository(pool)
		quizCatalog = pgLoader
		lessons = pgstore.NewLessonRepository(pool)
		users = pgstore.NewUserRepository(pool)
		notifRepo = pgstore.NewNotificationRepository(pool)
		results = pgstore.NewResultRepository(pool)
	} else {
		catalogStore := memory.NewCatalogStore()
		catalogStore.SeedPapers(demo.papers...)
		catalogStore.SeedQuizzes(demo.summaries...)
		catalogStore.SeedLessons(demo.lessons...)
		papers = catalogStore
		quizCatalog = catalogStore
		lessons = catalogStore
		users = memory.NewUserStore()
		notifRepo = memory.NewNotificationStore()
		results = memory.NewResultStore()
	}

	var blobs app.BlobStore
	if redisClient != nil {
		blobs = redisstore.NewBlobStore(redisClient)
	} else {
		blobs = memory.NewBlobStore()
	}

	maxAttempts := cfg.Auth.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	window := config.TTLDuration(cfg.Auth.Window, time.Minute)
	cooldown := config.TTLDuration(cfg.Auth.Cooldown, 5*time.Minute)
	var limiter app.RateLimiter
	var denylist app.TokenDenylist
	if redisClient != nil {
		limiter = redisstore.NewRateLimiter(redisClient, maxAttempts, window, cooldown)
		denylist = redisstore.NewTokenDenylist(redisClient)
	} else {
		limiter = memory.NewRateLimiter(maxAttempts, window, cooldown)
		denylist = memory.NewTokenDenylist()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "insecure-dev-secret"
		log.Warn("JWT_SECRET not set, using development secret")
	}
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)

	authSvc := app.NewAuthService(users, limiter, denylist, secret, tokenTTL, log)
	notificationSvc := app.NewNotificationService(notifRepo, log)
	catalogSvc := app.NewCatalogService(papers, quizRepo, quizCatalog, lessons, blobs, log)
	sessionSvc := app.NewSessionService(memory.NewAttemptStore(), quizRepo, results, catalogSvc, log)

	visibleCap := cfg.Notifications.VisibleCap
	if visibleCap == 0 {
		visibleCap = 3
	}
	dismissAfter := config.TTLDuration(cfg.Notifications.DismissAfter, 5*time.Second)
	pollInterval := config.TTLDuration(cfg.Notifications.PollInterval, 15*time.Second)

	wsHandler := transport.NewWSHandler(sessionSvc, notificationSvc, pollInterval, log,
		app.WithVisibleCap(visibleCap), app.WithDismissAfter(dismissAfter))

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := transport.NewRouter(transport.RouterDeps{
		Auth:           transport.NewAuthHandler(authSvc),
		Catalog:        transport.NewCatalogHandler(catalogSvc),
		Notifications:  transport.NewNotificationHandler(notificationSvc),
		Attempts:       transport.NewAttemptHandler(sessionSvc),
		WS:             wsHandler,
		Middleware:     transport.AuthMiddleware(authSvc),
		AllowedOrigins: origins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type demoData struct {
	papers    []domain.Paper
	summaries []domain.QuizSummary
	quizzes   map[string]domain.Quiz
	lessons   []domain.Lesson
}

// newDemoData provides a minimal catalog for running without Postgres; swap
// in the database-backed stores for real deployments.
func newDemoData() demoData {
	mathsQuiz := domain.Quiz{
		ID:               "quiz-algebra-1",
		PaperID:          "paper-maths",
		Title:            "Algebra Basics",
		TimeLimitMinutes: 10,
		PassingScore:     50,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1, Points: 1},
			{ID: "q2", Text: "Solve x in x + 3 = 5", Options: []string{"1", "2", "3"}, CorrectIndex: 1, Points: 2},
			{ID: "q3", Text: "What is 3 * 3?", Options: []string{"6", "9", "12"}, CorrectIndex: 1, Points: 1},
		},
	}
	return demoData{
		papers: []domain.Paper{
			{ID: "paper-maths", Subject: "Mathematics", Title: "Mathematics Paper 1", Year: 2026},
		},
		summaries: []domain.QuizSummary{
			{
				ID:               mathsQuiz.ID,
				PaperID:          mathsQuiz.PaperID,
				Title:            mathsQuiz.Title,
				QuestionCount:    len(mathsQuiz.Questions),
				TimeLimitMinutes: mathsQuiz.TimeLimitMinutes,
				PassingScore:     mathsQuiz.PassingScore,
			},
		},
		quizzes: map[string]domain.Quiz{mathsQuiz.ID: mathsQuiz},
		lessons: []domain.Lesson{
			{ID: "lesson-1", PaperID: "paper-maths", Title: "Introduction to Algebra", VideoURL: "https://videos.example.com/algebra-intro"},
		},
	}
}
