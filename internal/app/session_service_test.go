package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "learnpath-service/internal/app"
	"learnpath-service/internal/domain"
	"learnpath-service/internal/infra/memory"
	"learnpath-service/internal/logging"
)

type sessionFixture struct {
	service *SessionService
	results *memory.ResultStore
	catalog *CatalogService
	blobs   *memory.BlobStore
}

func newSessionFixture(t *testing.T, quizzes map[string]domain.Quiz) *sessionFixture {
	t.Helper()
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), time.Minute)
	results := memory.NewResultStore()
	blobs := memory.NewBlobStore()
	store := memory.NewCatalogStore()
	catalog := NewCatalogService(store, repo, store, store, blobs, logging.Discard())
	service := NewSessionService(memory.NewAttemptStore(), repo, results, catalog, logging.Discard())
	return &sessionFixture{service: service, results: results, catalog: catalog, blobs: blobs}
}

func TestSessionStartUnknownQuiz(t *testing.T) {
	f := newSessionFixture(t, map[string]domain.Quiz{})
	_, err := f.service.StartAttempt(context.Background(), "user-1", "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}

func TestSessionFullAttemptFlow(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if view.State != StateInProgress || view.QuestionIndex != 0 {
		t.Fatalf("view = %+v, want in-progress at question 0", view)
	}

	updates, cancel, err := f.service.Subscribe(view.ID, "user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	for i := 0; i < len(quiz.Questions); i++ {
		if _, err := f.service.SelectAnswer(ctx, view.ID, "user-1", quiz.Questions[i].CorrectIndex); err != nil {
			t.Fatalf("select answer %d: %v", i, err)
		}
		if _, err := f.service.Advance(ctx, view.ID, "user-1"); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	result, err := f.service.Result(ctx, view.ID, "user-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.ScorePercent != 100 || !result.Passed {
		t.Errorf("result = %d%% passed=%v, want 100%% passed", result.ScorePercent, result.Passed)
	}

	var completed *AttemptEvent
	deadline := time.After(2 * time.Second)
	for completed == nil {
		select {
		case event := <-updates:
			if event.Type == EventCompleted {
				completed = &event
			}
		case <-deadline:
			t.Fatal("no completed event on the feed")
		}
	}
	if completed.Reason != ReasonSubmitted {
		t.Errorf("completion reason = %s, want %s", completed.Reason, ReasonSubmitted)
	}
	if completed.Result == nil || completed.Result.AttemptID != view.ID {
		t.Errorf("completed event result = %+v, want attempt %s", completed.Result, view.ID)
	}

	saved := f.results.Results()
	if len(saved) != 1 || saved[0].AttemptID != view.ID {
		t.Fatalf("persisted results = %+v, want one for %s", saved, view.ID)
	}

	recents, err := f.catalog.RecentQuizzes(ctx, "user-1")
	if err != nil {
		t.Fatalf("recent quizzes: %v", err)
	}
	if len(recents) != 1 || recents[0].QuizID != quiz.ID {
		t.Fatalf("recents = %+v, want one entry for %s", recents, quiz.ID)
	}
}

func TestSessionAttemptOwnership(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	if _, err := f.service.Get(ctx, view.ID, "intruder"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("foreign user read attempt: %v", err)
	}
	if _, _, err := f.service.Subscribe(view.ID, "intruder"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("foreign user subscribed: %v", err)
	}
}

func TestSessionResultWhileInProgress(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if _, err := f.service.Result(ctx, view.ID, "user-1"); !errors.Is(err, domain.ErrAttemptInProgress) {
		t.Fatalf("err = %v, want ErrAttemptInProgress", err)
	}
}

func TestSessionCountdownExpiresAttempt(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	quiz.TimeLimitMinutes = 1
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})
	// One countdown second per millisecond: the minute expires in ~60ms.
	f.service.SetTick(time.Millisecond)

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	updates, cancel, err := f.service.Subscribe(view.ID, "user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := f.service.SelectAnswer(ctx, view.ID, "user-1", 0); err != nil {
		t.Fatalf("select answer: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-updates:
			if event.Type != EventCompleted {
				continue
			}
			if event.Reason != ReasonExpired {
				t.Fatalf("completion reason = %s, want %s", event.Reason, ReasonExpired)
			}
			result, err := f.service.Result(ctx, view.ID, "user-1")
			if err != nil {
				t.Fatalf("result after expiry: %v", err)
			}
			if !result.Expired {
				t.Error("result not flagged expired")
			}
			if len(result.Responses) != 1 {
				t.Errorf("responses = %d, want 1 (pending committed on expiry)", len(result.Responses))
			}
			return
		case <-deadline:
			t.Fatal("countdown never expired the attempt")
		}
	}
}

func TestSessionAbandon(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if err := f.service.Abandon(ctx, view.ID, "user-1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := f.service.Get(ctx, view.ID, "user-1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("abandoned attempt still readable: %v", err)
	}
	if saved := f.results.Results(); len(saved) != 0 {
		t.Fatalf("abandoned attempt was scored: %+v", saved)
	}
}

func TestSessionCompletedAttemptSurvivesAbandon(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if _, err := f.service.SelectAnswer(ctx, view.ID, "user-1", 0); err != nil {
		t.Fatalf("select answer: %v", err)
	}
	if _, err := f.service.Submit(ctx, view.ID, "user-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.service.Abandon(ctx, view.ID, "user-1"); err != nil {
		t.Fatalf("abandon completed attempt: %v", err)
	}
	if _, err := f.service.Result(ctx, view.ID, "user-1"); err != nil {
		t.Fatalf("completed attempt dropped by abandon: %v", err)
	}
}

func TestSessionBroadcastDropsOldestForSlowConsumer(t *testing.T) {
	f := newSessionFixture(t, map[string]domain.Quiz{})
	ch := make(chan AttemptEvent, 2)
	f.service.InjectSubscriber("attempt-x", ch)

	for i := 1; i <= 5; i++ {
		f.service.Broadcast("attempt-x", AttemptEvent{Type: EventTick, Remaining: i})
	}

	// Buffer holds the most recent events, never blocks the sender.
	got := []int{(<-ch).Remaining, (<-ch).Remaining}
	if got[1] != 5 {
		t.Fatalf("newest buffered event = %v, want remaining=5 last", got)
	}
	select {
	case event := <-ch:
		t.Fatalf("unexpected extra event: %+v", event)
	default:
	}
}

func TestSessionRecentsDeduplicate(t *testing.T) {
	ctx := context.Background()
	quiz := ThreeQuestionQuiz()
	f := newSessionFixture(t, map[string]domain.Quiz{quiz.ID: quiz})

	for round := 0; round < 3; round++ {
		view, err := f.service.StartAttempt(ctx, "user-1", quiz.ID)
		if err != nil {
			t.Fatalf("start attempt %d: %v", round, err)
		}
		if _, err := f.service.SelectAnswer(ctx, view.ID, "user-1", 0); err != nil {
			t.Fatalf("select: %v", err)
		}
		if _, err := f.service.Submit(ctx, view.ID, "user-1"); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	recents, err := f.catalog.RecentQuizzes(ctx, "user-1")
	if err != nil {
		t.Fatalf("recent quizzes: %v", err)
	}
	if len(recents) != 1 {
		t.Fatalf("recents = %d entries, want 1 (deduplicated)", len(recents))
	}
	if recents[0].QuizID != quiz.ID {
		t.Fatalf("recent entry = %+v, want quiz %q", recents[0], quiz.ID)
	}
}
