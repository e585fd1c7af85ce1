package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"learnpath-service/internal/domain"
)

// AttemptStore abstracts how live attempts are held (in-memory, Redis-backed).
type AttemptStore interface {
	Put(attempt *Attempt)
	Get(id string) (*Attempt, bool)
	Delete(id string)
}

// ResultRepository persists completed attempt results.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.AttemptResult) error
}

// RecentRecorder records a completed quiz in the user's recent list.
type RecentRecorder interface {
	RecordRecent(ctx context.Context, userID string, entry domain.RecentQuiz)
}

// AttemptEventType labels events on an attempt's live feed.
type AttemptEventType string

const (
	EventTick      AttemptEventType = "tick"
	EventCompleted AttemptEventType = "completed"
)

// AttemptEvent is pushed to subscribers of an attempt feed.
type AttemptEvent struct {
	Type      AttemptEventType      `json:"type"`
	Remaining int                   `json:"remaining"`
	Reason    CompletionReason      `json:"reason,omitempty"`
	Result    *domain.AttemptResult `json:"result,omitempty"`
}

// SessionService runs quiz attempts: it creates them, drives their
// countdowns, fans out tick/completion events, and persists results when an
// attempt finishes. Result and recent-list writes are optimistic; failures
// are logged and never surface to the learner.
type SessionService struct {
	attempts AttemptStore
	quizzes  QuizRepository
	results  ResultRepository
	recents  RecentRecorder
	log      *logrus.Entry
	tick     time.Duration
	now      func() time.Time

	mu         sync.Mutex
	countdowns map[string]*Countdown
	subs       map[string]map[chan AttemptEvent]struct{}
}

func NewSessionService(attempts AttemptStore, quizzes QuizRepository, results ResultRepository, recents RecentRecorder, log *logrus.Entry) *SessionService {
	return &SessionService{
		attempts:   attempts,
		quizzes:    quizzes,
		results:    results,
		recents:    recents,
		log:        log,
		tick:       time.Second,
		now:        time.Now,
		countdowns: make(map[string]*Countdown),
		subs:       make(map[string]map[chan AttemptEvent]struct{}),
	}
}

// StartAttempt loads the quiz and begins a fresh timed attempt for the user.
func (s *SessionService) StartAttempt(ctx context.Context, userID, quizID string) (AttemptView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptView{}, err
	}

	attempt := NewAttemptWithClock(uuid.New().String(), userID, quiz, s.now)
	attempt.OnComplete(func(reason CompletionReason) {
		s.finalize(attempt, reason)
	})
	if err := attempt.Start(); err != nil {
		return AttemptView{}, err
	}
	s.attempts.Put(attempt)

	id := attempt.ID()
	countdown := startCountdown(quiz.TimeLimitMinutes*60, s.tick, s.now,
		func(remaining int) {
			attempt.SetRemaining(remaining)
			s.broadcast(id, AttemptEvent{Type: EventTick, Remaining: remaining})
		},
		func() {
			attempt.Expire()
		},
	)
	s.mu.Lock()
	s.countdowns[id] = countdown
	s.mu.Unlock()

	return attempt.Snapshot(), nil
}

// SelectAnswer sets the pending answer on the current question.
func (s *SessionService) SelectAnswer(ctx context.Context, attemptID, userID string, optionIndex int) (AttemptView, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	attempt.SelectAnswer(optionIndex)
	return attempt.Snapshot(), nil
}

// Advance commits the pending answer and moves forward.
func (s *SessionService) Advance(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	attempt.Advance()
	return attempt.Snapshot(), nil
}

// Retreat steps back one question.
func (s *SessionService) Retreat(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	attempt.Retreat()
	return attempt.Snapshot(), nil
}

// Submit commits the pending answer and completes the attempt.
func (s *SessionService) Submit(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	attempt.Submit()
	return attempt.Snapshot(), nil
}

// Get returns the current attempt state.
func (s *SessionService) Get(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	return attempt.Snapshot(), nil
}

// Result returns the scored outcome of a completed attempt.
func (s *SessionService) Result(ctx context.Context, attemptID, userID string) (domain.AttemptResult, error) {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	result, ok := attempt.Result()
	if !ok {
		return domain.AttemptResult{}, domain.ErrAttemptInProgress
	}
	return result, nil
}

// Abandon drops an in-progress attempt: the countdown stops and the attempt
// is forgotten without being scored. Completed attempts stay retrievable.
func (s *SessionService) Abandon(ctx context.Context, attemptID, userID string) error {
	attempt, err := s.attempt(attemptID, userID)
	if err != nil {
		return err
	}
	if attempt.Completed() {
		return nil
	}
	s.stopCountdown(attemptID)
	s.closeSubs(attemptID)
	s.attempts.Delete(attemptID)
	return nil
}

// Subscribe returns a channel receiving tick and completion events for an
// attempt. The caller must invoke the returned cancel function.
func (s *SessionService) Subscribe(attemptID, userID string) (<-chan AttemptEvent, func(), error) {
	if _, err := s.attempt(attemptID, userID); err != nil {
		return nil, nil, err
	}

	ch := make(chan AttemptEvent, 8)
	s.mu.Lock()
	if s.subs[attemptID] == nil {
		s.subs[attemptID] = make(map[chan AttemptEvent]struct{})
	}
	s.subs[attemptID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.subs[attemptID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.subs, attemptID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *SessionService) attempt(id, userID string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(id)
	if !ok || attempt.UserID() != userID {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// finalize runs once per attempt, from the state machine's completion
// callback, regardless of whether completion came from a submit or the
// countdown expiring.
func (s *SessionService) finalize(attempt *Attempt, reason CompletionReason) {
	id := attempt.ID()
	s.stopCountdown(id)

	result, ok := attempt.Result()
	if !ok {
		return
	}

	ctx := context.Background()
	if err := s.results.SaveResult(ctx, result); err != nil {
		s.log.WithError(err).WithField("attempt_id", id).Warn("persist attempt result failed")
	}
	if s.recents != nil {
		s.recents.RecordRecent(ctx, result.UserID, domain.RecentQuiz{
			QuizID:       result.QuizID,
			Title:        attempt.Quiz().Title,
			ScorePercent: result.ScorePercent,
			Passed:       result.Passed,
			TakenAt:      result.CompletedAt,
		})
	}

	s.broadcast(id, AttemptEvent{
		Type:   EventCompleted,
		Reason: reason,
		Result: &result,
	})
}

func (s *SessionService) stopCountdown(attemptID string) {
	s.mu.Lock()
	countdown, ok := s.countdowns[attemptID]
	if ok {
		delete(s.countdowns, attemptID)
	}
	s.mu.Unlock()
	if ok {
		countdown.Stop()
	}
}

func (s *SessionService) closeSubs(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[attemptID] {
		close(ch)
	}
	delete(s.subs, attemptID)
}

// broadcast fans an event out to subscribers, dropping the oldest buffered
// event for a slow consumer rather than blocking the timer goroutine.
func (s *SessionService) broadcast(attemptID string, event AttemptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[attemptID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
