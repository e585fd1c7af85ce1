package app

import (
	"math"
	"sync"
	"time"

	"learnpath-service/internal/domain"
)

// AttemptState enumerates the lifecycle of a quiz attempt.
type AttemptState string

const (
	StateNotStarted AttemptState = "not_started"
	StateInProgress AttemptState = "in_progress"
	StateCompleted  AttemptState = "completed"
)

// CompletionReason distinguishes a normal submission from a forced
// time-expiry completion.
type CompletionReason string

const (
	ReasonSubmitted CompletionReason = "submitted"
	ReasonExpired   CompletionReason = "expired"
)

const noPending = -1

// Attempt is one user's in-progress or completed pass through a quiz.
// It holds the quiz snapshot, the question cursor, the committed responses
// and the pending (not yet committed) answer. Every mutating operation is a
// silent no-op when its preconditions do not hold; once completed the
// attempt is frozen and only readable.
//
// While in progress exactly one committed response exists per question
// already passed: len(responses) == index.
type Attempt struct {
	id     string
	userID string
	quiz   domain.Quiz
	now    func() time.Time

	mu         sync.Mutex
	state      AttemptState
	index      int
	pending    int
	responses  []domain.QuizResponse
	startedAt  time.Time
	questionAt time.Time
	remaining  int
	reason     CompletionReason
	onComplete func(CompletionReason)
}

// NewAttempt builds an attempt in the NotStarted state.
func NewAttempt(id, userID string, quiz domain.Quiz) *Attempt {
	return NewAttemptWithClock(id, userID, quiz, time.Now)
}

// NewAttemptWithClock allows deterministic timestamps in tests.
func NewAttemptWithClock(id, userID string, quiz domain.Quiz, now func() time.Time) *Attempt {
	return &Attempt{
		id:      id,
		userID:  userID,
		quiz:    quiz,
		now:     now,
		state:   StateNotStarted,
		pending: noPending,
	}
}

// ID returns the attempt id.
func (a *Attempt) ID() string { return a.id }

// UserID returns the owning user's id.
func (a *Attempt) UserID() string { return a.userID }

// Quiz returns the quiz snapshot the attempt was started from.
func (a *Attempt) Quiz() domain.Quiz { return a.quiz }

// OnComplete registers the completion callback. Set it before Start; the
// callback runs outside the attempt lock so it may call back into the
// attempt or the owning service.
func (a *Attempt) OnComplete(fn func(CompletionReason)) {
	a.mu.Lock()
	a.onComplete = fn
	a.mu.Unlock()
}

// Start moves the attempt into progress with the cursor on the first
// question and the full time limit remaining.
func (a *Attempt) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateNotStarted {
		return nil
	}
	if len(a.quiz.Questions) == 0 {
		return domain.ErrEmptyQuiz
	}
	now := a.now()
	a.state = StateInProgress
	a.index = 0
	a.pending = noPending
	a.responses = a.responses[:0]
	a.startedAt = now
	a.questionAt = now
	a.remaining = a.quiz.TimeLimitMinutes * 60
	return nil
}

// SelectAnswer records the pending answer for the current question. It does
// not touch the committed responses until navigation or submit commits it.
func (a *Attempt) SelectAnswer(optionIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return
	}
	if optionIndex < 0 || optionIndex >= len(a.quiz.Questions[a.index].Options) {
		return
	}
	a.pending = optionIndex
}

// Advance commits the pending answer for the current question and moves the
// cursor forward, completing the attempt on the last question.
func (a *Attempt) Advance() {
	a.commitAndMove(false)
}

// Submit commits the pending answer and completes the attempt regardless of
// cursor position.
func (a *Attempt) Submit() {
	a.commitAndMove(true)
}

func (a *Attempt) commitAndMove(forceComplete bool) {
	a.mu.Lock()
	if a.state != StateInProgress || a.pending == noPending {
		a.mu.Unlock()
		return
	}
	a.commitLocked()
	if forceComplete || a.index == len(a.quiz.Questions)-1 {
		done := a.completeLocked(ReasonSubmitted)
		a.mu.Unlock()
		a.fireComplete(done, ReasonSubmitted)
		return
	}
	a.index++
	a.pending = noPending
	a.questionAt = a.now()
	a.mu.Unlock()
}

// Retreat steps back one question. The response recorded for the question
// being returned to is discarded and its selected option restored as the
// pending answer; it must be re-committed to count again.
func (a *Attempt) Retreat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress || a.index == 0 {
		return
	}
	prior := a.responses[a.index-1]
	a.responses = a.responses[:a.index-1]
	a.index--
	a.pending = prior.SelectedIndex
	a.questionAt = a.now()
}

// Expire forces completion when the countdown reaches zero. A pending answer
// is committed for the current question only; unanswered questions stay
// unanswered.
func (a *Attempt) Expire() {
	a.mu.Lock()
	if a.state != StateInProgress {
		a.mu.Unlock()
		return
	}
	if a.pending != noPending {
		a.commitLocked()
	}
	a.remaining = 0
	done := a.completeLocked(ReasonExpired)
	a.mu.Unlock()
	a.fireComplete(done, ReasonExpired)
}

// SetRemaining records the seconds left as reported by the countdown.
// Frozen once completed; never goes negative.
func (a *Attempt) SetRemaining(seconds int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	a.remaining = seconds
}

func (a *Attempt) commitLocked() {
	question := a.quiz.Questions[a.index]
	response := domain.QuizResponse{
		QuestionID:       question.ID,
		SelectedIndex:    a.pending,
		Correct:          a.pending == question.CorrectIndex,
		TimeSpentSeconds: int(a.now().Sub(a.questionAt).Seconds()),
	}
	if a.index < len(a.responses) {
		a.responses[a.index] = response
	} else {
		a.responses = append(a.responses, response)
	}
}

func (a *Attempt) completeLocked(reason CompletionReason) func(CompletionReason) {
	a.state = StateCompleted
	a.reason = reason
	a.pending = noPending
	return a.onComplete
}

func (a *Attempt) fireComplete(fn func(CompletionReason), reason CompletionReason) {
	if fn != nil {
		fn(reason)
	}
}

// Completed reports whether the attempt reached its terminal state.
func (a *Attempt) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == StateCompleted
}

// Result scores the attempt. It is only available once completed.
func (a *Attempt) Result() (domain.AttemptResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateCompleted {
		return domain.AttemptResult{}, false
	}

	earned := 0
	for _, response := range a.responses {
		if !response.Correct {
			continue
		}
		for _, question := range a.quiz.Questions {
			if question.ID == response.QuestionID {
				earned += question.Points
				break
			}
		}
	}
	total := a.quiz.TotalPoints()
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(earned) / float64(total) * 100))
	}

	responses := make([]domain.QuizResponse, len(a.responses))
	copy(responses, a.responses)

	return domain.AttemptResult{
		AttemptID:    a.id,
		QuizID:       a.quiz.ID,
		UserID:       a.userID,
		Responses:    responses,
		PointsEarned: earned,
		PointsTotal:  total,
		ScorePercent: percent,
		Passed:       percent >= a.quiz.PassingScore,
		Expired:      a.reason == ReasonExpired,
		StartedAt:    a.startedAt,
		CompletedAt:  a.now(),
	}, true
}

// QuestionView is the client-facing shape of a question; the correct index
// never leaves the server while an attempt is live.
type QuestionView struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Points   int      `json:"points"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// AttemptView is a snapshot of attempt state for transport.
type AttemptView struct {
	ID            string           `json:"id"`
	QuizID        string           `json:"quizId"`
	State         AttemptState     `json:"state"`
	QuestionIndex int              `json:"questionIndex"`
	QuestionCount int              `json:"questionCount"`
	Question      *QuestionView    `json:"question,omitempty"`
	PendingIndex  *int             `json:"pendingIndex,omitempty"`
	Answered      int              `json:"answered"`
	Remaining     int              `json:"remaining"`
	Reason        CompletionReason `json:"reason,omitempty"`
}

// Snapshot returns the current state for rendering.
func (a *Attempt) Snapshot() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := AttemptView{
		ID:            a.id,
		QuizID:        a.quiz.ID,
		State:         a.state,
		QuestionIndex: a.index,
		QuestionCount: len(a.quiz.Questions),
		Answered:      len(a.responses),
		Remaining:     a.remaining,
		Reason:        a.reason,
	}
	if a.state == StateInProgress {
		question := a.quiz.Questions[a.index]
		view.Question = &QuestionView{
			ID:       question.ID,
			Text:     question.Text,
			Options:  question.Options,
			Points:   question.Points,
			ImageURL: question.ImageURL,
		}
		if a.pending != noPending {
			pending := a.pending
			view.PendingIndex = &pending
		}
	}
	return view
}
