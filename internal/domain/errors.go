package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrPaperNotFound indicates an unknown subject paper.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrLessonNotFound indicates an unknown lesson.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrAttemptNotFound is returned when an attempt id is unknown or owned by another user.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned when a mutating call reaches a finished attempt.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrAttemptInProgress is returned when results are requested before completion.
	ErrAttemptInProgress = errors.New("attempt still in progress")
	// ErrNotificationNotFound indicates an unknown notification id.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrEmailTaken is returned on sign-up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotConfigured marks a backend resource (table, keyspace) that does not
	// exist yet; callers degrade to empty collections instead of failing.
	ErrNotConfigured = errors.New("backend resource not configured")
	// ErrEmptyQuiz rejects starting an attempt on a quiz with no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
)

// AuthReason classifies authentication failures.
type AuthReason string

const (
	AuthInvalidCredentials AuthReason = "invalid_credentials"
	AuthRateLimited        AuthReason = "rate_limited"
	AuthUnconfirmedEmail   AuthReason = "unconfirmed_email"
	AuthValidation         AuthReason = "validation"
)

// AuthError is a typed authentication failure. For rate-limited failures
// RetryAfter carries the cooldown in seconds so callers can seed a countdown
// from an absolute unlock timestamp.
type AuthError struct {
	Reason     AuthReason
	Message    string
	RetryAfter int
}

func (e *AuthError) Error() string {
	if e.Reason == AuthRateLimited {
		return fmt.Sprintf("%s: retry after %ds", e.Message, e.RetryAfter)
	}
	return e.Message
}

// AsAuthError unwraps err into an AuthError if it is one.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
