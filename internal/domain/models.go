package domain

import "time"

// User is a registered learner.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"displayName"`
	PasswordHash   string    `json:"-"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Paper is a subject paper grouping quizzes and lessons.
type Paper struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Title       string    `json:"title"`
	Year        int       `json:"year"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"` // at most 5
	CorrectIndex int      `json:"correctIndex"`
	Points       int      `json:"points"` // defaults to 1 if zero
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// Quiz is an ordered collection of questions taken against a time limit.
type Quiz struct {
	ID               string     `json:"id"`
	PaperID          string     `json:"paperId"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	PassingScore     int        `json:"passingScore"` // percent
}

// TotalPoints sums the points available across all questions.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// QuizSummary is a listing view that omits question content.
type QuizSummary struct {
	ID               string `json:"id"`
	PaperID          string `json:"paperId"`
	Title            string `json:"title"`
	QuestionCount    int    `json:"questionCount"`
	TimeLimitMinutes int    `json:"timeLimitMinutes"`
	PassingScore     int    `json:"passingScore"`
}

// QuizResponse is one committed answer. Exactly one response exists per
// question already passed while an attempt is in progress.
type QuizResponse struct {
	QuestionID       string `json:"questionId"`
	SelectedIndex    int    `json:"selectedIndex"`
	Correct          bool   `json:"correct"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// AttemptResult is the finalized outcome of a quiz attempt.
type AttemptResult struct {
	AttemptID    string         `json:"attemptId"`
	QuizID       string         `json:"quizId"`
	UserID       string         `json:"userId"`
	Responses    []QuizResponse `json:"responses"`
	PointsEarned int            `json:"pointsEarned"`
	PointsTotal  int            `json:"pointsTotal"`
	ScorePercent int            `json:"scorePercent"`
	Passed       bool           `json:"passed"`
	Expired      bool           `json:"expired"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  time.Time      `json:"completedAt"`
}

// RecentQuiz is one entry of a user's recent-quizzes list, persisted as an
// opaque JSON blob in the key-value store.
type RecentQuiz struct {
	QuizID       string    `json:"quizId"`
	Title        string    `json:"title"`
	ScorePercent int       `json:"scorePercent"`
	Passed       bool      `json:"passed"`
	TakenAt      time.Time `json:"takenAt"`
}

// Lesson is a recorded or live video lesson.
type Lesson struct {
	ID          string     `json:"id"`
	PaperID     string     `json:"paperId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoURL    string     `json:"videoUrl"`
	Live        bool       `json:"live"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LessonRequest is a learner asking for a lesson on a topic.
type LessonRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification is an alert addressed to one user or broadcast to everyone.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId,omitempty"` // empty means broadcast
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Priority  string            `json:"priority"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Read reports whether the notification has been marked read.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// Broadcast reports whether the notification is addressed to all users.
func (n Notification) Broadcast() bool {
	return n.UserID == ""
}
