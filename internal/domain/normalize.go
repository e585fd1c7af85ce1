package domain

import "strings"

const (
	maxOptionsPerQuestion = 5
	defaultTimeLimitMin   = 10
	defaultPassingScore   = 50
)

// NormalizeQuiz applies strict defaulting to a quiz loaded from the backing
// store. Backend rows are loosely typed JSON, so every fallback lives here
// rather than scattered through callers: options are capped at five, points
// default to one, the correct index is clamped into range, and questions
// without at least two options are dropped.
func NormalizeQuiz(quiz Quiz) Quiz {
	if quiz.TimeLimitMinutes <= 0 {
		quiz.TimeLimitMinutes = defaultTimeLimitMin
	}
	if quiz.PassingScore <= 0 || quiz.PassingScore > 100 {
		quiz.PassingScore = defaultPassingScore
	}

	questions := make([]Question, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		if len(question.Options) > maxOptionsPerQuestion {
			question.Options = question.Options[:maxOptionsPerQuestion]
		}
		if len(question.Options) < 2 {
			continue
		}
		if question.Points < 1 {
			question.Points = 1
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			question.CorrectIndex = 0
		}
		questions = append(questions, question)
	}
	quiz.Questions = questions
	return quiz
}

// NormalizeNotification fills defaults on a notification row.
func NormalizeNotification(n Notification) Notification {
	if n.Type == "" {
		n.Type = "general"
	}
	if n.Priority == "" {
		n.Priority = "normal"
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	return n
}
