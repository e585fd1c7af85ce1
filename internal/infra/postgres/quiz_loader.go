package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnpath-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres. Rows are normalized at this
// boundary so loose backend data never reaches the state machine.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", mapError(err))
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	return domain.NormalizeQuiz(quiz), nil
}

// ListQuizzes builds browsing summaries from the stored JSONB.
func (l *QuizLoader) ListQuizzes(ctx context.Context, paperID string) ([]domain.QuizSummary, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", mapError(err))
	}
	defer rows.Close()

	var summaries []domain.QuizSummary
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			continue
		}
		quiz.ID = id
		quiz = domain.NormalizeQuiz(quiz)
		if paperID != "" && quiz.PaperID != paperID {
			continue
		}
		summaries = append(summaries, domain.QuizSummary{
			ID:               quiz.ID,
			PaperID:          quiz.PaperID,
			Title:            quiz.Title,
			QuestionCount:    len(quiz.Questions),
			TimeLimitMinutes: quiz.TimeLimitMinutes,
			PassingScore:     quiz.PassingScore,
		})
	}
	return summaries, rows.Err()
}
