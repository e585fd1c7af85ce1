package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"learnpath-service/internal/domain"
)

// ResultRepository persists completed attempt results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) SaveResult(ctx context.Context, result domain.AttemptResult) error {
	responses, err := json.Marshal(result.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO attempt_results
			(attempt_id, quiz_id, user_id, responses, points_earned, points_total,
			 score_percent, passed, expired, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (attempt_id) DO NOTHING`,
		result.AttemptID, result.QuizID, result.UserID, responses,
		result.PointsEarned, result.PointsTotal, result.ScorePercent,
		result.Passed, result.Expired, result.StartedAt, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("save attempt result: %w", mapError(err))
	}
	return nil
}
