package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"learnpath-service/internal/domain"
)

// LessonRepository serves video lessons and lesson requests from Postgres.
type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

func (r *LessonRepository) ListLessons(ctx context.Context, paperID string) ([]domain.Lesson, error) {
	query := `
		SELECT id, paper_id, title, description, video_url, live, scheduled_at, created_at
		FROM lessons`
	args := []interface{}{}
	if paperID != "" {
		query += ` WHERE paper_id=$1`
		args = append(args, paperID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", mapError(err))
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		var l domain.Lesson
		if err := rows.Scan(&l.ID, &l.PaperID, &l.Title, &l.Description, &l.VideoURL, &l.Live, &l.ScheduledAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (r *LessonRepository) CreateLessonRequest(ctx context.Context, req domain.LessonRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lesson_requests (id, user_id, subject, topic, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.UserID, req.Subject, req.Topic, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lesson request: %w", mapError(err))
	}
	return nil
}
