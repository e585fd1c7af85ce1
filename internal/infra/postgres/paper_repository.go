package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"learnpath-service/internal/domain"
)

// PaperRepository lists subject papers from Postgres.
type PaperRepository struct {
	pool *pgxpool.Pool
}

func NewPaperRepository(pool *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{pool: pool}
}

func (r *PaperRepository) ListPapers(ctx context.Context) ([]domain.Paper, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject, title, year, description, created_at
		FROM papers
		ORDER BY subject, year DESC`)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", mapError(err))
	}
	defer rows.Close()

	var papers []domain.Paper
	for rows.Next() {
		var p domain.Paper
		if err := rows.Scan(&p.ID, &p.Subject, &p.Title, &p.Year, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
