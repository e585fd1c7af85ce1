package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createCoreSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS attempt_results;
				DROP TABLE IF EXISTS lesson_requests;
				DROP TABLE IF EXISTS lessons;
				DROP TABLE IF EXISTS quizzes;
				DROP TABLE IF EXISTS papers;
				DROP TABLE IF EXISTS users`)
			return err
		},
	)
}
