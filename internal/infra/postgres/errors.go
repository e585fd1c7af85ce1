package postgres

import (
	"errors"

	"github.com/jackc/pgconn"

	"learnpath-service/internal/domain"
)

// undefined_table: the deployment has not run migrations for this feature
// yet; callers degrade to empty collections.
const undefinedTableCode = "42P01"

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
		return domain.ErrNotConfigured
	}
	return err
}
