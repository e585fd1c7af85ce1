package migrations

import (
	_ "embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_core.sql
var createCoreSQL string

//go:embed 0002_create_notifications.sql
var createNotificationsSQL string

var Migrations = migrate.NewMigrations()
