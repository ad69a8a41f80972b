// Package gatewaydb holds all the migrations for the gateway database
package gatewaydb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry the numbered migration files register into.
var Migrations = migrate.NewMigrations()
