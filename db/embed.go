// Package db holds the embedded database migrations for the sqlbee
// collector's span store.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
