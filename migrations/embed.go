// Package migrations embeds the SQL migration files applied by pkg/dbmigrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
