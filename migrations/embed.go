// Package migrations holds the goose SQL migrations applied by database.InitDB.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
