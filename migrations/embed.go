package migrations

import "embed"

// FS holds the SQL migrations applied on startup by the postgres store.
//
//go:embed *.sql
var FS embed.FS
