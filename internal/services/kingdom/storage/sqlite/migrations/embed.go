package migrations

import "embed"

// FS contains embedded SQLite migrations for kingdom storage.
//
//go:embed *.sql
var FS embed.FS
