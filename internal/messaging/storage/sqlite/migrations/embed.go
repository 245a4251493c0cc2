package migrations

import "embed"

// FS contains embedded SQLite migrations for messaging storage.
//
//go:embed *.sql
var FS embed.FS
