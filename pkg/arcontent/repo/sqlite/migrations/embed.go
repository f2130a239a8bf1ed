package migrations

import "embed"

// FS contains embedded SQLite migrations for the AR content store.
//
//go:embed *.sql
var FS embed.FS
