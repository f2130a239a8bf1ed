package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for the AR content schema.
//
//go:embed *.sql
var FS embed.FS
