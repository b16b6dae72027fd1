// Package migrations carries the SQL schema for the Postgres backend.
package migrations

import "embed"

// FS holds every numbered migration file.
//
//go:embed *.sql
var FS embed.FS
