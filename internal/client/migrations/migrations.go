// Package migrations embeds the SQLite schema of the local document store.
package migrations

import "embed"

// FS holds the goose migration files at its root.
//
//go:embed *.sql
var FS embed.FS
