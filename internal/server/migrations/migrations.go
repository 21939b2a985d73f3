// Package migrations embeds the PostgreSQL schema of the backend.
package migrations

import "embed"

// Migrations holds the goose migration files at its root.
//
//go:embed *.sql
var Migrations embed.FS
