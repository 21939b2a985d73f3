// Package models holds the rows the backend keeps in PostgreSQL. Timestamps
// are Unix seconds stamped by the client that made the change.
package models
