// Package migrations embeds the SQL schema for the vector store.
package migrations

import "embed"

// FS holds the versioned migration files.
//
//go:embed *.sql
var FS embed.FS
