// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds every *.sql migration in lexical apply order
//
//go:embed *.sql
var FS embed.FS
