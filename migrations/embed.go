// Package migrations embeds the SQL schema migrations applied by goose
// at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Files exposes the embedded migration filesystem.
func Files() embed.FS { return FS }
