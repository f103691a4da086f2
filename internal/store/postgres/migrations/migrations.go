// Package migrations embeds the battle server's goose SQL migrations, the
// way la2go's internal/db/migrations embeds its own schema files for
// goose.SetBaseFS.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
