// Package migrations embeds the SQL schema migrations applied by the store
// at open time via goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
