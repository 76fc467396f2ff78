// Package migrations embeds the ledger's SQL schema migrations.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files in golang-migrate naming
//
//go:embed *.sql
var FS embed.FS
