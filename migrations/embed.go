// Package migrations embeds the SQL schema so it is applied the same way by the
// API binary and by integration tests regardless of the working directory.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
