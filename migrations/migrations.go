// Package migrations embeds the goose SQL migrations applied on boot.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
