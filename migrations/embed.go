// Package migrations embeds the Postgres schema for subscriptions and usage events.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
