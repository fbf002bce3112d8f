// Package migrations хранит sql-миграции, зашитые в бинарник.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
