// Package migration holds the schema scripts applied by sqlite.Migrate.
//
// Scripts run in lexical order and are never edited once released: a schema
// change is a new script.
package migration

import (
	"embed"
)

//go:embed *.sql
var Scripts embed.FS
