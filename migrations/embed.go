// Package migrations embeds the project schema into the binary so every
// archive can be brought up to date without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/addrslips-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migration set.
func Source() database.Source {
	return database.Source{FS: files, Dir: "."}
}
