package migrate

import (
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// EmbeddedDir selects the migrations compiled into the binary. Any other dir
// is read from disk.
const EmbeddedDir = "migrations"

// Embedded exposes the compiled-in migrations.
func Embedded() fs.FS { return embedded }

// useDir points goose at the embedded FS or the OS filesystem and returns the
// directory goose should read.
func useDir(dir string) string {
	if dir == "" || dir == EmbeddedDir {
		goose.SetBaseFS(embedded)
		return EmbeddedDir
	}
	goose.SetBaseFS(nil)
	return dir
}
