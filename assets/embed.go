// Package assets embeds the default house scene and its companion files so
// the server runs without an ASSETS_DIR.
package assets

import (
	"embed"
	"io/fs"
)

// Default file names. An ASSETS_DIR may provide files with the same names.
const (
	Model         = "house.gltf"
	EnvMap        = "night.hdr"
	Background    = "night.jpg"
	FoundSound    = "clink.wav"
	MigrationsDir = "sql"
)

//go:embed house.gltf night.hdr night.jpg clink.wav sql/*.sql
var FS embed.FS

// Migrations returns the embedded SQL migrations directory.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, MigrationsDir)
}
