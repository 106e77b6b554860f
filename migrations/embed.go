// Package migrations embeds SQL migration files into the binary.
//
// This allows the camera node to run migrations without needing the SQL
// files present on the filesystem - they're compiled into the executable.
package migrations

import (
	"embed"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/settings"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the settings package.
	// The embed directive above captures all .sql files in this directory.
	settings.MigrationsFS = migrationsFS
	settings.MigrationsDir = "." // Files are at root of embedded FS
}
