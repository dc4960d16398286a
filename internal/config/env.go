package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docprep/internal/logfields"
)

// envFiles are tried in order; values never override the process environment.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every env file present in dir. A file that exists but
// cannot be parsed is logged and skipped.
func loadEnvFiles(dir string) []string {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Ignoring unreadable env file", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(path))
		loaded = append(loaded, path)
	}
	return loaded
}
