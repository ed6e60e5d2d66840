package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var migrationFileRE = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks that every .sql file in dir is a well-formed goose
// migration: timestamped snake_case filename, unique version, and both
// Up and Down sections present.
func ValidateDir(dir string) error {
	if dir == "" {
		dir = DefaultDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	seen := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		m := migrationFileRE.FindStringSubmatch(entry.Name())
		if m == nil {
			return fmt.Errorf("migration %s: filename must match YYYYMMDDHHMMSS_snake_case.sql", entry.Name())
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("migration %s: duplicate version %s (also %s)", entry.Name(), version, prev)
		}
		seen[version] = entry.Name()

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		content := string(raw)
		if !strings.Contains(content, "-- +goose Up") {
			return fmt.Errorf("migration %s: missing '-- +goose Up' marker", entry.Name())
		}
		if !strings.Contains(content, "-- +goose Down") {
			return fmt.Errorf("migration %s: missing '-- +goose Down' marker", entry.Name())
		}
	}

	if len(seen) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	return nil
}
