package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// version_name.sql, version being a UTC timestamp
var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredMarkers = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks every .sql file in dir: the name carries a unique
// timestamp version and the body has both goose markers. All problems are
// reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("migration %q: name must look like YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if first, dup := versions[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("migration %q: version %s already used by %q", name, match[1], first))
			continue
		}
		versions[match[1]] = name
		errs = multierr.Append(errs, checkMarkers(filepath.Join(dir, name)))
	}

	if errs == nil && len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return errs
}

func checkMarkers(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	var errs error
	for _, marker := range requiredMarkers {
		if !strings.Contains(string(body), marker) {
			errs = multierr.Append(errs, fmt.Errorf("migration %q: missing %q", filepath.Base(path), marker))
		}
	}
	return errs
}
