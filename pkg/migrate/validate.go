package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir ("" for the embedded set).
func ValidateDir(dir string) error {
	fsys, err := Sources(dir)
	if err != nil {
		return err
	}
	return ValidateFS(fsys)
}

// ValidateFS reports every malformed migration at once: bad file names, repeated versions,
// missing Up or Down sections and unbalanced statement blocks.
func ValidateFS(fsys fs.FS) error {
	names, err := migrationFiles(fsys)
	if err != nil {
		return err
	}

	var problems error
	seen := map[int64]string{}
	for _, name := range names {
		version, err := fileVersion(name)
		if err != nil {
			problems = multierr.Append(problems, err)
			continue
		}
		if prev, ok := seen[version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name))
			continue
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("read %q: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(name, string(body)))
	}
	return problems
}

func checkAnnotations(name, body string) error {
	var problems error
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		problems = multierr.Append(problems, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
	case down < 0:
		problems = multierr.Append(problems, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
	case down < up:
		problems = multierr.Append(problems, fmt.Errorf("migration %q declares Down before Up", name))
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	ends := strings.Count(body, "-- +goose StatementEnd")
	if begins != ends {
		problems = multierr.Append(problems, fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, begins, ends))
	}
	return problems
}

// migrationFiles lists the .sql files at the root of fsys in name order.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func fileVersion(name string) (int64, error) {
	m := sqlFileRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	return strconv.ParseInt(m[1], 10, 64)
}

// latestVersion is the highest well-formed version in fsys, or zero.
func latestVersion(fsys fs.FS) (int64, error) {
	names, err := migrationFiles(fsys)
	if err != nil {
		return 0, err
	}
	var latest int64
	for _, name := range names {
		if v, err := fileVersion(name); err == nil && v > latest {
			latest = v
		}
	}
	return latest, nil
}
