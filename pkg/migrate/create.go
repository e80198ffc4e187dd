package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: journal schema change
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: revert
-- +goose StatementEnd
`

// migrationSlug lowercases name and collapses everything outside [a-z0-9]
// to single underscores.
func migrationSlug(name string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes a goose skeleton at <dir>/<version>_<slug>.sql.
// The version is now in UTC; it is bumped by a second while another file
// already owns it. A slug that already exists under any version is an error.
func CreateSQLMigration(dir string, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir %q: %w", dir, err)
	}
	versions := map[string]bool{}
	for _, e := range entries {
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if strings.TrimSuffix(e.Name()[len(m[1])+1:], ".sql") == slug {
			return "", fmt.Errorf("migration %q already exists as %s", slug, e.Name())
		}
		versions[m[1]] = true
	}

	at := now.UTC()
	for versions[at.Format(versionLayout)] {
		at = at.Add(time.Second)
	}

	fullpath := filepath.Join(dir, at.Format(versionLayout)+"_"+slug+".sql")
	if err := os.WriteFile(fullpath, fmt.Appendf(nil, migrationTemplate, slug), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}
