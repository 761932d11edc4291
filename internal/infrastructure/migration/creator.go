package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
)

var fileTemplate = template.Must(template.New("migration").Parse(
	`-- Migration: {{.Name}}{{if .Down}} (Rollback){{end}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

-- Write your {{if .Down}}DOWN{{else}}UP{{end}} migration SQL here

`))

// versionWidth matches the zero-padded numbering of the shipped migrations
const versionWidth = 6

// MigrationFile is a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// MigrationInfo describes one versioned migration
type MigrationInfo struct {
	Version uint
	Name    string
	HasDown bool
}

// String returns the file stem, e.g. 000006_create_purchases
func (m MigrationInfo) String() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, m.Version, m.Name)
}

// CreateMigration writes the next sequentially numbered up/down pair to dir
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	stem := sanitizeName(name)
	if stem == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	next := uint(1)
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(dir, version+"_"+stem+".up.sql"),
		DownPath:    filepath.Join(dir, version+"_"+stem+".down.sql"),
	}

	if err := mf.write(mf.UpPath, false); err != nil {
		return nil, err
	}
	if err := mf.write(mf.DownPath, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func (mf *MigrationFile) write(path string, down bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	data := struct {
		*MigrationFile
		Down bool
	}{mf, down}
	if err := fileTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowercases name and collapses separators to single underscores.
// Any other character is dropped.
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the migrations in fsys ordered by version. File
// names are parsed the way golang-migrate does. A missing directory yields
// an empty list.
func ListMigrations(fsys fs.FS) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []MigrationInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*MigrationInfo)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parsed, err := source.Parse(entry.Name())
		if err != nil {
			continue
		}

		info, ok := byVersion[parsed.Version]
		if !ok {
			info = &MigrationInfo{Version: parsed.Version, Name: parsed.Identifier}
			byVersion[parsed.Version] = info
		}
		if parsed.Direction == source.Down {
			info.HasDown = true
		}
	}

	out := make([]MigrationInfo, 0, len(byVersion))
	for _, info := range byVersion {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
