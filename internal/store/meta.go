package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Meta is the per-store metadata record kept in the owner's directory,
// beside (not inside) the version structures. It carries the branch
// display-name map for the branching strategy so raw slugs never reach
// users.
type Meta struct {
	ID            string            `toml:"id"`
	CreatedAt     time.Time         `toml:"created_at"`
	SchemaVersion int               `toml:"schema_version"`
	Branches      map[string]string `toml:"branches,omitempty"` // slug -> display name
}

const (
	metaFile          = "store.toml"
	metaSchemaVersion = 1
)

func readMeta(dir string) (*Meta, error) {
	var m Meta
	if _, err := toml.DecodeFile(filepath.Join(dir, metaFile), &m); err != nil {
		return nil, fmt.Errorf("reading store metadata: %w", err)
	}
	return &m, nil
}

// writeMeta replaces the metadata record atomically: the new content is
// written to a temp file in the same directory and renamed over the old
// one, so branch operations never leave a half-written map behind.
func writeMeta(dir string, m *Meta) error {
	tmp, err := os.CreateTemp(dir, metaFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(m); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding store metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp metadata file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, metaFile)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing store metadata: %w", err)
	}
	return nil
}

// slugify derives a branch slug from a display name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "branch"
	}
	return slug
}

// uniqueSlug returns a slug for name not already present in taken.
func uniqueSlug(name string, taken map[string]string) string {
	base := slugify(name)
	slug := base
	for i := 2; ; i++ {
		if _, ok := taken[slug]; !ok {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
