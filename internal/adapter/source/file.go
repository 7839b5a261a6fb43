// Package source loads per-cycle impact tables from a local archive or a
// remote HTTP mirror.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// ErrNotFound reports a cycle with no impact file.
var ErrNotFound = errors.New("impact file not found")

// CycleFormat names impact files: <center>/<YYYYMMDDHH>.txt.
const CycleFormat = "2006010215"

// CyclePath returns the path of a cycle's file relative to the archive root.
func CyclePath(center string, date time.Time) string {
	return center + "/" + date.UTC().Format(CycleFormat) + ".txt"
}

// FileLoader reads impact files from a directory tree.
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{root: dir}
}

// Load reads one center's cycle file.
func (l *FileLoader) Load(ctx context.Context, center string, date time.Time) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	path := filepath.Join(l.root, filepath.FromSlash(CyclePath(center, date)))
	t, err := domain.ReadASCIIFile(path, date)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Table{}, fmt.Errorf("%s %s: %w", center, date.UTC().Format(CycleFormat), ErrNotFound)
	}
	return t, err
}
