// Package localfs inspects and clears the local folders of workspaces.
package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Folders implements domain.LocalFolders.
var _ domain.LocalFolders = (*Folders)(nil)

// Folders implements domain.LocalFolders on an afero filesystem.
type Folders struct {
	fs   afero.Fs
	keep []string // Cleaned paths Clear never removes
}

// New creates Folders backed by the OS filesystem.
func New() *Folders {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates Folders on fs.
func NewWithFs(fs afero.Fs) *Folders {
	return &Folders{fs: fs}
}

// WithKeep protects paths from Clear. Directories leading to a kept path
// are entered instead of removed.
func (f *Folders) WithKeep(paths ...string) *Folders {
	for _, p := range paths {
		if p != "" {
			f.keep = append(f.keep, filepath.Clean(p))
		}
	}
	return f
}

// Exists reports whether path is an existing directory.
func (f *Folders) Exists(path string) (bool, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Clear removes everything inside path and keeps path itself, along with
// any kept path below it. A missing folder is not an error.
func (f *Folders) Clear(path string) error {
	entries, err := afero.ReadDir(f.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		switch {
		case f.kept(child):
			continue
		case e.IsDir() && f.leadsToKept(child):
			if err := f.Clear(child); err != nil {
				return err
			}
			continue
		}
		if err := f.fs.RemoveAll(child); err != nil {
			return fmt.Errorf("remove %s: %w", child, err)
		}
	}
	return nil
}

func (f *Folders) kept(path string) bool {
	for _, k := range f.keep {
		if k == path {
			return true
		}
	}
	return false
}

func (f *Folders) leadsToKept(dir string) bool {
	prefix := dir + string(filepath.Separator)
	for _, k := range f.keep {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
