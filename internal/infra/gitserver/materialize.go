package gitserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Materialized files are read-only until edited locally.
const (
	pristineMode   os.FileMode = 0o444
	executableMode os.FileMode = 0o555
)

// folderMapping places one server path of a workspace on disk.
type folderMapping struct {
	serverPath string
	localPath  string
	cloaked    bool
}

// layout returns the workspace's folder mappings.
func (r *workspaceRecord) layout() []folderMapping {
	out := []folderMapping{{serverPath: r.ServerPath, localPath: r.LocalPath}}
	for _, m := range r.MappedPaths {
		out = append(out, folderMapping{serverPath: m.ServerPath, localPath: m.LocalPath, cloaked: m.Excluded()})
	}
	for _, p := range r.CloakedPaths {
		out = append(out, folderMapping{serverPath: p, cloaked: true})
	}
	return out
}

// place returns where item lands locally. The most specific mapping wins;
// cloaked and unmapped items have no place.
func place(layout []folderMapping, item string) (string, bool) {
	var best *folderMapping
	for i := range layout {
		m := &layout[i]
		if !domain.IsUnderServerPath(item, m.serverPath) {
			continue
		}
		if best == nil || len(domain.NormalizeServerPath(m.serverPath)) > len(domain.NormalizeServerPath(best.serverPath)) {
			best = m
		}
	}
	if best == nil || best.cloaked {
		return "", false
	}
	rel, _ := domain.RelativeServerPath(item, best.serverPath)
	return filepath.Join(best.localPath, filepath.FromSlash(rel)), true
}

// Materialize writes the files of the workspace mapped at localFolder as of
// versionSpec. Files edited locally are writable and are only replaced when
// overwrite is set.
// TODO: remove local files deleted on the server since the previous get.
func (s *Server) Materialize(ctx context.Context, localFolder, versionSpec string, overwrite bool) error {
	spec, err := domain.ParseVersionSpec(versionSpec)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.ownerOf(localFolder)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", domain.ErrNoMapping, localFolder)
	}
	commit, err := s.resolve(spec)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("get tree of %s: %w", commit.Hash, err)
	}

	layout := rec.layout()
	files := tree.Files()
	defer files.Close()
	return files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		local, ok := place(layout, serverPath(f.Name))
		if !ok || !isUnderLocal(local, localFolder) {
			return nil
		}
		return s.writeFile(local, f, overwrite)
	})
}

func (s *Server) writeFile(path string, f *object.File, overwrite bool) error {
	info, err := s.fs.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return fmt.Errorf("write %s: a directory is in the way", path)
		}
		if info.Mode().Perm()&0o200 != 0 && !overwrite {
			return nil
		}
		if err := s.fs.Remove(path); err != nil {
			return fmt.Errorf("replace %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	mode := pristineMode
	if f.Mode == filemode.Executable {
		mode = executableMode
	}
	reader, err := f.Reader()
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	defer func() { _ = reader.Close() }()

	out, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
