// Package gitserver implements the version-control server port on top of a
// Git repository.
//
// Server paths map onto repository paths: "$/Project/src" is the "Project/src"
// directory of the tree. Timestamps resolve to the newest commit at or before
// the time, labels to tags. Workspaces live in the repository itself:
//
//	refs/tfs/workspaces/
//	  <computer>/
//	    <name>  → blob (workspace YAML)
package gitserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/spf13/afero"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Server implements domain.Server.
var _ domain.Server = (*Server)(nil)

// Server serves workspaces and history from a Git repository.
// Fields are ordered to minimize memory padding.
type Server struct {
	repo     *git.Repository
	fs       afero.Fs // Local filesystem files are materialized into
	now      func() time.Time
	computer string
	owner    string
	mu       sync.RWMutex
}

// Open opens the repository at path.
func Open(path, computer, owner string) (*Server, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return NewWithRepo(repo, computer, owner), nil
}

// NewWithRepo creates a Server on an existing repository instance.
func NewWithRepo(repo *git.Repository, computer, owner string) *Server {
	return &Server{
		repo:     repo,
		fs:       afero.NewOsFs(),
		now:      time.Now,
		computer: computer,
		owner:    owner,
	}
}

// WithFs sets the filesystem files are materialized into.
func (s *Server) WithFs(fs afero.Fs) *Server {
	s.fs = fs
	return s
}

// WorkspaceExists reports whether the workspace is recorded for the computer.
func (s *Server) WorkspaceExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.loadRecord(name)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// ListWorkspaces returns the workspaces recorded for the computer.
func (s *Server) ListWorkspaces(_ context.Context) ([]domain.WorkspaceRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.listRecords()
	if err != nil {
		return nil, err
	}
	refs := make([]domain.WorkspaceRef, 0, len(records))
	for _, rec := range records {
		refs = append(refs, rec.ref())
	}
	return refs, nil
}

// MappingOwnerOf returns the workspace mapping localPath or a parent of it.
func (s *Server) MappingOwnerOf(_ context.Context, localPath string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.ownerOf(localPath)
	if err != nil || rec == nil {
		return "", false, err
	}
	return rec.Name, true, nil
}

func (s *Server) ownerOf(localPath string) (*workspaceRecord, error) {
	records, err := s.listRecords()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.maps(localPath) {
			return rec, nil
		}
	}
	return nil, nil
}

// CreateWorkspace records a new workspace. It fails when the name is taken
// or another workspace already maps one of its local folders.
func (s *Server) CreateWorkspace(_ context.Context, opts domain.CreateWorkspaceOptions) (*domain.WorkspaceRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadRecord(opts.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkspaceExists, opts.Name)
	}

	rec := &workspaceRecord{
		CreatedAt:    s.now().UTC().Truncate(time.Second),
		Name:         opts.Name,
		Computer:     s.computer,
		Owner:        s.owner,
		Comment:      "Created by tfs-checkout",
		ServerPath:   domain.NormalizeServerPath(opts.ServerPath),
		LocalPath:    filepath.Clean(opts.LocalPath),
		CloakedPaths: opts.CloakedPaths,
		MappedPaths:  opts.MappedPaths,
	}
	for _, folder := range rec.localFolders() {
		owner, ownerErr := s.ownerOf(folder)
		if ownerErr != nil {
			return nil, ownerErr
		}
		if owner != nil {
			return nil, fmt.Errorf("%w: %s is mapped by %s", domain.ErrMappingInUse, folder, owner.Name)
		}
	}

	if err := s.saveRecord(rec); err != nil {
		return nil, err
	}
	ref := rec.ref()
	return &ref, nil
}

// DeleteWorkspace removes the workspace record. Local files are kept.
func (s *Server) DeleteWorkspace(_ context.Context, ref domain.WorkspaceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Storer.RemoveReference(s.workspaceRef(ref.Name)); err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("remove workspace ref: %w", err)
		}
	}
	return nil
}

// resolve returns the commit a version spec denotes.
func (s *Server) resolve(spec domain.VersionSpec) (*object.Commit, error) {
	switch v := spec.(type) {
	case domain.TimestampSpec:
		return s.commitAt(v.Time)
	case domain.LabelSpec:
		return s.taggedCommit(v.Name)
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVersionSpec, spec)
	}
}

// commitAt returns the newest commit reachable from HEAD committed at or
// before t.
func (s *Server) commitAt(t time.Time) (*object.Commit, error) {
	head, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoVersionAtTime, t.Format(time.RFC3339))
		}
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	iter, err := s.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var found *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if !c.Committer.When.After(t) {
			found = c
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoVersionAtTime, t.Format(time.RFC3339))
	}
	return found, nil
}

// taggedCommit returns the commit a tag points at. Tag names compare
// case-insensitively.
func (s *Server) taggedCommit(label string) (*object.Commit, error) {
	tags, err := s.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer tags.Close()

	var tag *plumbing.Reference
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if strings.EqualFold(ref.Name().Short(), label) {
			tag = ref
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tag == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLabelNotFound, label)
	}

	// Annotated tags point at a tag object, lightweight ones at the commit.
	if obj, tagErr := s.repo.TagObject(tag.Hash()); tagErr == nil {
		return obj.Commit()
	}
	return s.repo.CommitObject(tag.Hash())
}

// repoPath converts a server path into a slash-separated repository path.
// The root "$/" is the empty path.
func repoPath(serverPath string) (string, bool) {
	return domain.RelativeServerPath(serverPath, domain.ServerPathRoot)
}

// serverPath converts a repository path into a server path.
func serverPath(p string) string {
	return domain.ServerPathRoot + p
}
