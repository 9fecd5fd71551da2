// Package registry provides the client-side cache of server workspace state.
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Registry implements domain.WorkspaceRegistry.
var _ domain.WorkspaceRegistry = (*Registry)(nil)

// Registry caches workspace existence and local path mappings for one
// server connection. Answers are fetched lazily and kept until the
// registry itself creates or deletes a workspace; nothing is refreshed
// from the server afterwards.
//
// A Registry must not be shared between concurrently running checkouts.
type Registry struct {
	server   domain.Server
	known    map[string]domain.WorkspaceRef // lower-case name -> ref of existing workspaces
	absent   map[string]bool                // lower-case name -> known not to exist
	mappings map[string]string              // clean local path -> owner name ("" = unmapped)
	listed   bool
}

// New creates an empty registry in front of server.
func New(server domain.Server) *Registry {
	return &Registry{
		server:   server,
		known:    make(map[string]domain.WorkspaceRef),
		absent:   make(map[string]bool),
		mappings: make(map[string]string),
	}
}

// Exists reports whether a workspace with the name exists.
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.Lookup(ctx, name)
	return ok, err
}

// Lookup returns the ref of an existing workspace.
func (r *Registry) Lookup(ctx context.Context, name string) (domain.WorkspaceRef, bool, error) {
	key := strings.ToLower(name)
	if ref, ok := r.known[key]; ok {
		return ref, true, nil
	}
	if r.absent[key] || r.listed {
		return domain.WorkspaceRef{}, false, nil
	}

	exists, err := r.server.WorkspaceExists(ctx, name)
	if err != nil {
		return domain.WorkspaceRef{}, false, fmt.Errorf("check workspace %s: %w", name, err)
	}
	if !exists {
		r.absent[key] = true
		return domain.WorkspaceRef{}, false, nil
	}
	ref := domain.WorkspaceRef{Name: name}
	r.known[key] = ref
	return ref, true, nil
}

// List returns every workspace, loading the full list once.
// Refs are sorted by name.
func (r *Registry) List(ctx context.Context) ([]domain.WorkspaceRef, error) {
	if !r.listed {
		refs, err := r.server.ListWorkspaces(ctx)
		if err != nil {
			return nil, fmt.Errorf("list workspaces: %w", err)
		}
		r.known = make(map[string]domain.WorkspaceRef, len(refs))
		r.absent = make(map[string]bool)
		for _, ref := range refs {
			r.known[strings.ToLower(ref.Name)] = ref
		}
		r.listed = true
	}

	out := make([]domain.WorkspaceRef, 0, len(r.known))
	for _, ref := range r.known {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// MappingOwnerOf returns the workspace mapped to localPath.
func (r *Registry) MappingOwnerOf(ctx context.Context, localPath string) (string, bool, error) {
	key := pathKey(localPath)
	if owner, ok := r.mappings[key]; ok {
		return owner, owner != "", nil
	}

	owner, ok, err := r.server.MappingOwnerOf(ctx, localPath)
	if err != nil {
		return "", false, fmt.Errorf("look up mapping of %s: %w", localPath, err)
	}
	if !ok {
		owner = ""
	}
	r.mappings[key] = owner
	return owner, ok, nil
}

// Create creates a workspace on the server and records it along with the
// local paths it maps.
func (r *Registry) Create(ctx context.Context, opts domain.CreateWorkspaceOptions) (*domain.WorkspaceRef, error) {
	ref, err := r.server.CreateWorkspace(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", opts.Name, err)
	}

	key := strings.ToLower(ref.Name)
	r.known[key] = *ref
	delete(r.absent, key)

	r.mappings[pathKey(opts.LocalPath)] = ref.Name
	for _, m := range opts.MappedPaths {
		if !m.Excluded() {
			r.mappings[pathKey(m.LocalPath)] = ref.Name
		}
	}
	return ref, nil
}

// Delete deletes a workspace on the server and forgets it and every
// mapping it owned.
func (r *Registry) Delete(ctx context.Context, ref domain.WorkspaceRef) error {
	if err := r.server.DeleteWorkspace(ctx, ref); err != nil {
		return fmt.Errorf("delete workspace %s: %w", ref.Name, err)
	}

	key := strings.ToLower(ref.Name)
	delete(r.known, key)
	r.absent[key] = true

	for path, owner := range r.mappings {
		if domain.SameWorkspaceName(owner, ref.Name) {
			r.mappings[path] = ""
		}
	}
	return nil
}

func pathKey(p string) string {
	return filepath.Clean(p)
}
