package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// ListWorkspacesInput contains the parameters for listing workspaces.
type ListWorkspacesInput struct {
	Prefix string // Only names starting with Prefix, case-insensitive
}

// ListWorkspacesOutput contains the workspaces found.
type ListWorkspacesOutput struct {
	Workspaces []domain.WorkspaceRef
}

// ListWorkspaces is the use case for listing the computer's workspaces.
type ListWorkspaces struct {
	registry domain.WorkspaceRegistry
}

// NewListWorkspaces creates a new ListWorkspaces use case.
func NewListWorkspaces(registry domain.WorkspaceRegistry) *ListWorkspaces {
	return &ListWorkspaces{registry: registry}
}

// Execute returns the workspaces sorted by name.
func (uc *ListWorkspaces) Execute(ctx context.Context, in ListWorkspacesInput) (*ListWorkspacesOutput, error) {
	refs, err := uc.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(in.Prefix)
	out := make([]domain.WorkspaceRef, 0, len(refs))
	for _, ref := range refs {
		if strings.HasPrefix(strings.ToLower(ref.Name), prefix) {
			out = append(out, ref)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return &ListWorkspacesOutput{Workspaces: out}, nil
}
