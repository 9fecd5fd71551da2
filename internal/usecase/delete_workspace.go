package usecase

import (
	"context"
	"fmt"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// DeleteWorkspaceInput contains the parameters for deleting a workspace.
type DeleteWorkspaceInput struct {
	Name string
	Node string // Node whose recorded configuration is marked removed, optional
}

// DeleteWorkspaceOutput contains the deleted workspace.
type DeleteWorkspaceOutput struct {
	Ref domain.WorkspaceRef
}

// DeleteWorkspace is the use case for deleting a workspace by name.
type DeleteWorkspace struct {
	registry domain.WorkspaceRegistry
	configs  domain.WorkspaceConfigRepository
	reporter domain.Reporter
}

// NewDeleteWorkspace creates a new DeleteWorkspace use case.
// configs may be nil.
func NewDeleteWorkspace(registry domain.WorkspaceRegistry, configs domain.WorkspaceConfigRepository, reporter domain.Reporter) *DeleteWorkspace {
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	return &DeleteWorkspace{
		registry: registry,
		configs:  configs,
		reporter: reporter,
	}
}

// Execute deletes the workspace. An unknown name is ErrWorkspaceNotFound.
func (uc *DeleteWorkspace) Execute(ctx context.Context, in DeleteWorkspaceInput) (*DeleteWorkspaceOutput, error) {
	ref, ok, err := uc.registry.Lookup(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkspaceNotFound, in.Name)
	}

	uc.reporter.Info("workspace", "Deleting workspace "+ref.Name)
	if err := uc.registry.Delete(ctx, ref); err != nil {
		return nil, err
	}

	if uc.configs != nil && in.Node != "" {
		if err := uc.configs.MarkRemoved(in.Node); err != nil {
			return nil, fmt.Errorf("mark workspace removed: %w", err)
		}
	}
	return &DeleteWorkspaceOutput{Ref: ref}, nil
}
