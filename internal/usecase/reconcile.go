package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// ObservedState is what the reconciler saw before changing anything.
type ObservedState struct {
	MappingOwner      string // Workspace mapped to the local folder, "" if none
	WorkspaceExists   bool   // A workspace with the desired name exists
	LocalFolderExists bool
}

// PlannedDeletion is one workspace scheduled for deletion.
type PlannedDeletion struct {
	Name   string
	Reason domain.DriftReason
}

// DeletionPlan lists the workspaces to delete, each at most once, in the
// order they were scheduled.
type DeletionPlan struct {
	Deletions []PlannedDeletion
}

// Names returns the scheduled workspace names.
func (p DeletionPlan) Names() []string {
	names := make([]string, 0, len(p.Deletions))
	for _, d := range p.Deletions {
		names = append(names, d.Name)
	}
	return names
}

// Empty reports whether nothing is scheduled.
func (p DeletionPlan) Empty() bool {
	return len(p.Deletions) == 0
}

func (p *DeletionPlan) schedule(name string, reason domain.DriftReason) {
	for _, d := range p.Deletions {
		if domain.SameWorkspaceName(d.Name, name) {
			return
		}
	}
	p.Deletions = append(p.Deletions, PlannedDeletion{Name: name, Reason: reason})
}

// ComputeDeletionPlan decides which workspaces must go so that exactly one
// workspace named desired.Name, mapped to desired.LocalFolder, can exist.
// It performs no I/O.
func ComputeDeletionPlan(desired domain.WorkspaceIdentity, useUpdate bool, observed ObservedState) DeletionPlan {
	var plan DeletionPlan
	owner := observed.MappingOwner

	if !observed.WorkspaceExists {
		if owner != "" && !domain.SameWorkspaceName(owner, desired.Name) {
			plan.schedule(owner, domain.DriftRenamed)
		}
		return plan
	}

	if !useUpdate {
		plan.schedule(desired.Name, domain.DriftFreshCheckout)
	}
	switch {
	case owner == "":
		plan.schedule(desired.Name, domain.DriftMissingMapping)
	case !domain.SameWorkspaceName(owner, desired.Name):
		plan.schedule(desired.Name, domain.DriftDualMapping)
		plan.schedule(owner, domain.DriftDualMapping)
	}
	if !observed.LocalFolderExists {
		plan.schedule(desired.Name, domain.DriftMissingFolder)
	}
	return plan
}

// ReconcileWorkspaceInput contains the parameters for reconciling a workspace.
type ReconcileWorkspaceInput struct {
	Identity  domain.WorkspaceIdentity
	UseUpdate bool
	Recreate  bool // The node's previous workspace was dropped before reconciling
}

// ReconcileWorkspaceOutput contains the result of reconciling a workspace.
type ReconcileWorkspaceOutput struct {
	Ref           domain.WorkspaceRef
	Plan          DeletionPlan
	Observed      ObservedState
	Created       bool // A new workspace was created
	FolderCleared bool // The local folder contents were removed before creation
}

// ReconcileWorkspace is the use case that makes the server's workspace
// state match a workspace identity.
type ReconcileWorkspace struct {
	registry domain.WorkspaceRegistry
	folders  domain.LocalFolders
	reporter domain.Reporter
}

// NewReconcileWorkspace creates a new ReconcileWorkspace use case.
// A nil reporter discards messages.
func NewReconcileWorkspace(registry domain.WorkspaceRegistry, folders domain.LocalFolders, reporter domain.Reporter) *ReconcileWorkspace {
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	return &ReconcileWorkspace{
		registry: registry,
		folders:  folders,
		reporter: reporter,
	}
}

// Execute reconciles the workspace. Drift is repaired and reported as a
// warning; any server or filesystem failure aborts and is returned as is,
// without retry or rollback.
func (uc *ReconcileWorkspace) Execute(ctx context.Context, in ReconcileWorkspaceInput) (*ReconcileWorkspaceOutput, error) {
	id := in.Identity

	// 1. Observe
	observed, err := uc.observe(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Plan
	plan := ComputeDeletionPlan(id, in.UseUpdate, observed)
	uc.reportPlan(id, plan)

	// 3. Delete each scheduled workspace once
	for _, d := range plan.Deletions {
		ref, ok, lookupErr := uc.registry.Lookup(ctx, d.Name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if !ok {
			ref = domain.WorkspaceRef{Name: d.Name}
		}
		if err := uc.registry.Delete(ctx, ref); err != nil {
			return nil, err
		}
		uc.reporter.Info("workspace", fmt.Sprintf("Deleted workspace %s", d.Name))
	}

	out := &ReconcileWorkspaceOutput{Plan: plan, Observed: observed}

	// 4. Reuse or create
	ref, exists, err := uc.registry.Lookup(ctx, id.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		uc.reporter.Debug("workspace", fmt.Sprintf("Reusing workspace %s", id.Name))
		out.Ref = ref
		return out, nil
	}

	if (!in.UseUpdate || in.Recreate || !plan.Empty()) && observed.LocalFolderExists {
		uc.reporter.Info("workspace", fmt.Sprintf("Clearing local folder %s", id.LocalFolder))
		if err := uc.folders.Clear(id.LocalFolder); err != nil {
			return nil, fmt.Errorf("clear local folder %s: %w", id.LocalFolder, err)
		}
		out.FolderCleared = true
	}

	created, err := uc.registry.Create(ctx, id.CreateOptions())
	if err != nil {
		return nil, err
	}
	uc.reporter.Info("workspace", fmt.Sprintf("Created workspace %s mapping %s to %s", id.Name, id.ServerPath, id.LocalFolder))
	out.Ref = *created
	out.Created = true
	return out, nil
}

func (uc *ReconcileWorkspace) observe(ctx context.Context, id domain.WorkspaceIdentity) (ObservedState, error) {
	var observed ObservedState

	owner, _, err := uc.registry.MappingOwnerOf(ctx, id.LocalFolder)
	if err != nil {
		return observed, err
	}
	observed.MappingOwner = owner

	if observed.WorkspaceExists, err = uc.registry.Exists(ctx, id.Name); err != nil {
		return observed, err
	}

	if observed.LocalFolderExists, err = uc.folders.Exists(id.LocalFolder); err != nil {
		return observed, fmt.Errorf("check local folder %s: %w", id.LocalFolder, err)
	}
	return observed, nil
}

func (uc *ReconcileWorkspace) reportPlan(id domain.WorkspaceIdentity, plan DeletionPlan) {
	dual := make([]string, 0, 2)
	for _, d := range plan.Deletions {
		switch d.Reason {
		case domain.DriftFreshCheckout:
			uc.reporter.Info("workspace", fmt.Sprintf("Deleting workspace %s: %s", d.Name, d.Reason))
		case domain.DriftDualMapping:
			dual = append(dual, d.Name)
		default:
			uc.reporter.Warn("workspace", fmt.Sprintf("Deleting workspace %s: %s (%s)", d.Name, d.Reason, id.LocalFolder))
		}
	}
	if len(dual) > 0 {
		uc.reporter.Warn("workspace", fmt.Sprintf("Local folder %s is mapped by workspace %s while workspace %s exists; deleting %s",
			id.LocalFolder, dual[len(dual)-1], id.Name, strings.Join(dual, " and ")))
	}
}
