package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// CheckoutInput contains the parameters for a checkout.
type CheckoutInput struct {
	Identity      domain.WorkspaceIdentity
	Build         domain.BuildInfo
	StrategyToken string // Raw checkout strategy token, may be empty
	ServerURL     string // Recorded in the node's workspace configuration
	UseUpdate     bool
	Overwrite     bool
}

// CheckoutOutput contains the result of a checkout.
type CheckoutOutput struct {
	VersionSpec domain.VersionSpec
	Reconcile   *ReconcileWorkspaceOutput
	Query       *domain.HistoryQuery // nil when history was not queried
	ChangeSets  []domain.ChangeSet
	Strategy    domain.StrategyKind
	State       domain.CheckoutState
}

// Checkout is the use case that reconciles the build workspace, fetches
// files and collects the changes since the previous build.
type Checkout struct {
	registry   domain.WorkspaceRegistry
	server     domain.Server
	reconciler *ReconcileWorkspace
	configs    domain.WorkspaceConfigRepository
	reporter   domain.Reporter
	clock      domain.Clock
}

// NewCheckout creates a new Checkout use case.
// configs may be nil, which disables cross-build drift detection.
func NewCheckout(
	registry domain.WorkspaceRegistry,
	server domain.Server,
	folders domain.LocalFolders,
	configs domain.WorkspaceConfigRepository,
	reporter domain.Reporter,
	clock domain.Clock,
) *Checkout {
	if reporter == nil {
		reporter = domain.NopReporter{}
	}
	return &Checkout{
		registry:   registry,
		server:     server,
		reconciler: NewReconcileWorkspace(registry, folders, reporter),
		configs:    configs,
		reporter:   reporter,
		clock:      clock,
	}
}

// Execute runs the checkout. The returned output carries the last state
// reached even when an error is returned.
func (uc *Checkout) Execute(ctx context.Context, in CheckoutInput) (*CheckoutOutput, error) {
	out := &CheckoutOutput{State: domain.StateStart}

	// 1. Resolve the version before touching the server
	strategy, err := domain.ParseCheckoutStrategy(in.StrategyToken)
	if err != nil {
		return out, err
	}
	if err := in.Identity.Validate(); err != nil {
		return out, err
	}
	spec, err := strategy.VersionSpec(in.Build.StartTime)
	if err != nil {
		return out, err
	}
	out.Strategy = strategy.Kind()
	out.VersionSpec = spec
	out.State = domain.StateIdentityResolved
	uc.reporter.Info("checkout", fmt.Sprintf("Checking out %s at %s", in.Identity.ServerPath, spec))

	// 2. Repair drift against the node's previous configuration, then the server
	dropped, err := uc.dropChangedConfiguration(ctx, in)
	if err != nil {
		return out, err
	}
	reconciled, err := uc.reconciler.Execute(ctx, ReconcileWorkspaceInput{
		Identity:  in.Identity,
		UseUpdate: in.UseUpdate,
		Recreate:  dropped,
	})
	if err != nil {
		return out, err
	}
	out.Reconcile = reconciled
	out.State = domain.StateReconciled

	// 3. Fetch
	if err := uc.server.Materialize(ctx, in.Identity.LocalFolder, spec.String(), in.Overwrite); err != nil {
		return out, fmt.Errorf("get %s at %s: %w", in.Identity.ServerPath, spec, err)
	}
	out.State = domain.StateFetched

	// 4. History
	query, ok := historyQuery(in, spec)
	if ok {
		changes, err := uc.server.History(ctx, query)
		if err != nil {
			return out, fmt.Errorf("query history %s: %w", query.VersionRange(), err)
		}
		out.Query = &query
		out.ChangeSets = changes
		out.State = domain.StateHistoryResolved
		uc.reporter.Info("history", fmt.Sprintf("%d changeset(s) in %s", len(changes), query.VersionRange()))
	} else {
		uc.reporter.Debug("history", "No previous build, skipping history")
	}

	// 5. Remember what this node now has
	if uc.configs != nil && in.Build.Node != "" {
		cfg := domain.NewWorkspaceConfiguration(in.Build.Node, in.ServerURL, in.Identity, uc.now())
		if err := uc.configs.Save(cfg); err != nil {
			return out, fmt.Errorf("save workspace configuration: %w", err)
		}
	}

	out.State = domain.StateDone
	return out, nil
}

// historyQuery builds the history query for the strategy. The timestamp
// strategy only has a window once a previous build exists; a label is
// always queried on its own.
func historyQuery(in CheckoutInput, spec domain.VersionSpec) (domain.HistoryQuery, bool) {
	q := domain.HistoryQuery{
		ServerPath: in.Identity.ServerPath,
		To:         spec,
		Excluded:   in.Identity.ExcludedPaths(),
	}
	switch spec.(type) {
	case domain.LabelSpec:
		return q, true
	case domain.TimestampSpec:
		if in.Build.PreviousStartTime == nil {
			return q, false
		}
		q.From = domain.NewTimestampSpec(*in.Build.PreviousStartTime)
		return q, true
	default:
		return q, false
	}
}

// dropChangedConfiguration deletes the workspace recorded for this node when
// the workspace layout changed since the node's last checkout. It reports
// whether the recorded workspace was dropped. A corrupted state file counts
// as no record; the save after the checkout replaces it.
func (uc *Checkout) dropChangedConfiguration(ctx context.Context, in CheckoutInput) (bool, error) {
	if uc.configs == nil || in.Build.Node == "" {
		return false, nil
	}
	previous, err := uc.configs.Get(in.Build.Node)
	if err != nil {
		if errors.Is(err, domain.ErrStateFileCorrupted) {
			uc.reporter.Warn("workspace", fmt.Sprintf("Ignoring workspace state of node %s: %v", in.Build.Node, err))
			return false, nil
		}
		return false, fmt.Errorf("load workspace configuration: %w", err)
	}
	if previous == nil || !previous.WorkspaceExists {
		return false, nil
	}

	current := domain.NewWorkspaceConfiguration(in.Build.Node, in.ServerURL, in.Identity, uc.now())
	if previous.Fingerprint() == current.Fingerprint() {
		return false, nil
	}

	// The registry talks to the current server; a workspace recorded on
	// another server is left alone there.
	if !sameServerURL(previous.ServerURL, in.ServerURL) {
		uc.reporter.Warn("workspace", fmt.Sprintf("Forgetting workspace %s of %s: server changed to %s",
			previous.WorkspaceName, previous.ServerURL, in.ServerURL))
	} else {
		uc.reporter.Warn("workspace", fmt.Sprintf("Deleting workspace %s: %s (old %s at %s, new %s at %s)",
			previous.WorkspaceName, domain.DriftConfigurationChanged,
			previous.ProjectPath, previous.LocalFolder, in.Identity.ServerPath, in.Identity.LocalFolder))

		ref, ok, err := uc.registry.Lookup(ctx, previous.WorkspaceName)
		if err != nil {
			return false, err
		}
		if ok {
			if err := uc.registry.Delete(ctx, ref); err != nil {
				return false, err
			}
		}
	}
	if err := uc.configs.MarkRemoved(in.Build.Node); err != nil {
		return false, fmt.Errorf("mark workspace removed: %w", err)
	}
	return true, nil
}

// sameServerURL compares collection URLs ignoring case and a trailing slash.
func sameServerURL(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

func (uc *Checkout) now() time.Time {
	if uc.clock == nil {
		return time.Now()
	}
	return uc.clock.Now()
}
