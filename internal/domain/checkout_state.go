package domain

// CheckoutState is the progress of one checkout invocation.
type CheckoutState int

// Checkout states in the order they are reached. History resolution may be
// skipped, in which case a checkout goes from StateFetched to StateDone.
const (
	StateStart CheckoutState = iota
	StateIdentityResolved
	StateReconciled
	StateFetched
	StateHistoryResolved
	StateDone
)

// String returns a human-readable name of the state.
func (s CheckoutState) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateIdentityResolved:
		return "identity-resolved"
	case StateReconciled:
		return "reconciled"
	case StateFetched:
		return "fetched"
	case StateHistoryResolved:
		return "history-resolved"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// DriftReason explains why a workspace was scheduled for deletion.
type DriftReason int

const (
	// DriftFreshCheckout: update mode is off, prior state is discarded.
	DriftFreshCheckout DriftReason = iota
	// DriftMissingMapping: the workspace exists but does not map the local folder.
	DriftMissingMapping
	// DriftDualMapping: the local folder is mapped by another workspace.
	DriftDualMapping
	// DriftMissingFolder: the workspace exists but the local folder is gone.
	DriftMissingFolder
	// DriftRenamed: the local folder is mapped by a workspace with an old name.
	DriftRenamed
	// DriftConfigurationChanged: the node's last applied configuration differs.
	DriftConfigurationChanged
)

// String describes the drift reason.
func (r DriftReason) String() string {
	switch r {
	case DriftFreshCheckout:
		return "fresh checkout requested"
	case DriftMissingMapping:
		return "workspace does not map the local folder"
	case DriftDualMapping:
		return "local folder is mapped by another workspace"
	case DriftMissingFolder:
		return "local folder is missing"
	case DriftRenamed:
		return "local folder is mapped by a renamed workspace"
	case DriftConfigurationChanged:
		return "workspace configuration changed since the last build on this node"
	default:
		return "unknown"
	}
}
