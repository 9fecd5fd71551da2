package domain

import (
	"context"
	"io"
	"time"
)

// Server is the remote version-control server as seen by the checkout
// engine. Every call blocks until the server answers.
type Server interface {
	// WorkspaceExists reports whether a workspace with the name exists
	// for this computer.
	WorkspaceExists(ctx context.Context, name string) (bool, error)

	// ListWorkspaces returns every workspace known for this computer.
	ListWorkspaces(ctx context.Context) ([]WorkspaceRef, error)

	// MappingOwnerOf returns the name of the workspace that maps localPath.
	// ok is false when no workspace claims the path.
	MappingOwnerOf(ctx context.Context, localPath string) (name string, ok bool, err error)

	// CreateWorkspace creates a workspace and its working folder mappings.
	CreateWorkspace(ctx context.Context, opts CreateWorkspaceOptions) (*WorkspaceRef, error)

	// DeleteWorkspace deletes a workspace. Deleting an absent workspace
	// is not an error.
	DeleteWorkspace(ctx context.Context, ref WorkspaceRef) error

	// Materialize fetches files into the workspace mapped at localFolder.
	Materialize(ctx context.Context, localFolder, versionSpec string, overwrite bool) error

	// History returns the changesets selected by the query, in the order
	// the server reports them.
	History(ctx context.Context, q HistoryQuery) ([]ChangeSet, error)
}

// HistoryQuery selects changesets below ServerPath.
// From is nil for a single-anchor query.
type HistoryQuery struct {
	From       VersionSpec
	To         VersionSpec
	ServerPath string
	Excluded   []string
}

// VersionRange returns the version argument for the query: the single
// anchor, or the legacy "<from>~<to>" window.
func (q HistoryQuery) VersionRange() string {
	if q.From == nil {
		return q.To.String()
	}
	return RangeSpec(q.From, q.To)
}

// WorkspaceRegistry is a client-side cache of the server's workspace state
// for one server connection.
//
// Lookups are answered from the cache once populated. Create and Delete
// are the only operations that change cached state: callers must route
// every workspace mutation through the registry, and must not share one
// registry between concurrently running checkouts.
type WorkspaceRegistry interface {
	// Exists reports whether a workspace with the name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Lookup returns the cached ref for a workspace name.
	Lookup(ctx context.Context, name string) (WorkspaceRef, bool, error)

	// List returns every known workspace.
	List(ctx context.Context) ([]WorkspaceRef, error)

	// MappingOwnerOf returns the workspace name mapped to localPath.
	MappingOwnerOf(ctx context.Context, localPath string) (string, bool, error)

	// Create creates a workspace and records it and its mapping.
	Create(ctx context.Context, opts CreateWorkspaceOptions) (*WorkspaceRef, error)

	// Delete deletes a workspace and forgets it and its mappings.
	Delete(ctx context.Context, ref WorkspaceRef) error
}

// LocalFolders inspects and clears local workspace folders.
type LocalFolders interface {
	// Exists reports whether path exists and is a directory.
	Exists(path string) (bool, error)

	// Clear removes everything inside path but keeps path itself.
	Clear(path string) error
}

// Reporter receives user-visible progress and warnings of a checkout.
type Reporter interface {
	Debug(category, msg string)
	Info(category, msg string)
	Warn(category, msg string)
	Error(category, msg string)
}

// NopReporter discards everything.
type NopReporter struct{}

// Debug discards the message.
func (NopReporter) Debug(string, string) {}

// Info discards the message.
func (NopReporter) Info(string, string) {}

// Warn discards the message.
func (NopReporter) Warn(string, string) {}

// Error discards the message.
func (NopReporter) Error(string, string) {}

// WorkspaceConfigRepository persists the last applied workspace
// configuration per node.
type WorkspaceConfigRepository interface {
	// Get returns the configuration recorded for node, or nil.
	Get(node string) (*WorkspaceConfiguration, error)

	// Save records cfg for cfg.Node, replacing any previous record.
	Save(cfg WorkspaceConfiguration) error

	// MarkRemoved records that the node's workspace no longer exists.
	MarkRemoved(node string) error
}

// BuildInfo is what the build host knows about the running build.
type BuildInfo struct {
	PreviousStartTime *time.Time // nil for the first build
	StartTime         time.Time
	Node              string
	JobName           string
	Number            int
}

// CommandExecutor runs external commands.
type CommandExecutor interface {
	// Execute runs the command and returns its combined output.
	Execute(ctx context.Context, cmd *ExecCommand) ([]byte, error)

	// ExecuteWithContext runs a command streaming output to the writers.
	ExecuteWithContext(ctx context.Context, cmd *ExecCommand, stdout, stderr io.Writer) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (repo + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
