// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockWorkspace is a workspace held by MockServer.
type MockWorkspace struct {
	Ref       domain.WorkspaceRef
	LocalPath string // Empty means the workspace maps no local folder
	Options   domain.CreateWorkspaceOptions
}

// MaterializeCall records one Materialize invocation.
type MaterializeCall struct {
	LocalFolder string
	VersionSpec string
	Overwrite   bool
}

// MockServer is an in-memory test double for domain.Server.
// It counts every call so tests can assert on remote traffic.
// Fields are ordered to minimize memory padding.
type MockServer struct {
	Workspaces     map[string]*MockWorkspace // keyed by lower-case name
	HistoryResult  []domain.ChangeSet
	MaterializeLog []MaterializeCall
	HistoryLog     []domain.HistoryQuery
	CreateLog      []domain.CreateWorkspaceOptions
	DeleteLog      []string
	CreateErr      error
	DeleteErr      error
	MaterializeErr error
	HistoryErr     error
	ListErr        error
	Computer       string
	ExistsCalls    int
	ListCalls      int
	MappingCalls   int
	MaterializeCnt int
	HistoryCalls   int
	CreateCalls    int
	DeleteCalls    int
}

// NewMockServer creates an empty MockServer for computer "BUILD01".
func NewMockServer() *MockServer {
	return &MockServer{
		Workspaces: make(map[string]*MockWorkspace),
		Computer:   "BUILD01",
	}
}

// AddWorkspace registers a workspace mapped at localPath ("" for none).
func (m *MockServer) AddWorkspace(name, localPath string) {
	m.Workspaces[strings.ToLower(name)] = &MockWorkspace{
		Ref:       domain.WorkspaceRef{Name: name, Computer: m.Computer},
		LocalPath: localPath,
	}
}

// Has reports whether a workspace with the name exists.
func (m *MockServer) Has(name string) bool {
	_, ok := m.Workspaces[strings.ToLower(name)]
	return ok
}

// MutatingCalls returns the number of create and delete calls.
func (m *MockServer) MutatingCalls() int {
	return m.CreateCalls + m.DeleteCalls
}

// ResetCounters zeroes every call counter and log.
func (m *MockServer) ResetCounters() {
	m.ExistsCalls, m.ListCalls, m.MappingCalls = 0, 0, 0
	m.CreateCalls, m.DeleteCalls, m.MaterializeCnt, m.HistoryCalls = 0, 0, 0, 0
	m.CreateLog, m.DeleteLog, m.MaterializeLog, m.HistoryLog = nil, nil, nil, nil
}

// WorkspaceExists reports whether a workspace exists.
func (m *MockServer) WorkspaceExists(_ context.Context, name string) (bool, error) {
	m.ExistsCalls++
	return m.Has(name), nil
}

// ListWorkspaces returns every workspace.
func (m *MockServer) ListWorkspaces(_ context.Context) ([]domain.WorkspaceRef, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	refs := make([]domain.WorkspaceRef, 0, len(m.Workspaces))
	for _, ws := range m.Workspaces {
		refs = append(refs, ws.Ref)
	}
	return refs, nil
}

// MappingOwnerOf returns the workspace mapped at localPath.
func (m *MockServer) MappingOwnerOf(_ context.Context, localPath string) (string, bool, error) {
	m.MappingCalls++
	for _, ws := range m.Workspaces {
		if ws.LocalPath != "" && filepath.Clean(ws.LocalPath) == filepath.Clean(localPath) {
			return ws.Ref.Name, true, nil
		}
	}
	return "", false, nil
}

// CreateWorkspace records and creates a workspace.
func (m *MockServer) CreateWorkspace(_ context.Context, opts domain.CreateWorkspaceOptions) (*domain.WorkspaceRef, error) {
	m.CreateCalls++
	m.CreateLog = append(m.CreateLog, opts)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Has(opts.Name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkspaceExists, opts.Name)
	}
	ref := domain.WorkspaceRef{Name: opts.Name, Computer: m.Computer}
	m.Workspaces[strings.ToLower(opts.Name)] = &MockWorkspace{Ref: ref, LocalPath: opts.LocalPath, Options: opts}
	return &ref, nil
}

// DeleteWorkspace records and deletes a workspace.
func (m *MockServer) DeleteWorkspace(_ context.Context, ref domain.WorkspaceRef) error {
	m.DeleteCalls++
	m.DeleteLog = append(m.DeleteLog, ref.Name)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Workspaces, strings.ToLower(ref.Name))
	return nil
}

// Materialize records the fetch.
func (m *MockServer) Materialize(_ context.Context, localFolder, versionSpec string, overwrite bool) error {
	m.MaterializeCnt++
	m.MaterializeLog = append(m.MaterializeLog, MaterializeCall{
		LocalFolder: localFolder,
		VersionSpec: versionSpec,
		Overwrite:   overwrite,
	})
	return m.MaterializeErr
}

// History records the query and returns HistoryResult.
func (m *MockServer) History(_ context.Context, q domain.HistoryQuery) ([]domain.ChangeSet, error) {
	m.HistoryCalls++
	m.HistoryLog = append(m.HistoryLog, q)
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return m.HistoryResult, nil
}

// Ensure MockServer implements domain.Server.
var _ domain.Server = (*MockServer)(nil)

// ReportEntry is one message captured by MockReporter.
type ReportEntry struct {
	Level    string
	Category string
	Msg      string
}

// MockReporter captures reported messages.
type MockReporter struct {
	Entries []ReportEntry
}

func (m *MockReporter) add(level, category, msg string) {
	m.Entries = append(m.Entries, ReportEntry{Level: level, Category: category, Msg: msg})
}

// Debug records a debug message.
func (m *MockReporter) Debug(category, msg string) { m.add("debug", category, msg) }

// Info records an info message.
func (m *MockReporter) Info(category, msg string) { m.add("info", category, msg) }

// Warn records a warning.
func (m *MockReporter) Warn(category, msg string) { m.add("warn", category, msg) }

// Error records an error message.
func (m *MockReporter) Error(category, msg string) { m.add("error", category, msg) }

// Warnings returns the recorded warning messages.
func (m *MockReporter) Warnings() []string {
	var out []string
	for _, e := range m.Entries {
		if e.Level == "warn" {
			out = append(out, e.Msg)
		}
	}
	return out
}

// Ensure MockReporter implements domain.Reporter.
var _ domain.Reporter = (*MockReporter)(nil)

// MockLocalFolders is a test double for domain.LocalFolders.
type MockLocalFolders struct {
	Folders   map[string]bool
	Cleared   []string
	ExistsErr error
	ClearErr  error
}

// NewMockLocalFolders creates a MockLocalFolders where the given paths exist.
func NewMockLocalFolders(existing ...string) *MockLocalFolders {
	m := &MockLocalFolders{Folders: make(map[string]bool)}
	for _, p := range existing {
		m.Folders[filepath.Clean(p)] = true
	}
	return m
}

// Exists reports whether the folder was registered.
func (m *MockLocalFolders) Exists(path string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.Folders[filepath.Clean(path)], nil
}

// Clear records the clear call.
func (m *MockLocalFolders) Clear(path string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = append(m.Cleared, path)
	return nil
}

// Ensure MockLocalFolders implements domain.LocalFolders.
var _ domain.LocalFolders = (*MockLocalFolders)(nil)

// MockWorkspaceConfigRepository is an in-memory domain.WorkspaceConfigRepository.
type MockWorkspaceConfigRepository struct {
	Configs map[string]domain.WorkspaceConfiguration
	GetErr  error
	SaveErr error
	Saved   int
}

// NewMockWorkspaceConfigRepository creates an empty repository.
func NewMockWorkspaceConfigRepository() *MockWorkspaceConfigRepository {
	return &MockWorkspaceConfigRepository{Configs: make(map[string]domain.WorkspaceConfiguration)}
}

// Get returns the configuration for node, or nil.
func (m *MockWorkspaceConfigRepository) Get(node string) (*domain.WorkspaceConfiguration, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cfg, ok := m.Configs[node]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// Save stores cfg.
func (m *MockWorkspaceConfigRepository) Save(cfg domain.WorkspaceConfiguration) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved++
	m.Configs[cfg.Node] = cfg
	return nil
}

// MarkRemoved clears the exists flag for node.
func (m *MockWorkspaceConfigRepository) MarkRemoved(node string) error {
	cfg, ok := m.Configs[node]
	if !ok {
		return nil
	}
	cfg.WorkspaceExists = false
	m.Configs[node] = cfg
	return nil
}

// Ensure MockWorkspaceConfigRepository implements domain.WorkspaceConfigRepository.
var _ domain.WorkspaceConfigRepository = (*MockWorkspaceConfigRepository)(nil)

// ExecResult is a canned MockExecutor response.
type ExecResult struct {
	Err    error
	Output string
}

// MockExecutor is a test double for domain.CommandExecutor.
// Respond decides the result of each command; without it every command
// succeeds with empty output.
type MockExecutor struct {
	Respond  func(cmd *domain.ExecCommand) ExecResult
	Commands []*domain.ExecCommand
}

// Execute records cmd and returns the canned response.
func (m *MockExecutor) Execute(_ context.Context, cmd *domain.ExecCommand) ([]byte, error) {
	m.Commands = append(m.Commands, cmd)
	if m.Respond == nil {
		return nil, nil
	}
	res := m.Respond(cmd)
	if res.Err != nil {
		return []byte(res.Output), &domain.CommandError{Command: cmd.String(), Output: res.Output, Err: res.Err}
	}
	return []byte(res.Output), nil
}

// ExecuteWithContext records cmd and writes the canned output to stdout.
func (m *MockExecutor) ExecuteWithContext(ctx context.Context, cmd *domain.ExecCommand, stdout, _ io.Writer) error {
	out, err := m.Execute(ctx, cmd)
	if stdout != nil && len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	return err
}

// Subcommands returns the first argument of every recorded command.
func (m *MockExecutor) Subcommands() []string {
	out := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}

// Ensure MockExecutor implements domain.CommandExecutor.
var _ domain.CommandExecutor = (*MockExecutor)(nil)

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config    *domain.Config
	LoadErr   error
	GlobalErr error
}

// NewMockConfigLoader returns a loader serving the default configuration.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured config.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	return m.Config, nil
}

// Ensure MockConfigLoader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitRepoErr      error
	InitGlobalErr    error
	RepoConfigInfo   domain.ConfigInfo
	GlobalConfigInfo domain.ConfigInfo
	InitRepoCalled   bool
	InitGlobalCalled bool
}

// NewMockConfigManager creates a MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{}
}

// GetRepoConfigInfo returns the configured info.
func (m *MockConfigManager) GetRepoConfigInfo() domain.ConfigInfo {
	return m.RepoConfigInfo
}

// GetGlobalConfigInfo returns the configured info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitRepoConfig records the call.
func (m *MockConfigManager) InitRepoConfig(_ *domain.Config) error {
	m.InitRepoCalled = true
	return m.InitRepoErr
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(_ *domain.Config) error {
	m.InitGlobalCalled = true
	return m.InitGlobalErr
}

// Ensure MockConfigManager implements domain.ConfigManager.
var _ domain.ConfigManager = (*MockConfigManager)(nil)
