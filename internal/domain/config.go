package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Backend names for [server] backend.
const (
	BackendTF  = "tf"
	BackendGit = "git"
)

// ConfigFileName is the name of the configuration file in both the
// global config directory and the job directory.
const ConfigFileName = "config.toml"

// RepoConfigFileName is the job-local configuration file.
const RepoConfigFileName = ".tfs-checkout.toml"

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings  []string        `toml:"-"`
	Server    ServerConfig    `toml:"server"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Checkout  CheckoutConfig  `toml:"checkout"`
	Log       LogConfig       `toml:"log"`
	State     StateConfig     `toml:"state"`
}

// ServerConfig holds [server] settings.
type ServerConfig struct {
	Backend    string `toml:"backend,omitempty"`    // "tf" (default) or "git"
	URL        string `toml:"url,omitempty"`        // Collection URL
	Computer   string `toml:"computer,omitempty"`   // Computer owning the workspaces (default: hostname)
	User       string `toml:"user,omitempty"`       // Login user, DOMAIN\user allowed
	Password   string `toml:"password,omitempty"`   // Plain or "enc:<hex>"
	TFPath     string `toml:"tf_path,omitempty"`    // tf executable (default: "tf")
	Repository string `toml:"repository,omitempty"` // Repository path for the git backend
}

// WorkspaceConfig holds [workspace] settings.
type WorkspaceConfig struct {
	Name         string        `toml:"name,omitempty"`         // Name template
	ProjectPath  string        `toml:"project_path,omitempty"` // Server path, e.g. $/Project
	LocalFolder  string        `toml:"local_folder,omitempty"` // Relative to the job directory
	CloakedPaths []string      `toml:"cloaked_paths,omitempty"`
	MappedPaths  []PathMapping `toml:"mapped_paths,omitempty"`
	UseUpdate    bool          `toml:"use_update"`
	Overwrite    bool          `toml:"overwrite"`
}

// CheckoutConfig holds [checkout] settings.
type CheckoutConfig struct {
	Strategy string `toml:"strategy,omitempty"` // "", "D..." or "L<label>[@scope]"
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// StateConfig holds [state] settings.
type StateConfig struct {
	Dir string `toml:"dir,omitempty"` // Directory for logs and workspace state
}

// NewDefaultConfig returns the configuration used when no file sets a value.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Backend: BackendTF,
			TFPath:  "tf",
		},
		Workspace: WorkspaceConfig{
			Name:        DefaultWorkspaceNameTemplate,
			LocalFolder: ".",
			UseUpdate:   true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Identity builds the workspace identity for a job run in jobDir.
func (c *Config) Identity(jobDir string, vars map[string]string) WorkspaceIdentity {
	local := c.Workspace.LocalFolder
	if !filepath.IsAbs(local) {
		local = filepath.Join(jobDir, local)
	}
	cloaked := make([]string, 0, len(c.Workspace.CloakedPaths))
	for _, p := range c.Workspace.CloakedPaths {
		if p = NormalizeServerPath(p); p != "" {
			cloaked = append(cloaked, p)
		}
	}
	mapped := make([]PathMapping, 0, len(c.Workspace.MappedPaths))
	for _, m := range c.Workspace.MappedPaths {
		m.ServerPath = NormalizeServerPath(m.ServerPath)
		if m.LocalPath != "" && !filepath.IsAbs(m.LocalPath) {
			m.LocalPath = filepath.Join(jobDir, m.LocalPath)
		}
		mapped = append(mapped, m)
	}
	return WorkspaceIdentity{
		Name:         strings.TrimSpace(ExpandWorkspaceName(c.Workspace.Name, vars)),
		ServerPath:   NormalizeServerPath(c.Workspace.ProjectPath),
		LocalFolder:  filepath.Clean(local),
		CloakedPaths: cloaked,
		MappedPaths:  mapped,
	}
}

// StateDir returns the state directory, defaulting to .tfs-checkout under jobDir.
func (c *Config) StateDir(jobDir string) string {
	if c.State.Dir == "" {
		return filepath.Join(jobDir, ".tfs-checkout")
	}
	if filepath.IsAbs(c.State.Dir) {
		return c.State.Dir
	}
	return filepath.Join(jobDir, c.State.Dir)
}

// GlobalConfigDir returns the global config directory under configHome.
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, "tfs-checkout")
}

// GlobalLogPath returns the path to the checkout log file.
func GlobalLogPath(stateDir string) string {
	return filepath.Join(stateDir, "logs", "checkout.log")
}

// BuildLogPath returns the path to the log file of one build.
func BuildLogPath(stateDir string, build int) string {
	return filepath.Join(stateDir, "logs", "build-"+strconv.Itoa(build)+".log")
}

// WorkspaceStatePath returns the path to the persisted workspace configurations.
func WorkspaceStatePath(stateDir string) string {
	return filepath.Join(stateDir, "workspaces.toml")
}

// ChangelogPath returns the default changelog path for a build.
func ChangelogPath(stateDir string, build int) string {
	return filepath.Join(stateDir, "changelog", "build-"+strconv.Itoa(build)+".yaml")
}

// ConfigInfo holds information about a configuration file.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	// GetRepoConfigInfo returns information about the job config file.
	GetRepoConfigInfo() ConfigInfo
	// GetGlobalConfigInfo returns information about the global config file.
	GetGlobalConfigInfo() ConfigInfo
	// InitRepoConfig writes cfg as the job config file.
	InitRepoConfig(cfg *Config) error
	// InitGlobalConfig writes cfg as the global config file.
	InitGlobalConfig(cfg *Config) error
}
