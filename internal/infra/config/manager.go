package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	jobDir        string // Directory holding .tfs-checkout.toml
	globalConfDir string // Path to global config directory (e.g., ~/.config/tfs-checkout)
}

// NewManager creates a new Manager.
func NewManager(jobDir string) *Manager {
	return &Manager{
		jobDir:        jobDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(jobDir, globalConfDir string) *Manager {
	return &Manager{
		jobDir:        jobDir,
		globalConfDir: globalConfDir,
	}
}

// GetRepoConfigInfo returns information about the job config file.
func (m *Manager) GetRepoConfigInfo() domain.ConfigInfo {
	return getConfigInfo(filepath.Join(m.jobDir, domain.RepoConfigFileName))
}

// GetGlobalConfigInfo returns information about the global config file.
func (m *Manager) GetGlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return getConfigInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

func getConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitRepoConfig creates the job config file from cfg.
func (m *Manager) InitRepoConfig(cfg *domain.Config) error {
	return initConfig(filepath.Join(m.jobDir, domain.RepoConfigFileName), cfg)
}

// InitGlobalConfig creates the global config file from cfg.
func (m *Manager) InitGlobalConfig(cfg *domain.Config) error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return err
	}
	return initConfig(filepath.Join(m.globalConfDir, domain.ConfigFileName), cfg)
}

const configHeader = `# tfs-checkout configuration.
# Passwords may be stored as "enc:<hex>" values; see "tfs-checkout secret encrypt".

`

func initConfig(path string, cfg *domain.Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrConfigExists, path)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o600)
}
