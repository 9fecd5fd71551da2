// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/crypto"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// SecretDecrypter turns an "enc:" configuration value into plain text.
type SecretDecrypter interface {
	DecryptSecret(value string) (string, error)
}

// Loader loads configuration from TOML files.
type Loader struct {
	secrets       SecretDecrypter
	jobDir        string // Directory holding .tfs-checkout.toml
	globalConfDir string // Path to global config directory (e.g., ~/.config/tfs-checkout)
}

// NewLoader creates a new Loader.
func NewLoader(jobDir string) *Loader {
	return &Loader{
		jobDir:        jobDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(jobDir, globalConfDir string) *Loader {
	return &Loader{
		jobDir:        jobDir,
		globalConfDir: globalConfDir,
	}
}

// WithSecrets sets the decrypter used for "enc:" passwords.
func (l *Loader) WithSecrets(secrets SecretDecrypter) *Loader {
	l.secrets = secrets
	return l
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration (repo + global).
// Job config takes precedence over global config, which takes precedence
// over the defaults. Only keys present in a file override earlier values.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	if l.globalConfDir != "" {
		if err := applyFile(cfg, filepath.Join(l.globalConfDir, domain.ConfigFileName)); err != nil {
			return nil, err
		}
	}
	if err := applyFile(cfg, filepath.Join(l.jobDir, domain.RepoConfigFileName)); err != nil {
		return nil, err
	}

	if err := l.decryptPassword(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadGlobal returns the defaults overlaid with the global configuration only.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	cfg := domain.NewDefaultConfig()
	path := filepath.Join(l.globalConfDir, domain.ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	if err := l.decryptPassword(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) decryptPassword(cfg *domain.Config) error {
	pw := cfg.Server.Password
	if !crypto.IsSecret(pw) {
		return nil
	}
	if l.secrets == nil {
		return fmt.Errorf("%w: server password is encrypted but no key is configured", domain.ErrInvalidSecret)
	}
	plain, err := l.secrets.DecryptSecret(pw)
	if err != nil {
		return fmt.Errorf("server password: %w", err)
	}
	cfg.Server.Password = plain
	return nil
}

// applyFile overlays the file at path onto cfg. A missing file is ignored.
func applyFile(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrConfigInvalid, path, err)
	}

	warnings := applyRaw(cfg, raw)
	for i, w := range warnings {
		warnings[i] = filepath.Base(path) + ": " + w
	}
	cfg.Warnings = append(cfg.Warnings, warnings...)
	return nil
}

// applyRaw copies recognized keys of raw onto cfg and returns warnings
// for everything else.
func applyRaw(cfg *domain.Config, raw map[string]any) []string {
	var warnings []string

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
			continue
		}
		switch section {
		case "server":
			warnings = append(warnings, applyServer(&cfg.Server, m)...)
		case "workspace":
			warnings = append(warnings, applyWorkspace(&cfg.Workspace, m)...)
		case "checkout":
			for k, v := range m {
				switch k {
				case "strategy":
					setString(&cfg.Checkout.Strategy, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [checkout]: %s", k))
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					setString(&cfg.Log.Level, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [log]: %s", k))
				}
			}
		case "state":
			for k, v := range m {
				switch k {
				case "dir":
					setString(&cfg.State.Dir, v)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [state]: %s", k))
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	sort.Strings(warnings)
	return warnings
}

func applyServer(s *domain.ServerConfig, m map[string]any) []string {
	var warnings []string
	for k, v := range m {
		switch k {
		case "backend":
			setString(&s.Backend, v)
		case "url":
			setString(&s.URL, v)
		case "computer":
			setString(&s.Computer, v)
		case "user":
			setString(&s.User, v)
		case "password":
			setString(&s.Password, v)
		case "tf_path":
			setString(&s.TFPath, v)
		case "repository":
			setString(&s.Repository, v)
		default:
			warnings = append(warnings, fmt.Sprintf("unknown key in [server]: %s", k))
		}
	}
	return warnings
}

func applyWorkspace(w *domain.WorkspaceConfig, m map[string]any) []string {
	var warnings []string
	for k, v := range m {
		switch k {
		case "name":
			setString(&w.Name, v)
		case "project_path":
			setString(&w.ProjectPath, v)
		case "local_folder":
			setString(&w.LocalFolder, v)
		case "cloaked_paths":
			if list, ok := v.([]any); ok {
				w.CloakedPaths = stringList(list)
			}
		case "mapped_paths":
			mapped, mw := parseMappedPaths(v)
			w.MappedPaths = mapped
			warnings = append(warnings, mw...)
		case "use_update":
			if b, ok := v.(bool); ok {
				w.UseUpdate = b
			}
		case "overwrite":
			if b, ok := v.(bool); ok {
				w.Overwrite = b
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown key in [workspace]: %s", k))
		}
	}
	return warnings
}

// parseMappedPaths reads [[workspace.mapped_paths]] entries.
func parseMappedPaths(v any) ([]domain.PathMapping, []string) {
	list, ok := v.([]any)
	if !ok {
		return nil, []string{"invalid value in [workspace]: mapped_paths"}
	}
	var (
		out      []domain.PathMapping
		warnings []string
	)
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("invalid entry in [[workspace.mapped_paths]] #%d", i+1))
			continue
		}
		var m domain.PathMapping
		for k, val := range entry {
			switch k {
			case "server_path":
				setString(&m.ServerPath, val)
			case "local_path":
				setString(&m.LocalPath, val)
			default:
				warnings = append(warnings, fmt.Sprintf("unknown key in [[workspace.mapped_paths]]: %s", k))
			}
		}
		if m.ServerPath == "" {
			warnings = append(warnings, fmt.Sprintf("missing server_path in [[workspace.mapped_paths]] #%d", i+1))
			continue
		}
		out = append(out, m)
	}
	return out, warnings
}

func setString(dst *string, v any) {
	if s, ok := v.(string); ok {
		*dst = s
	}
}

func stringList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
