// Package changelog stores the changesets of a build as YAML.
package changelog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

const formatVersion = 1

// Changelog is the change list recorded for one build.
// Fields are ordered to minimize memory padding.
type Changelog struct {
	CreatedAt    time.Time          `yaml:"created_at"`
	Workspace    string             `yaml:"workspace"`
	ProjectPath  string             `yaml:"project_path"`
	VersionRange string             `yaml:"version_range,omitempty"`
	ChangeSets   []domain.ChangeSet `yaml:"changesets"`
	Version      int                `yaml:"version"`
	Build        int                `yaml:"build"`
}

// Write stores log at path, creating parent directories.
func Write(path string, log *Changelog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create changelog directory: %w", err)
	}

	log.Version = formatVersion
	if log.ChangeSets == nil {
		log.ChangeSets = []domain.ChangeSet{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode changelog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode changelog: %w", err)
	}
	//nolint:gosec // Changelog readable by owner and group
	return os.WriteFile(path, buf.Bytes(), 0o640)
}

// Read loads the changelog at path.
func Read(path string) (*Changelog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var log Changelog
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrChangelogCorrupted, path, err)
	}
	if log.Version > formatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", domain.ErrChangelogCorrupted, path, log.Version)
	}
	return &log, nil
}

// Exists reports whether a changelog file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
