package domain

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// ServerPathRoot is the root of every server path.
const ServerPathRoot = "$/"

// PathMapping overrides where a server sub-path lands locally.
// An empty LocalPath maps the sub-path to nothing: it is cloaked in the
// workspace and excluded from history.
type PathMapping struct {
	ServerPath string `toml:"server_path" yaml:"server_path"`
	LocalPath  string `toml:"local_path,omitempty" yaml:"local_path,omitempty"`
}

// Excluded reports whether the mapping has no local target.
func (m PathMapping) Excluded() bool {
	return m.LocalPath == ""
}

// WorkspaceIdentity is the desired workspace state for a build.
// Fields are ordered to minimize memory padding.
type WorkspaceIdentity struct {
	Name         string
	ServerPath   string
	LocalFolder  string
	CloakedPaths []string
	MappedPaths  []PathMapping
}

// Validate checks that the identity can be used to create a workspace.
func (w WorkspaceIdentity) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: workspace name is empty", ErrConfigInvalid)
	}
	if !strings.HasPrefix(w.ServerPath, ServerPathRoot) {
		return fmt.Errorf("%w: project path %q must start with %q", ErrConfigInvalid, w.ServerPath, ServerPathRoot)
	}
	if w.LocalFolder == "" {
		return fmt.Errorf("%w: local folder is empty", ErrConfigInvalid)
	}
	return nil
}

// ExcludedPaths returns the server paths whose changes are not reported:
// the cloaked paths followed by every mapping without a local target.
func (w WorkspaceIdentity) ExcludedPaths() []string {
	out := make([]string, 0, len(w.CloakedPaths)+len(w.MappedPaths))
	out = append(out, w.CloakedPaths...)
	for _, m := range w.MappedPaths {
		if m.Excluded() {
			out = append(out, m.ServerPath)
		}
	}
	return out
}

// CreateWorkspaceOptions is everything the server needs to create a
// workspace for an identity.
type CreateWorkspaceOptions struct {
	Name         string
	ServerPath   string
	LocalPath    string
	CloakedPaths []string
	MappedPaths  []PathMapping
}

// CreateOptions returns the create call arguments for the identity.
// Cloaked and mapped paths are passed through unchanged.
func (w WorkspaceIdentity) CreateOptions() CreateWorkspaceOptions {
	return CreateWorkspaceOptions{
		Name:         w.Name,
		ServerPath:   w.ServerPath,
		LocalPath:    w.LocalFolder,
		CloakedPaths: w.CloakedPaths,
		MappedPaths:  w.MappedPaths,
	}
}

// WorkspaceRef is the server's handle for a workspace.
type WorkspaceRef struct {
	Name     string `yaml:"name"`
	Computer string `yaml:"computer,omitempty"`
	Owner    string `yaml:"owner,omitempty"`
	Comment  string `yaml:"comment,omitempty"`
}

// SameAs reports whether both refs denote the same workspace.
// Names compare case-insensitively; computers only when both are known.
func (r WorkspaceRef) SameAs(other WorkspaceRef) bool {
	if !SameWorkspaceName(r.Name, other.Name) {
		return false
	}
	if r.Computer == "" || other.Computer == "" {
		return true
	}
	return strings.EqualFold(r.Computer, other.Computer)
}

// SameWorkspaceName compares workspace names the way the server does.
func SameWorkspaceName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// WorkspaceConfiguration is the last identity successfully applied on a node.
// Fields are ordered to minimize memory padding.
//
//nolint:govet // Field order follows TOML convention for readability
type WorkspaceConfiguration struct {
	Node            string        `toml:"node"`
	ServerURL       string        `toml:"server_url"`
	WorkspaceName   string        `toml:"workspace_name"`
	ProjectPath     string        `toml:"project_path"`
	LocalFolder     string        `toml:"local_folder"`
	CloakedPaths    []string      `toml:"cloaked_paths,omitempty"`
	MappedPaths     []PathMapping `toml:"mapped_paths,omitempty"`
	WorkspaceExists bool          `toml:"workspace_exists"`
	UpdatedAt       time.Time     `toml:"updated_at"`
}

// NewWorkspaceConfiguration records an identity applied on node.
func NewWorkspaceConfiguration(node, serverURL string, id WorkspaceIdentity, now time.Time) WorkspaceConfiguration {
	return WorkspaceConfiguration{
		Node:            node,
		ServerURL:       serverURL,
		WorkspaceName:   id.Name,
		ProjectPath:     id.ServerPath,
		LocalFolder:     id.LocalFolder,
		CloakedPaths:    id.CloakedPaths,
		MappedPaths:     id.MappedPaths,
		WorkspaceExists: true,
		UpdatedAt:       now,
	}
}

// Fingerprint hashes the fields that define the workspace layout.
// Two configurations with equal fingerprints need no workspace rebuild.
func (c WorkspaceConfiguration) Fingerprint() string {
	h := blake3.New()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(strings.ToLower(c.ServerURL))
	write(strings.ToLower(c.WorkspaceName))
	write(strings.ToLower(c.ProjectPath))
	write(c.LocalFolder)
	for _, p := range c.CloakedPaths {
		write("cloak:" + strings.ToLower(p))
	}
	for _, m := range c.MappedPaths {
		write("map:" + strings.ToLower(m.ServerPath) + "=" + m.LocalPath)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// DefaultWorkspaceNameTemplate is used when no workspace name is configured.
const DefaultWorkspaceNameTemplate = "Hudson-${JOB_NAME}-${NODE_NAME}"

// ExpandWorkspaceName substitutes ${VAR} and $VAR references from vars.
// Unknown variables are kept in ${VAR} form.
func ExpandWorkspaceName(template string, vars map[string]string) string {
	return os.Expand(template, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return "${" + key + "}"
	})
}
