// Package workspace persists the workspace configuration applied on each node.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Store implements domain.WorkspaceConfigRepository.
var _ domain.WorkspaceConfigRepository = (*Store)(nil)

const fileVersion = 1

// stateFile is the on-disk layout of workspaces.toml.
type stateFile struct {
	Nodes   []domain.WorkspaceConfiguration `toml:"node"`
	Version int                             `toml:"version"`
}

// Store implements WorkspaceConfigRepository for file-based persistence.
type Store struct {
	fs       afero.Fs
	filePath string
	mu       sync.Mutex
}

// NewStore creates a new store backed by the OS filesystem.
// stateDir is typically <job>/.tfs-checkout.
func NewStore(stateDir string) *Store {
	return NewStoreWithFs(afero.NewOsFs(), stateDir)
}

// NewStoreWithFs creates a new store on fs.
func NewStoreWithFs(fs afero.Fs, stateDir string) *Store {
	return &Store{
		fs:       fs,
		filePath: domain.WorkspaceStatePath(stateDir),
	}
}

// Get returns the configuration recorded for node, or nil when there is none.
func (s *Store) Get(node string) (*domain.WorkspaceConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(file.Nodes, node); i >= 0 {
		cfg := file.Nodes[i]
		return &cfg, nil
	}
	return nil, nil
}

// Save records cfg, replacing any earlier entry for the same node.
func (s *Store) Save(cfg domain.WorkspaceConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		// A corrupted file is replaced.
		if !errors.Is(err, domain.ErrStateFileCorrupted) {
			return err
		}
		file = &stateFile{Version: fileVersion}
	}
	if i := indexOf(file.Nodes, cfg.Node); i >= 0 {
		file.Nodes[i] = cfg
	} else {
		file.Nodes = append(file.Nodes, cfg)
	}
	return s.save(file)
}

// MarkRemoved records that the node's workspace no longer exists.
// Unknown nodes are ignored.
func (s *Store) MarkRemoved(node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(file.Nodes, node)
	if i < 0 {
		return nil
	}
	file.Nodes[i].WorkspaceExists = false
	return s.save(file)
}

// List returns every recorded configuration sorted by node.
func (s *Store) List() ([]domain.WorkspaceConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return file.Nodes, nil
}

// load reads the state file. A missing file is an empty one.
func (s *Store) load() (*stateFile, error) {
	data, err := afero.ReadFile(s.fs, s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &stateFile{Version: fileVersion}, nil
		}
		return nil, err
	}

	var file stateFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, domain.ErrStateFileCorrupted
	}
	file.Nodes = deduplicateNodes(file.Nodes)
	return &file, nil
}

func (s *Store) save(file *stateFile) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return err
	}

	file.Version = fileVersion
	sort.SliceStable(file.Nodes, func(i, j int) bool {
		return file.Nodes[i].Node < file.Nodes[j].Node
	})

	data, err := toml.Marshal(file)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.filePath, data, 0o600)
}

func indexOf(nodes []domain.WorkspaceConfiguration, node string) int {
	for i := range nodes {
		if strings.EqualFold(nodes[i].Node, node) {
			return i
		}
	}
	return -1
}

// deduplicateNodes removes duplicate entries by node, keeping the first occurrence.
func deduplicateNodes(nodes []domain.WorkspaceConfiguration) []domain.WorkspaceConfiguration {
	seen := make(map[string]bool)
	result := make([]domain.WorkspaceConfiguration, 0, len(nodes))
	for _, n := range nodes {
		key := strings.ToLower(n.Node)
		if !seen[key] {
			seen[key] = true
			result = append(result, n)
		}
	}
	return result
}
