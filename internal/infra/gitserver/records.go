package gitserver

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// workspaceRecord is the YAML blob stored for each workspace.
// Fields are ordered to minimize memory padding.
type workspaceRecord struct {
	CreatedAt    time.Time            `yaml:"createdAt"`
	Name         string               `yaml:"name"`
	Computer     string               `yaml:"computer"`
	Owner        string               `yaml:"owner,omitempty"`
	Comment      string               `yaml:"comment,omitempty"`
	ServerPath   string               `yaml:"serverPath"`
	LocalPath    string               `yaml:"localPath"`
	CloakedPaths []string             `yaml:"cloakedPaths,omitempty"`
	MappedPaths  []domain.PathMapping `yaml:"mappedPaths,omitempty"`
}

func (r *workspaceRecord) ref() domain.WorkspaceRef {
	return domain.WorkspaceRef{
		Name:     r.Name,
		Computer: r.Computer,
		Owner:    r.Owner,
		Comment:  r.Comment,
	}
}

// localFolders returns every local folder the workspace maps.
func (r *workspaceRecord) localFolders() []string {
	out := []string{r.LocalPath}
	for _, m := range r.MappedPaths {
		if !m.Excluded() {
			out = append(out, m.LocalPath)
		}
	}
	return out
}

// maps reports whether localPath is one of the workspace's folders or lies
// beneath one.
func (r *workspaceRecord) maps(localPath string) bool {
	for _, folder := range r.localFolders() {
		if isUnderLocal(localPath, folder) {
			return true
		}
	}
	return false
}

func isUnderLocal(path, root string) bool {
	path, root = filepath.Clean(path), filepath.Clean(root)
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// refPrefix returns the ref prefix holding the computer's workspaces.
func (s *Server) refPrefix() string {
	return "refs/tfs/workspaces/" + refComponent(s.computer) + "/"
}

// workspaceRef returns the ref name for a workspace.
// Names are case-insensitive, so the ref uses the lower-cased name.
func (s *Server) workspaceRef(name string) plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + refComponent(name))
}

// refComponent escapes s into a single valid ref name component.
func refComponent(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, c := range []byte(strings.ToLower(s)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}

// loadRecord reads the workspace record, or returns nil when there is none.
func (s *Server) loadRecord(name string) (*workspaceRecord, error) {
	ref, err := s.repo.Reference(s.workspaceRef(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workspace ref: %w", err)
	}
	return s.decodeRecord(ref.Hash())
}

func (s *Server) decodeRecord(hash plumbing.Hash) (*workspaceRecord, error) {
	data, err := s.readBlob(hash)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var rec workspaceRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	return &rec, nil
}

// listRecords returns every workspace record of the computer.
func (s *Server) listRecords() ([]*workspaceRecord, error) {
	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()

	prefix := s.refPrefix()
	var records []*workspaceRecord
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !strings.HasPrefix(string(ref.Name()), prefix) {
			return nil
		}
		rec, decodeErr := s.decodeRecord(ref.Hash())
		if decodeErr != nil {
			return decodeErr
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Server) saveRecord(rec *workspaceRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	hash, err := s.writeBlob(data)
	if err != nil {
		return err
	}
	ref := plumbing.NewHashReference(s.workspaceRef(rec.Name), hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set workspace ref: %w", err)
	}
	return nil
}

func (s *Server) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}
	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

func (s *Server) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}
