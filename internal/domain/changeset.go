package domain

import (
	"strings"
	"time"
)

// ChangeAction is what a changeset did to an item.
type ChangeAction string

// Known change actions. Servers may report others; they are kept verbatim.
const (
	ActionAdd    ChangeAction = "add"
	ActionEdit   ChangeAction = "edit"
	ActionDelete ChangeAction = "delete"
	ActionRename ChangeAction = "rename"
	ActionBranch ChangeAction = "branch"
	ActionMerge  ChangeAction = "merge"
)

// ChangeItem is one server path touched by a changeset.
type ChangeItem struct {
	Path   string       `yaml:"path"`
	Action ChangeAction `yaml:"action"`
}

// ChangeSet is one atomic change recorded on the server.
// Fields are ordered to minimize memory padding.
type ChangeSet struct {
	Date    time.Time    `yaml:"date"`
	Version string       `yaml:"version"`
	User    string       `yaml:"user"`
	Domain  string       `yaml:"domain,omitempty"`
	Comment string       `yaml:"comment,omitempty"`
	Items   []ChangeItem `yaml:"items"`
}

// ParseUser splits "DOMAIN\user" into user and domain.
// A name without a backslash has no domain.
func ParseUser(qualified string) (user, domain string) {
	if i := strings.LastIndex(qualified, `\`); i >= 0 {
		return qualified[i+1:], qualified[:i]
	}
	return qualified, ""
}

// ConfinedTo reports whether every item of the changeset lies under one of
// the given server paths. A changeset without items is never confined.
func (c ChangeSet) ConfinedTo(paths []string) bool {
	if len(c.Items) == 0 || len(paths) == 0 {
		return false
	}
	for _, item := range c.Items {
		if !underAny(item.Path, paths) {
			return false
		}
	}
	return true
}

// FilterExcluded drops the changesets confined entirely to excluded paths.
// The relative order of the remaining changesets is preserved.
func FilterExcluded(changes []ChangeSet, excluded []string) []ChangeSet {
	if len(excluded) == 0 {
		return changes
	}
	out := make([]ChangeSet, 0, len(changes))
	for _, c := range changes {
		if !c.ConfinedTo(excluded) {
			out = append(out, c)
		}
	}
	return out
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if IsUnderServerPath(path, root) {
			return true
		}
	}
	return false
}
