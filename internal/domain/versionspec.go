package domain

import (
	"fmt"
	"strings"
	"time"
)

// Version spec selectors.
const (
	timestampSelector = 'D'
	labelSelector     = 'L'
	labelScopeSep     = "@"
	rangeSep          = "~"
)

// versionSpecTimeLayout is second precision UTC with a trailing Z.
const versionSpecTimeLayout = "2006-01-02T15:04:05Z"

// VersionSpec identifies a point in the server's change history.
// It is a closed union of TimestampSpec and LabelSpec; switch on the
// concrete type to handle each variant.
type VersionSpec interface {
	// String returns the canonical wire form.
	String() string

	versionSpec()
}

// TimestampSpec anchors a version at an instant.
type TimestampSpec struct {
	Time time.Time
}

// LabelSpec anchors a version at a label, optionally restricted to a scope.
type LabelSpec struct {
	Name  string
	Scope string // Empty means unscoped
}

// NewTimestampSpec returns a TimestampSpec normalized to UTC second precision.
func NewTimestampSpec(t time.Time) TimestampSpec {
	return TimestampSpec{Time: t.UTC().Truncate(time.Second)}
}

// NewLabelSpec builds a LabelSpec from "name" or "name@scope".
// The scope is split at the last '@' so labels may contain '@' themselves.
func NewLabelSpec(value string) LabelSpec {
	if i := strings.LastIndex(value, labelScopeSep); i > 0 && i < len(value)-1 {
		return LabelSpec{Name: value[:i], Scope: value[i+1:]}
	}
	return LabelSpec{Name: value}
}

func (TimestampSpec) versionSpec() {}
func (LabelSpec) versionSpec()     {}

// String returns D<yyyy-MM-ddTHH:mm:ssZ>.
func (s TimestampSpec) String() string {
	return string(timestampSelector) + s.Time.UTC().Format(versionSpecTimeLayout)
}

// String returns L<name> or L<name>@<scope>.
func (s LabelSpec) String() string {
	if s.Scope == "" {
		return string(labelSelector) + s.Name
	}
	return string(labelSelector) + s.Name + labelScopeSep + s.Scope
}

// ParseVersionSpec decodes a canonical version spec string.
func ParseVersionSpec(s string) (VersionSpec, error) {
	if len(s) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersionSpec, s)
	}
	switch s[0] {
	case timestampSelector:
		t, err := time.Parse(versionSpecTimeLayout, s[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVersionSpec, s, err)
		}
		return NewTimestampSpec(t), nil
	case labelSelector:
		return NewLabelSpec(s[1:]), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersionSpec, s)
	}
}

// RangeSpec returns the legacy windowed form "<from>~<to>".
func RangeSpec(from, to VersionSpec) string {
	return from.String() + rangeSep + to.String()
}

// ParseRangeSpec splits a "<from>~<to>" string into its two anchors.
// A string without '~' is returned as a single anchor with a nil from.
func ParseRangeSpec(s string) (from, to VersionSpec, err error) {
	left, right, found := strings.Cut(s, rangeSep)
	if !found {
		to, err = ParseVersionSpec(s)
		return nil, to, err
	}
	if from, err = ParseVersionSpec(left); err != nil {
		return nil, nil, err
	}
	if to, err = ParseVersionSpec(right); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
