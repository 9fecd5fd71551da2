package domain

import (
	"fmt"
	"time"
)

// StrategyKind selects how the checkout version is anchored.
type StrategyKind int

const (
	// StrategyTimestamp anchors the checkout at the build start time.
	StrategyTimestamp StrategyKind = iota
	// StrategyLabel anchors the checkout at a label.
	StrategyLabel
)

// String returns the strategy name.
func (k StrategyKind) String() string {
	switch k {
	case StrategyTimestamp:
		return "timestamp"
	case StrategyLabel:
		return "label"
	default:
		return "unknown"
	}
}

// StrategyError reports a checkout strategy token that could not be parsed.
type StrategyError struct {
	Token string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %q (must start with %q or %q)",
		ErrInvalidCheckoutStrategy, e.Token, string(timestampSelector), string(labelSelector))
}

// Unwrap returns ErrInvalidCheckoutStrategy.
func (e *StrategyError) Unwrap() error {
	return ErrInvalidCheckoutStrategy
}

// CheckoutStrategy is the parsed form of the checkout strategy token.
// Use ParseCheckoutStrategy to build one; the zero value is the
// timestamp strategy without a parameter.
type CheckoutStrategy struct {
	err   error
	value string
	kind  StrategyKind
}

// ParseCheckoutStrategy parses a configuration token such as "", "D",
// "LRelease-1" or "LRelease-1@$/Project". An unrecognized selector is
// reported immediately as a *StrategyError.
func ParseCheckoutStrategy(token string) (CheckoutStrategy, error) {
	if token == "" {
		return CheckoutStrategy{kind: StrategyTimestamp}, nil
	}
	arg := token[1:]
	switch token[0] {
	case timestampSelector:
		return CheckoutStrategy{kind: StrategyTimestamp, value: arg}, nil
	case labelSelector:
		if arg == "" {
			// A label without a name carries no parameter; the caller
			// falls back to the timestamp strategy.
			return CheckoutStrategy{kind: StrategyTimestamp}, nil
		}
		return CheckoutStrategy{kind: StrategyLabel, value: arg}, nil
	default:
		err := &StrategyError{Token: token}
		return CheckoutStrategy{err: err}, err
	}
}

// Kind returns the selected strategy.
func (s CheckoutStrategy) Kind() StrategyKind {
	return s.kind
}

// HasCheckoutParameter reports whether the token had a recognized
// selector followed by a non-empty argument.
func (s CheckoutStrategy) HasCheckoutParameter() bool {
	return s.err == nil && s.value != ""
}

// Value returns the argument that followed the selector.
func (s CheckoutStrategy) Value() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.value, nil
}

// VersionSpec resolves the strategy against the current build start time.
// The timestamp strategy always anchors at buildStart; any argument given
// after 'D' is ignored.
func (s CheckoutStrategy) VersionSpec(buildStart time.Time) (VersionSpec, error) {
	if s.err != nil {
		return nil, s.err
	}
	switch s.kind {
	case StrategyLabel:
		return NewLabelSpec(s.value), nil
	default:
		return NewTimestampSpec(buildStart), nil
	}
}
