package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buildStart = time.Date(2009, 9, 24, 8, 15, 30, 0, time.UTC)

func TestParseCheckoutStrategy_EmptyToken(t *testing.T) {
	s, err := ParseCheckoutStrategy("")
	require.NoError(t, err)

	assert.False(t, s.HasCheckoutParameter())
	assert.Equal(t, StrategyTimestamp, s.Kind())

	spec, err := s.VersionSpec(buildStart)
	require.NoError(t, err)
	assert.Equal(t, NewTimestampSpec(buildStart), spec)
}

func TestParseCheckoutStrategy(t *testing.T) {
	tests := []struct {
		token     string
		wantKind  StrategyKind
		wantParam bool
		wantSpec  VersionSpec
	}{
		{"D", StrategyTimestamp, false, NewTimestampSpec(buildStart)},
		// The argument after D never overrides the build start time.
		{"D2001-01-01T00:00:00Z", StrategyTimestamp, true, NewTimestampSpec(buildStart)},
		{"Dgarbage", StrategyTimestamp, true, NewTimestampSpec(buildStart)},
		{"LFoo", StrategyLabel, true, LabelSpec{Name: "Foo"}},
		{"LFoo@$/Project", StrategyLabel, true, LabelSpec{Name: "Foo", Scope: "$/Project"}},
		{"L", StrategyTimestamp, false, NewTimestampSpec(buildStart)},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			s, err := ParseCheckoutStrategy(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, s.Kind())
			assert.Equal(t, tt.wantParam, s.HasCheckoutParameter())

			spec, err := s.VersionSpec(buildStart)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpec, spec)
		})
	}
}

func TestParseCheckoutStrategy_UnknownSelector(t *testing.T) {
	s, err := ParseCheckoutStrategy("Xfoo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCheckoutStrategy)
	assert.Contains(t, err.Error(), `"Xfoo"`)

	var strategyErr *StrategyError
	require.True(t, errors.As(err, &strategyErr))
	assert.Equal(t, "Xfoo", strategyErr.Token)

	assert.False(t, s.HasCheckoutParameter())

	_, err = s.Value()
	assert.ErrorIs(t, err, ErrInvalidCheckoutStrategy)

	_, err = s.VersionSpec(buildStart)
	assert.ErrorIs(t, err, ErrInvalidCheckoutStrategy)
}

func TestCheckoutStrategy_Value(t *testing.T) {
	s, err := ParseCheckoutStrategy("LRelease-2@X")
	require.NoError(t, err)

	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "Release-2@X", v)
}

func TestStrategyKind_String(t *testing.T) {
	assert.Equal(t, "timestamp", StrategyTimestamp.String())
	assert.Equal(t, "label", StrategyLabel.String())
	assert.Equal(t, "unknown", StrategyKind(9).String())
}
