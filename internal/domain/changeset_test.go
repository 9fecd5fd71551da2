package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUser(t *testing.T) {
	tests := []struct {
		input      string
		wantUser   string
		wantDomain string
	}{
		{`CORP\jdoe`, "jdoe", "CORP"},
		{"jdoe", "jdoe", ""},
		{`A\B\jdoe`, "jdoe", `A\B`},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			user, domain := ParseUser(tt.input)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantDomain, domain)
		})
	}
}

func TestChangeSet_ConfinedTo(t *testing.T) {
	cs := ChangeSet{Items: []ChangeItem{
		{Path: "$/Project/docs/a.md", Action: ActionEdit},
		{Path: "$/Project/Docs/b.md", Action: ActionAdd},
	}}

	assert.True(t, cs.ConfinedTo([]string{"$/Project/docs"}))
	assert.False(t, cs.ConfinedTo([]string{"$/Project/doc"}))
	assert.False(t, cs.ConfinedTo(nil))

	mixed := cs
	mixed.Items = append(mixed.Items, ChangeItem{Path: "$/Project/src/main.cs", Action: ActionEdit})
	assert.False(t, mixed.ConfinedTo([]string{"$/Project/docs"}))

	assert.False(t, ChangeSet{}.ConfinedTo([]string{"$/Project"}))
}

func TestFilterExcluded_PreservesOrder(t *testing.T) {
	changes := []ChangeSet{
		{Version: "3", Items: []ChangeItem{{Path: "$/P/src/a.cs"}}},
		{Version: "2", Items: []ChangeItem{{Path: "$/P/cloaked/x"}}},
		{Version: "1", Items: []ChangeItem{{Path: "$/P/cloaked/y"}, {Path: "$/P/src/b.cs"}}},
	}

	got := FilterExcluded(changes, []string{"$/P/cloaked"})

	versions := make([]string, 0, len(got))
	for _, c := range got {
		versions = append(versions, c.Version)
	}
	assert.Equal(t, []string{"3", "1"}, versions)
	assert.Len(t, FilterExcluded(changes, nil), 3)
}
