package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/silverline/pkg/core"
)

func source(name string, refs ...string) *core.SourceDefinition {
	def := &core.SourceDefinition{Name: name, PrimaryKey: name + "_id", Rules: core.NoopRuleSet()}
	for _, ref := range refs {
		def.ForeignKeys = append(def.ForeignKeys, core.ForeignKey{Field: ref + "_id", References: ref})
	}
	return def
}

func names(defs []*core.SourceDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func domainSources() []*core.SourceDefinition {
	return []*core.SourceDefinition{
		source("customers"),
		source("products", "vendors"),
		source("transactions", "customers", "products"),
		source("vendors"),
		source("invoices", "vendors"),
		source("reviews", "products", "customers"),
		source("support_tickets", "customers", "products"),
		source("call_transcripts", "customers", "support_tickets"),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		defs    []*core.SourceDefinition
		wantErr string
	}{
		{name: "empty", defs: nil},
		{name: "domain", defs: domainSources()},
		{
			name:    "duplicate source",
			defs:    []*core.SourceDefinition{source("a"), source("a")},
			wantErr: `source "a" declared more than once`,
		},
		{
			name:    "undeclared reference",
			defs:    []*core.SourceDefinition{source("a", "ghost")},
			wantErr: `references undeclared source "ghost"`,
		},
		{
			name:    "missing name",
			defs:    []*core.SourceDefinition{{}},
			wantErr: "has no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.defs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.defs), r.Count())
		})
	}
}

func TestOrder(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	ordered, err := r.Order()
	require.NoError(t, err)

	got := names(ordered)
	assert.Equal(t, []string{
		"customers", "vendors", "products", "transactions",
		"invoices", "reviews", "support_tickets", "call_transcripts",
	}, got)

	pos := make(map[string]int, len(got))
	for i, n := range got {
		pos[n] = i
	}
	for _, def := range ordered {
		for _, ref := range def.References() {
			assert.Less(t, pos[ref], pos[def.Name], "%s must come after %s", def.Name, ref)
		}
	}
}

func TestOrder_Deterministic(t *testing.T) {
	first, err := New(domainSources())
	require.NoError(t, err)
	want, err := first.Order()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		r, err := New(domainSources())
		require.NoError(t, err)
		got, err := r.Order()
		require.NoError(t, err)
		assert.Equal(t, names(want), names(got))
	}
}

func TestOrder_Cycle(t *testing.T) {
	tests := []struct {
		name      string
		defs      []*core.SourceDefinition
		wantCycle []string
	}{
		{
			name:      "self reference",
			defs:      []*core.SourceDefinition{source("employees", "employees")},
			wantCycle: []string{"employees", "employees"},
		},
		{
			name: "three way",
			defs: []*core.SourceDefinition{
				source("a", "c"),
				source("b", "a"),
				source("c", "b"),
			},
			wantCycle: []string{"a", "b", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.defs)
			require.NoError(t, err)

			_, err = r.Order()
			var cycleErr *core.CyclicDependencyError
			require.True(t, errors.As(err, &cycleErr), "expected CyclicDependencyError, got %v", err)
			assert.Equal(t, tt.wantCycle, cycleErr.Cycle)

			_, err = r.Levels()
			assert.True(t, errors.As(err, &cycleErr))
		})
	}
}

func TestLevels(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	levels, err := r.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customers", "vendors"},
		{"products", "invoices"},
		{"transactions", "reviews", "support_tickets"},
		{"call_transcripts"},
	}, levels)
}

func TestRootsAndLeaves(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	assert.Equal(t, []string{"customers", "vendors"}, r.Roots())
	assert.Equal(t, []string{"transactions", "invoices", "reviews", "call_transcripts"}, r.Leaves())
	assert.Equal(t, 10, r.EdgeCount())
}

func TestReferencesAndReferencedBy(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	tests := []struct {
		source       string
		references   []string
		referencedBy []string
	}{
		{source: "customers", referencedBy: []string{"transactions", "reviews", "support_tickets", "call_transcripts"}},
		{source: "products", references: []string{"vendors"}, referencedBy: []string{"transactions", "reviews", "support_tickets"}},
		{source: "reviews", references: []string{"products", "customers"}},
		{source: "call_transcripts", references: []string{"customers", "support_tickets"}},
		{source: "ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.references, r.References(tt.source))
			assert.Equal(t, tt.referencedBy, r.ReferencedBy(tt.source))
		})
	}

	// returned slices are copies
	refs := r.References("products")
	refs[0] = "changed"
	assert.Equal(t, []string{"vendors"}, r.References("products"))
}

func TestDependenciesAndDependents(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	assert.Equal(t, []string{"customers", "products", "vendors", "support_tickets"}, r.Dependencies("call_transcripts"))
	assert.Empty(t, r.Dependencies("vendors"))

	assert.Equal(t, []string{"products", "transactions", "invoices", "reviews", "support_tickets", "call_transcripts"},
		r.Dependents("vendors"))
	assert.Empty(t, r.Dependents("call_transcripts"))

	def, ok := r.Get("reviews")
	require.True(t, ok)
	assert.Equal(t, "reviews", def.Name)
	_, ok = r.Get("ghost")
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	r, err := New(domainSources())
	require.NoError(t, err)

	sub, err := r.Select([]string{"transactions"})
	require.NoError(t, err)

	ordered, err := sub.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "vendors", "products", "transactions"}, names(ordered))
	assert.Equal(t, []string{"customers", "products", "transactions", "vendors"}, names(sub.All()))

	_, err = r.Select([]string{"ghost"})
	assert.Error(t, err)
}
