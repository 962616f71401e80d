package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/vocabulary"
)

func seedLabel(t *testing.T, s *MemStore, ref, name string) {
	t.Helper()
	err := s.Execute(context.Background(), Statement{
		Kind: StatementInsert,
		Ref:  ref,
		Triples: []Triple{
			{Subject: ref, Predicate: PredClass, Object: "core.class.label"},
			{Subject: ref, Predicate: "label.info.name", Object: name},
		},
	})
	require.NoError(t, err)
}

func labelQuery(bind ...string) *SelectQuery {
	return &SelectQuery{
		EntityType:   vocabulary.TypeLabel,
		ClassMarkers: []string{"core.class.label"},
		Fields: map[string]vocabulary.FieldBinding{
			"name": {Predicate: "label.info.name", Kind: vocabulary.KindString},
		},
		Bind:        bind,
		Singularize: map[string]bool{"name": true},
	}
}

func TestMemStore_InsertAndSelectAll(t *testing.T) {
	s := NewMemStore(nil)
	seedLabel(t, s, "ref#Label-1", "alpha")
	seedLabel(t, s, "ref#Label-2", "beta")

	rows, err := s.Select(context.Background(), labelQuery())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Sorted subject order
	assert.Equal(t, "ref#Label-1", rows[0].IRI())
	assert.Equal(t, "alpha", rows[0].First("name"))
	assert.Equal(t, "beta", rows[1].First("name"))
}

func TestMemStore_BindInclusionSet_MissingSilentlyAbsent(t *testing.T) {
	s := NewMemStore(nil)
	seedLabel(t, s, "ref#Label-1", "alpha")

	rows, err := s.Select(context.Background(), labelQuery("ref#Label-1", "ref#Label-gone"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ref#Label-1", rows[0].IRI())
}

func TestMemStore_ParentScope(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	seedLabel(t, s, "ref#Label-1", "alpha")
	seedLabel(t, s, "ref#Label-2", "beta")
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementInsert,
		Ref:  "ref#Risk-1",
		Triples: []Triple{
			{Subject: "ref#Risk-1", Predicate: PredClass, Object: "core.class.risk"},
		},
	}))
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementAttach, Ref: "ref#Risk-1",
		Predicate: "core.rel.labels", Targets: []string{"ref#Label-2"},
	}))

	q := labelQuery()
	q.Parent = &ParentScope{IRI: "ref#Risk-1", Predicate: "core.rel.labels"}
	rows, err := s.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ref#Label-2", rows[0].IRI())
}

func TestMemStore_Expansion_CollectsFacetValuesInOrder(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	for i, score := range []string{"5.0", "9.8"} {
		ref := []string{"ref#Characterization-a", "ref#Characterization-b"}[i]
		require.NoError(t, s.Execute(ctx, Statement{
			Kind: StatementInsert, Ref: ref,
			Triples: []Triple{
				{Subject: ref, Predicate: "characterization.cvss3.base_score", Object: score},
			},
		}))
	}
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementInsert, Ref: "ref#Risk-1",
		Triples: []Triple{
			{Subject: "ref#Risk-1", Predicate: PredClass, Object: "core.class.risk"},
			{Subject: "ref#Risk-1", Predicate: "risk.rel.characterizations", Object: "ref#Characterization-b"},
			{Subject: "ref#Risk-1", Predicate: "risk.rel.characterizations", Object: "ref#Characterization-a"},
		},
	}))

	q := &SelectQuery{
		EntityType:   vocabulary.TypeRisk,
		ClassMarkers: []string{"core.class.risk"},
		Fields: map[string]vocabulary.FieldBinding{
			"cvss3_base_score": {Predicate: "characterization.cvss3.base_score", Kind: vocabulary.KindNumber, Multi: true},
		},
		Expansions: map[string]vocabulary.Expansion{
			"cvss3_base_score": {Via: "risk.rel.characterizations", Source: "characterization.cvss3.base_score"},
		},
		GroupByEntity: true,
	}
	rows, err := s.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1, "facets collapse to one row per entity")

	// Facet subjects visited in sorted order regardless of attach order
	assert.Equal(t, []string{"5.0", "9.8"}, rows[0]["cvss3_base_score"])
}

func TestMemStore_Singularize(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementInsert, Ref: "ref#Note-1",
		Triples: []Triple{
			{Subject: "ref#Note-1", Predicate: PredClass, Object: "core.class.note"},
			{Subject: "ref#Note-1", Predicate: "note.content.authors", Object: "alice"},
			{Subject: "ref#Note-1", Predicate: "note.content.authors", Object: "bob"},
		},
	}))

	q := &SelectQuery{
		EntityType:   vocabulary.TypeNote,
		ClassMarkers: []string{"core.class.note"},
		Fields: map[string]vocabulary.FieldBinding{
			"authors": {Predicate: "note.content.authors", Kind: vocabulary.KindString, Multi: true},
		},
		Singularize: map[string]bool{"authors": true},
	}
	rows, err := s.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"alice"}, rows[0]["authors"])
}

func TestMemStore_PatchOperations(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()
	seedLabel(t, s, "ref#Label-1", "alpha")

	err := s.Execute(ctx, Statement{
		Kind: StatementPatch, Ref: "ref#Label-1",
		Ops: []FieldOp{
			{Predicate: "label.info.name", Values: []string{"renamed"}, Action: PatchReplace},
			{Predicate: "label.info.color", Values: []string{"#ff0000"}, Action: PatchAdd},
		},
	})
	require.NoError(t, err)

	rows, err := s.Select(ctx, labelQuery("ref#Label-1"))
	require.NoError(t, err)
	assert.Equal(t, "renamed", rows[0].First("name"))

	// Remove with empty values drops the predicate entirely
	err = s.Execute(ctx, Statement{
		Kind: StatementPatch, Ref: "ref#Label-1",
		Ops:  []FieldOp{{Predicate: "label.info.color", Action: PatchRemove}},
	})
	require.NoError(t, err)
}

func TestMemStore_DetachAndDelete(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()
	seedLabel(t, s, "ref#Label-1", "alpha")

	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementInsert, Ref: "ref#Risk-1",
		Triples: []Triple{{Subject: "ref#Risk-1", Predicate: PredClass, Object: "core.class.risk"}},
	}))
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementAttach, Ref: "ref#Risk-1",
		Predicate: "core.rel.labels", Targets: []string{"ref#Label-1"},
	}))
	require.NoError(t, s.Execute(ctx, Statement{
		Kind: StatementDetach, Ref: "ref#Risk-1",
		Predicate: "core.rel.labels", Targets: []string{"ref#Label-1"},
	}))
	require.NoError(t, s.Execute(ctx, Statement{Kind: StatementDelete, Ref: "ref#Risk-1"}))

	assert.False(t, s.Exists("ref#Risk-1"))
	assert.True(t, s.Exists("ref#Label-1"), "detached target survives")
}

func TestMemStore_MutationsAgainstMissingSubject(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	for _, stmt := range []Statement{
		{Kind: StatementDelete, Ref: "ref#Risk-gone"},
		{Kind: StatementAttach, Ref: "ref#Risk-gone", Predicate: "p", Targets: []string{"x"}},
		{Kind: StatementDetach, Ref: "ref#Risk-gone", Predicate: "p", Targets: []string{"x"}},
		{Kind: StatementPatch, Ref: "ref#Risk-gone", Ops: []FieldOp{{Predicate: "p", Action: PatchRemove}}},
	} {
		err := s.Execute(ctx, stmt)
		require.Error(t, err, "kind %s", stmt.Kind)
		assert.True(t, errors.IsNotFound(err))
	}
}

func TestMemStore_CancelledContext(t *testing.T) {
	s := NewMemStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Select(ctx, labelQuery())
	assert.Error(t, err)

	err = s.Execute(ctx, Statement{Kind: StatementDelete, Ref: "x"})
	assert.Error(t, err)
}
