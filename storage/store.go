// Package storage defines the boundary to the graph query execution service:
// the compiled query and mutation statement shapes the engine emits, and the
// Store interface that executes them. Two implementations are provided: an
// in-memory triple store for local mode and tests, and a NATS request/reply
// client for a remote graph service.
package storage

import (
	"context"

	"github.com/champtc/opencti-sub001/vocabulary"
)

// Row is one raw result row. Values are keyed by logical field name and are
// always lists: the store does not decide cardinality, the per-field
// singularize map on the query does.
type Row map[string][]string

// IRI returns the row's subject reference, or "" when the row carries none.
// Rows without a resolvable reference are constraint violations dropped
// during list scans.
func (r Row) IRI() string {
	if v, ok := r[vocabulary.FieldIRI]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// First returns the first value of a field, or "" when absent.
func (r Row) First(field string) string {
	if v, ok := r[field]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether the field is present on the row.
func (r Row) Has(field string) bool {
	v, ok := r[field]
	return ok && len(v) > 0
}

// Triple is one stored fact: subject reference, predicate path, object value.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// ParentScope restricts a query to rows reachable from a parent entity via a
// relationship predicate.
type ParentScope struct {
	IRI       string `json:"iri"`
	Predicate string `json:"predicate"`
}

// SelectQuery is a compiled read query. Bind carries an inclusion set of
// references; when empty the query ranges over every row carrying one of the
// class markers.
type SelectQuery struct {
	EntityType    vocabulary.EntityType              `json:"entity_type"`
	ClassMarkers  []string                           `json:"class_markers,omitempty"`
	Fields        map[string]vocabulary.FieldBinding `json:"fields"`
	Expansions    map[string]vocabulary.Expansion    `json:"expansions,omitempty"`
	Bind          []string                           `json:"bind,omitempty"`
	Parent        *ParentScope                       `json:"parent,omitempty"`
	GroupByEntity bool                               `json:"group_by_entity,omitempty"`
	Singularize   map[string]bool                    `json:"singularize,omitempty"`
}

// StatementKind discriminates mutation statements.
type StatementKind int

const (
	// StatementInsert writes a new entity's triples
	StatementInsert StatementKind = iota
	// StatementDelete removes an entity's statement graph
	StatementDelete
	// StatementAttach adds relationship triples from an entity to targets
	StatementAttach
	// StatementDetach removes relationship triples from an entity to targets
	StatementDetach
	// StatementPatch applies a composite set of field operations to an entity
	StatementPatch
)

// String returns the string representation of the statement kind.
func (k StatementKind) String() string {
	switch k {
	case StatementInsert:
		return "insert"
	case StatementDelete:
		return "delete"
	case StatementAttach:
		return "attach"
	case StatementDetach:
		return "detach"
	case StatementPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// PatchAction is the per-field operation inside a patch statement.
type PatchAction int

const (
	// PatchAdd appends values to a predicate
	PatchAdd PatchAction = iota
	// PatchReplace replaces all values of a predicate
	PatchReplace
	// PatchRemove removes values (or the whole predicate when Values is empty)
	PatchRemove
)

// FieldOp is one field change within a patch statement.
type FieldOp struct {
	Predicate string      `json:"predicate"`
	Values    []string    `json:"values,omitempty"`
	Action    PatchAction `json:"action"`
}

// Statement is a compiled mutation. Exactly one of the payload sections is
// populated depending on Kind.
type Statement struct {
	Kind      StatementKind `json:"kind"`
	Ref       string        `json:"ref"`
	Triples   []Triple      `json:"triples,omitempty"`   // insert
	Predicate string        `json:"predicate,omitempty"` // attach/detach
	Targets   []string      `json:"targets,omitempty"`   // attach/detach
	Ops       []FieldOp     `json:"ops,omitempty"`       // patch
}

// Store executes compiled queries and mutation statements against the graph
// backend. Implementations map transport failures to the engine's typed error
// taxonomy so domain code sees only the happy path plus typed failures.
type Store interface {
	// Select runs a compiled read query and returns raw rows. References in
	// the inclusion set that no longer resolve are silently absent.
	Select(ctx context.Context, q *SelectQuery) ([]Row, error)

	// Execute applies one mutation statement. Multi-step mutations are issued
	// one statement at a time and are not transactional.
	Execute(ctx context.Context, stmt Statement) error
}
