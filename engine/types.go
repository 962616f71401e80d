package engine

import (
	"github.com/champtc/opencti-sub001/vocabulary"
)

// OrderMode controls sort direction for list queries.
type OrderMode int

const (
	// OrderAsc sorts ascending
	OrderAsc OrderMode = iota
	// OrderDesc sorts descending
	OrderDesc
)

// FilterMode combines multiple filters, or multiple values within one filter.
type FilterMode int

const (
	// FilterAnd requires every filter (or value) to match
	FilterAnd FilterMode = iota
	// FilterOr requires at least one filter (or value) to match
	FilterOr
)

// FilterOp is the comparison applied by one filter.
type FilterOp string

// Supported filter operators. Comparisons are numeric when both sides parse
// as numbers, lexical otherwise (RFC 3339 timestamps compare correctly
// either way).
const (
	FilterEq       FilterOp = "eq"
	FilterNe       FilterOp = "ne"
	FilterGt       FilterOp = "gt"
	FilterGte      FilterOp = "gte"
	FilterLt       FilterOp = "lt"
	FilterLte      FilterOp = "lte"
	FilterContains FilterOp = "contains"
)

// Filter narrows a list query on one field. A row matches when its field
// values satisfy Op against Values under Mode.
type Filter struct {
	Key    string
	Op     FilterOp
	Values []string
	Mode   FilterMode
}

// ParentRef scopes a list query to entities reachable from one parent.
type ParentRef struct {
	Type vocabulary.EntityType
	IRI  string
}

// QueryArgs carries the caller-facing shape of a list or bulk query.
type QueryArgs struct {
	// Select lists the requested field names; id and entity_type are always
	// fetched regardless
	Select []string

	// Filters are applied after offset consumption and do not consume limit
	Filters    []Filter
	FilterMode FilterMode

	// Search matches rows whose string values contain the term
	Search string

	// OrderedBy names a sort key, resolved through the descriptor's alias
	// table; empty means store order
	OrderedBy string
	OrderMode OrderMode

	// First caps the number of edges returned; nil means all
	First *int
	// Offset skips rows before emission begins; nil means none
	Offset *int

	Parent *ParentRef
}

// Entity is one reduced result object. Scalar fields hold string, bool,
// float64 or int values per their binding kind; reference fields appear
// under "<field>_iri" keys as []string hints for the caller to resolve.
type Entity map[string]any

// IRI returns the entity's reference, or "" when absent.
func (e Entity) IRI() string {
	if v, ok := e[vocabulary.FieldIRI].(string); ok {
		return v
	}
	return ""
}

// ID returns the entity's identifier, or "" when absent.
func (e Entity) ID() string {
	if v, ok := e[vocabulary.FieldID].(string); ok {
		return v
	}
	return ""
}

// RefHints returns the unresolved reference list for a collection field.
func (e Entity) RefHints(field string) []string {
	if v, ok := e[field+RefHintSuffix].([]string); ok {
		return v
	}
	return nil
}

// RefHintSuffix marks reduced reference fields that carry raw IRIs for the
// caller to resolve in bulk.
const RefHintSuffix = "_iri"

// Edge pairs a reduced entity with its pagination cursor (the entity IRI).
type Edge struct {
	Cursor string
	Node   Entity
}

// PageInfo describes a connection's position within the full result set.
type PageInfo struct {
	StartCursor     string
	EndCursor       string
	HasNextPage     bool
	HasPreviousPage bool
	GlobalCount     int
}

// Connection is one page of list or bulk results.
type Connection struct {
	PageInfo PageInfo
	Edges    []Edge
}

// Operation is the per-field action of an edit. Callers may leave it unset
// and let the engine infer it from the snapshot.
type Operation string

const (
	// OperationUnset asks the engine to infer add, replace or remove
	OperationUnset Operation = ""
	// OperationAdd appends values to the field
	OperationAdd Operation = "add"
	// OperationReplace replaces the field's values
	OperationReplace Operation = "replace"
	// OperationRemove removes values, or the whole field when none are given
	OperationRemove Operation = "remove"
	// OperationSkip is the internal downgrade for no-op edits
	OperationSkip Operation = "skip"
)

// EditInput is one requested field change.
type EditInput struct {
	Key       string
	Values    []string
	Operation Operation
}

// CreateInput is the caller-facing shape of a create. Owned children are
// created recursively with the parent; references are resolved by id and
// attached only.
type CreateInput struct {
	// Fields maps scalar field names to their values
	Fields map[string][]string

	// Owned maps owned collection fields to nested child inputs
	Owned map[string][]*CreateInput

	// References maps referenced collection fields to existing entity ids
	References map[string][]string
}
