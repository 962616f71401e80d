// Package vocabulary defines the predicate vocabulary and entity descriptors
// for the compliance graph. Every queryable entity type is described once, at
// startup, by an EntityDescriptor: its backend class markers, its field-to-
// predicate bindings, its natural-key fields, and its relationships to other
// entity types. The rest of the system is generic over these descriptors.
//
// Predicates use three-level dotted notation: domain.category.property
// (e.g. "risk.scoring.cvss3_base"). Descriptors are immutable after
// registration; lookups are therefore safe for concurrent use.
package vocabulary

import (
	"fmt"

	"github.com/champtc/opencti-sub001/errors"
)

// EntityType identifies a registered domain entity kind.
type EntityType string

// Registered entity types.
const (
	TypeAsset            EntityType = "asset"
	TypeRisk             EntityType = "risk"
	TypeObservation      EntityType = "observation"
	TypeCharacterization EntityType = "characterization"
	TypeOrigin           EntityType = "origin"
	TypeRemediation      EntityType = "remediation"
	TypeNote             EntityType = "note"
	TypeLabel            EntityType = "label"
	TypeMarking          EntityType = "marking"
	TypePOAMItem         EntityType = "poam-item"
)

// String returns the string representation of the entity type.
func (et EntityType) String() string {
	return string(et)
}

// IsValid checks if the EntityType is one of the registered constants.
func (et EntityType) IsValid() bool {
	switch et {
	case TypeAsset, TypeRisk, TypeObservation, TypeCharacterization,
		TypeOrigin, TypeRemediation, TypeNote, TypeLabel, TypeMarking,
		TypePOAMItem:
		return true
	default:
		return false
	}
}

// Tag returns the IRI type tag for this entity type (e.g. "Risk", "POAMItem").
// The tag forms part of every entity reference: <namespace>#<Tag>-<id>.
func (et EntityType) Tag() string {
	if tag, ok := typeTags[et]; ok {
		return tag
	}
	return ""
}

var typeTags = map[EntityType]string{
	TypeAsset:            "Asset",
	TypeRisk:             "Risk",
	TypeObservation:      "Observation",
	TypeCharacterization: "Characterization",
	TypeOrigin:           "Origin",
	TypeRemediation:      "Remediation",
	TypeNote:             "Note",
	TypeLabel:            "Label",
	TypeMarking:          "Marking",
	TypePOAMItem:         "POAMItem",
}

// TypeFromTag resolves an IRI type tag back to its entity type.
func TypeFromTag(tag string) (EntityType, bool) {
	for et, t := range typeTags {
		if t == tag {
			return et, true
		}
	}
	return "", false
}

// ValueKind describes how a bound field's values are encoded in the store.
type ValueKind int

const (
	// KindString is a plain string value
	KindString ValueKind = iota
	// KindDateTime is an RFC 3339 timestamp string
	KindDateTime
	// KindBoolean is "true"/"false"
	KindBoolean
	// KindNumber is a decimal number string
	KindNumber
	// KindIRI is a reference to another entity
	KindIRI
)

// String returns the string representation of the value kind.
func (vk ValueKind) String() string {
	switch vk {
	case KindString:
		return "string"
	case KindDateTime:
		return "datetime"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindIRI:
		return "iri"
	default:
		return "unknown"
	}
}

// FieldBinding maps one logical field name to its storage predicate.
type FieldBinding struct {
	// Predicate is the dotted storage predicate path
	Predicate string
	// Multi marks the field as multi-valued (list cardinality)
	Multi bool
	// Kind is the value encoder for this field
	Kind ValueKind
	// Optional marks fields that may be absent on a well-formed entity
	Optional bool
	// Default, when non-empty, is injected for absent boolean fields during
	// reduction so callers always see an explicit value
	Default string
}

// Expansion declares how a multi-valued facet field is materialized onto an
// entity's row: follow the Via relation predicate to each facet subject, then
// collect the Source predicate's values. Facet subjects are visited in
// deterministic (sorted reference) order so parallel expansions of the same
// Via relation stay index-aligned.
type Expansion struct {
	Via    string
	Source string
}

// Field names shared by every entity type. The query compiler always augments
// a caller's selection with FieldID and FieldEntityType; the edit engine
// protects FieldID and FieldCreated and stamps FieldModified itself.
const (
	FieldID         = "id"
	FieldEntityType = "entity_type"
	FieldCreated    = "created"
	FieldModified   = "modified"
	FieldIRI        = "iri"
)

// Derived field names resolved by the engine rather than stored directly.
const (
	FieldRiskLevel    = "risk_level"
	FieldRiskScore    = "risk_score"
	FieldOccurrences  = "occurrences"
	FieldResponseType = "response_type"
	FieldLifecycle    = "lifecycle"
)

// EntityDescriptor is the per-entity-type schema entry. Descriptors are
// constructed once at startup and never mutated afterwards.
type EntityDescriptor struct {
	// Type is the entity type tag this descriptor covers
	Type EntityType

	// ClassMarkers are the backend class IRIs rows of this type carry
	ClassMarkers []string

	// Bindings maps field names to their storage predicates
	Bindings map[string]FieldBinding

	// NaturalKeys lists the fields whose values determine the entity's
	// deterministic identifier
	NaturalKeys []string

	// ParentScopes maps a parent entity type to the relationship predicate
	// used to restrict list queries to rows reachable from that parent
	ParentScopes map[EntityType]string

	// SortAliases maps logical sort keys onto the underlying stored field
	// actually sorted on (e.g. "risk_level" sorts by "risk_score")
	SortAliases map[string]string

	// Owned maps collection fields to the child entity type whose lifecycle
	// this entity controls (created and deleted with the parent)
	Owned map[string]EntityType

	// Referenced maps collection fields to shared entity types that are only
	// attached and detached, never created or deleted, by this entity
	Referenced map[string]EntityType

	// Enums lists the accepted values for enum-constrained fields
	Enums map[string][]string

	// Derived maps engine-computed field names to the raw facet fields they
	// consume; raw fields are fetched but excluded from the final projection
	Derived map[string][]string

	// Expansions materialize facet predicates onto this entity's row
	Expansions map[string]Expansion
}

// Binding looks up a field binding, failing fast with a configuration error
// for unregistered fields.
func (d *EntityDescriptor) Binding(field string) (FieldBinding, error) {
	if b, ok := d.Bindings[field]; ok {
		return b, nil
	}
	return FieldBinding{}, errors.WrapFatal(
		fmt.Errorf("%w: %s.%s", errors.ErrUnknownField, d.Type, field),
		"EntityDescriptor", "Binding", "field lookup")
}

// HasField reports whether the field is bound for this entity type.
func (d *EntityDescriptor) HasField(field string) bool {
	_, ok := d.Bindings[field]
	return ok
}

// ScopePredicate returns the relationship predicate scoping this entity type
// under the given parent type.
func (d *EntityDescriptor) ScopePredicate(parent EntityType) (string, error) {
	if p, ok := d.ParentScopes[parent]; ok {
		return p, nil
	}
	return "", errors.WrapInvalid(
		fmt.Errorf("%w: no scope from %s to %s", errors.ErrUnknownField, parent, d.Type),
		"EntityDescriptor", "ScopePredicate", "parent scope lookup")
}

// SortField resolves a logical sort key through the descriptor's alias table.
// Unaliased keys map to themselves.
func (d *EntityDescriptor) SortField(key string) string {
	if alias, ok := d.SortAliases[key]; ok {
		return alias
	}
	return key
}

// CollectionTarget returns the target entity type of an owned or referenced
// collection field, and whether the collection is owned.
func (d *EntityDescriptor) CollectionTarget(field string) (EntityType, bool, bool) {
	if et, ok := d.Owned[field]; ok {
		return et, true, true
	}
	if et, ok := d.Referenced[field]; ok {
		return et, false, true
	}
	return "", false, false
}

// IsSimpleScalar reports whether the field holds a single non-reference value.
// Edits to simple scalars downgrade to a skip when the value is unchanged.
func (d *EntityDescriptor) IsSimpleScalar(field string) bool {
	b, ok := d.Bindings[field]
	if !ok {
		return false
	}
	return !b.Multi && b.Kind != KindIRI
}

// ValidateEnum checks a proposed value against the field's declared enum.
// Fields without a declared enum accept any value.
func (d *EntityDescriptor) ValidateEnum(field, value string) error {
	allowed, ok := d.Enums[field]
	if !ok {
		return nil
	}
	for _, v := range allowed {
		if v == value {
			return nil
		}
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %q not in enum for %s.%s", errors.ErrInvalidFieldValue, value, d.Type, field),
		"EntityDescriptor", "ValidateEnum", "enum validation")
}
