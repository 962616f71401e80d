package vocabulary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/champtc/opencti-sub001/errors"
)

// DefaultNamespace is the base namespace entity references are minted under
// when no platform namespace is configured.
const DefaultNamespace = "https://graph.champtc.io/vulnerability"

// idNamespace seeds deterministic identifier derivation. Recreating an entity
// with identical natural-key fields must yield the identical id.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DefaultNamespace))

// DeterministicID derives an entity identifier from its natural-key field
// values. The id is a UUIDv5 over a canonical serialization of the natural
// keys, so identity is a pure function of the defining fields: two create
// calls with the same natural key collide rather than duplicating.
func DeterministicID(et EntityType, naturalKey map[string][]string) (string, error) {
	if len(naturalKey) == 0 {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: no natural-key fields for %s", errors.ErrNoInputSupplied, et),
			"vocabulary", "DeterministicID", "identifier derivation")
	}

	fields := make([]string, 0, len(naturalKey))
	for field := range naturalKey {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(string(et))
	for _, field := range fields {
		values := append([]string(nil), naturalKey[field]...)
		sort.Strings(values)
		b.WriteByte('\n')
		b.WriteString(field)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, "\x1f"))
	}

	return uuid.NewSHA1(idNamespace, []byte(b.String())).String(), nil
}

// IRI derives the storage reference for an entity: <namespace>#<Tag>-<id>.
// References are never user-supplied.
func IRI(namespace string, et EntityType, id string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf("%s#%s-%s", namespace, et.Tag(), id)
}

// ParseIRI splits a storage reference back into its entity type and id.
// Returns ErrInvalidIdentifier for references that do not match the
// <namespace>#<Tag>-<id> shape.
func ParseIRI(iri string) (EntityType, string, error) {
	frag := iri
	if idx := strings.LastIndexByte(iri, '#'); idx >= 0 {
		frag = iri[idx+1:]
	} else {
		return "", "", invalidIRI(iri)
	}

	// The id is a UUID and contains hyphens; the tag is everything before
	// the first hyphen.
	sep := strings.IndexByte(frag, '-')
	if sep <= 0 || sep == len(frag)-1 {
		return "", "", invalidIRI(iri)
	}

	tag := frag[:sep]
	id := frag[sep+1:]

	et, ok := TypeFromTag(tag)
	if !ok {
		return "", "", invalidIRI(iri)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", invalidIRI(iri)
	}
	return et, id, nil
}

// InferType infers an entity type from a storage reference. It first tries
// the strict tag parse, then falls back to scanning the reference for a type
// tag substring. The fallback exists because some legacy rows never populated
// entity_type explicitly and their references predate the strict shape.
func InferType(iri string) (EntityType, bool) {
	if et, _, err := ParseIRI(iri); err == nil {
		return et, true
	}

	// Longest tag first so e.g. "POAMItem" wins over shorter matches, and the
	// scan order stays deterministic.
	tags := make([]EntityType, 0, len(typeTags))
	for et := range typeTags {
		tags = append(tags, et)
	}
	sort.Slice(tags, func(i, j int) bool {
		if len(typeTags[tags[i]]) != len(typeTags[tags[j]]) {
			return len(typeTags[tags[i]]) > len(typeTags[tags[j]])
		}
		return tags[i] < tags[j]
	})

	lowered := strings.ToLower(iri)
	for _, et := range tags {
		if strings.Contains(lowered, strings.ToLower(typeTags[et])) {
			return et, true
		}
	}
	return "", false
}

// ValidateID checks the shape of a caller-supplied identifier.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrInvalidIdentifier, id),
			"vocabulary", "ValidateID", "identifier validation")
	}
	return nil
}

func invalidIRI(iri string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: reference %q", errors.ErrInvalidIdentifier, iri),
		"vocabulary", "ParseIRI", "reference parsing")
}
