package engine

import (
	"fmt"
	"strconv"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// reduce turns one raw row into an Entity. The row must carry a resolvable
// reference; its kind comes from the entity_type field when present and is
// inferred from the reference otherwise, so rows written before the type
// predicate existed still reduce. Fields convert per their binding kind;
// reference fields become "<field>_iri" hint lists; absent boolean fields
// with a declared default are injected. Skip names raw facet fields excluded
// from the projection.
func (e *Engine) reduce(row storage.Row, skip []string) (Entity, error) {
	iri := row.IRI()
	if iri == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: row has no reference", errors.ErrConstraintViolation),
			"Engine", "reduce", "row validation")
	}

	et := vocabulary.EntityType(row.First(vocabulary.FieldEntityType))
	if !et.IsValid() {
		inferred, ok := vocabulary.InferType(iri)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: cannot infer kind of %s", errors.ErrConstraintViolation, iri),
				"Engine", "reduce", "kind inference")
		}
		et = inferred
	}
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return nil, err
	}

	skipSet := make(map[string]bool, len(skip))
	for _, f := range skip {
		skipSet[f] = true
	}

	ent := Entity{
		vocabulary.FieldIRI:        iri,
		vocabulary.FieldEntityType: string(et),
	}

	for field, values := range row {
		if field == vocabulary.FieldIRI || field == vocabulary.FieldEntityType {
			continue
		}
		if skipSet[field] || len(values) == 0 {
			continue
		}
		if kind, ok := derivedKinds[field]; ok {
			ent[field] = convertScalar(kind, values[0])
			continue
		}
		binding, err := desc.Binding(field)
		if err != nil {
			return nil, err
		}
		if binding.Kind == vocabulary.KindIRI {
			ent[field+RefHintSuffix] = append([]string(nil), values...)
			continue
		}
		if binding.Multi {
			ent[field] = append([]string(nil), values...)
			continue
		}
		ent[field] = convertScalar(binding.Kind, values[0])
	}

	// Booleans with a declared default always reach the caller explicit.
	for field, binding := range desc.Bindings {
		if binding.Default == "" {
			continue
		}
		if _, present := ent[field]; !present {
			ent[field] = convertScalar(binding.Kind, binding.Default)
		}
	}

	if e.metrics != nil {
		e.metrics.RecordRowsReduced(1)
	}
	return ent, nil
}

// derivedKinds gives the reducer conversion rules for engine-computed fields,
// which have no storage binding.
var derivedKinds = map[string]vocabulary.ValueKind{
	vocabulary.FieldRiskLevel:    vocabulary.KindString,
	vocabulary.FieldRiskScore:    vocabulary.KindNumber,
	vocabulary.FieldOccurrences:  vocabulary.KindNumber,
	vocabulary.FieldResponseType: vocabulary.KindString,
	vocabulary.FieldLifecycle:    vocabulary.KindString,
}

func convertScalar(kind vocabulary.ValueKind, value string) any {
	switch kind {
	case vocabulary.KindBoolean:
		return value == "true"
	case vocabulary.KindNumber:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	default:
		return value
	}
}
