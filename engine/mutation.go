package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// Create writes a new entity. Its identifier is derived deterministically
// from the natural-key fields, so creating the same logical entity twice is
// rejected as a duplicate before anything is written. Owned children in the
// input are created recursively and attached to the parent; references are
// resolved by id and attached only. Multi-statement creates are not
// transactional.
func (e *Engine) Create(ctx context.Context, et vocabulary.EntityType, input *CreateInput) (Entity, error) {
	start := e.now()
	ent, err := e.create(ctx, et, input)
	e.recordMutation(storage.StatementInsert, et, start, err)
	return ent, err
}

func (e *Engine) create(ctx context.Context, et vocabulary.EntityType, input *CreateInput) (Entity, error) {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return nil, err
	}
	if input == nil || len(input.Fields) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: create %s", errors.ErrNoInputSupplied, et),
			"Engine", "Create", "input validation")
	}

	id, iri, err := e.identify(desc, input.Fields)
	if err != nil {
		return nil, err
	}

	// Duplicate detection happens before any write so a rejected create
	// leaves no partial state behind.
	exists, err := e.Exists(ctx, et, iri)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDuplicateEntity, iri),
			"Engine", "Create", "duplicate detection")
	}

	triples, err := e.insertTriples(desc, iri, id, input.Fields)
	if err != nil {
		return nil, err
	}
	if err := e.store.Execute(ctx, storage.Statement{
		Kind:    storage.StatementInsert,
		Ref:     iri,
		Triples: triples,
	}); err != nil {
		return nil, err
	}

	if err := e.createOwned(ctx, desc, iri, input.Owned); err != nil {
		return nil, err
	}
	if err := e.attachReferences(ctx, desc, iri, input.References); err != nil {
		return nil, err
	}

	return e.getByIRI(ctx, desc, iri, e.projection(desc))
}

// identify derives the deterministic identifier and reference from the
// input's natural-key fields.
func (e *Engine) identify(desc *vocabulary.EntityDescriptor, fields map[string][]string) (id, iri string, err error) {
	naturalKey := make(map[string][]string, len(desc.NaturalKeys))
	for _, nk := range desc.NaturalKeys {
		values, ok := fields[nk]
		if !ok || len(values) == 0 {
			return "", "", errors.WrapInvalid(
				fmt.Errorf("%w: natural key %s.%s missing", errors.ErrInvalidFieldValue, desc.Type, nk),
				"Engine", "identify", "natural key collection")
		}
		naturalKey[nk] = values
	}
	id, err = vocabulary.DeterministicID(desc.Type, naturalKey)
	if err != nil {
		return "", "", err
	}
	return id, vocabulary.IRI(e.namespace, desc.Type, id), nil
}

// insertTriples compiles the scalar fields of a create into triples, adding
// the class markers and the engine-stamped identity and lifecycle fields.
// Caller-supplied values for those protected fields are ignored.
func (e *Engine) insertTriples(desc *vocabulary.EntityDescriptor, iri, id string, fields map[string][]string) ([]storage.Triple, error) {
	now := e.now().UTC().Format(time.RFC3339)

	var triples []storage.Triple
	for _, marker := range desc.ClassMarkers {
		triples = append(triples, storage.Triple{Subject: iri, Predicate: storage.PredClass, Object: marker})
	}
	triples = append(triples,
		storage.Triple{Subject: iri, Predicate: vocabulary.PredID, Object: id},
		storage.Triple{Subject: iri, Predicate: vocabulary.PredType, Object: string(desc.Type)},
		storage.Triple{Subject: iri, Predicate: vocabulary.PredCreated, Object: now},
		storage.Triple{Subject: iri, Predicate: vocabulary.PredModified, Object: now},
	)

	for field, values := range fields {
		if protectedField(field) {
			continue
		}
		binding, err := desc.Binding(field)
		if err != nil {
			return nil, err
		}
		if binding.Kind == vocabulary.KindIRI {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s.%s is a collection, use owned or reference inputs",
					errors.ErrInvalidFieldValue, desc.Type, field),
				"Engine", "Create", "field compilation")
		}
		for _, v := range values {
			if err := desc.ValidateEnum(field, v); err != nil {
				return nil, err
			}
			triples = append(triples, storage.Triple{Subject: iri, Predicate: binding.Predicate, Object: v})
		}
	}
	return triples, nil
}

func (e *Engine) createOwned(ctx context.Context, desc *vocabulary.EntityDescriptor, iri string, owned map[string][]*CreateInput) error {
	for field, children := range owned {
		childType, isOwned := desc.Owned[field]
		if !isOwned {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s.%s is not an owned collection", errors.ErrInvalidFieldValue, desc.Type, field),
				"Engine", "Create", "owned collection check")
		}
		binding, err := desc.Binding(field)
		if err != nil {
			return err
		}
		for _, childInput := range children {
			child, err := e.create(ctx, childType, childInput)
			if err != nil {
				return err
			}
			if err := e.store.Execute(ctx, storage.Statement{
				Kind:      storage.StatementAttach,
				Ref:       iri,
				Predicate: binding.Predicate,
				Targets:   []string{child.IRI()},
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) attachReferences(ctx context.Context, desc *vocabulary.EntityDescriptor, iri string, refs map[string][]string) error {
	for field, ids := range refs {
		targets, err := e.resolveTargets(ctx, desc, field, ids, true)
		if err != nil {
			return err
		}
		binding, err := desc.Binding(field)
		if err != nil {
			return err
		}
		if err := e.store.Execute(ctx, storage.Statement{
			Kind:      storage.StatementAttach,
			Ref:       iri,
			Predicate: binding.Predicate,
			Targets:   targets,
		}); err != nil {
			return err
		}
	}
	return nil
}

// resolveTargets maps target ids of a collection field to references,
// optionally verifying each target exists.
func (e *Engine) resolveTargets(ctx context.Context, desc *vocabulary.EntityDescriptor, field string, ids []string, verify bool) ([]string, error) {
	targetType, _, ok := desc.CollectionTarget(field)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s is not a collection", errors.ErrInvalidFieldValue, desc.Type, field),
			"Engine", "resolveTargets", "collection check")
	}
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := vocabulary.ValidateID(id); err != nil {
			return nil, err
		}
		target := vocabulary.IRI(e.namespace, targetType, id)
		if verify {
			exists, err := e.Exists(ctx, targetType, target)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, errors.NotFound("Engine", "resolveTargets", target)
			}
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Delete removes an entity, its owned children recursively, and its outbound
// reference attachments. Missing entities report a not-found error.
func (e *Engine) Delete(ctx context.Context, et vocabulary.EntityType, id string) error {
	start := e.now()
	err := e.delete(ctx, et, id)
	e.recordMutation(storage.StatementDelete, et, start, err)
	return err
}

func (e *Engine) delete(ctx context.Context, et vocabulary.EntityType, id string) error {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return err
	}
	if err := vocabulary.ValidateID(id); err != nil {
		return err
	}
	return e.deleteByIRI(ctx, desc, vocabulary.IRI(e.namespace, et, id))
}

func (e *Engine) deleteByIRI(ctx context.Context, desc *vocabulary.EntityDescriptor, iri string) error {
	collections := make([]string, 0, len(desc.Owned)+len(desc.Referenced))
	for field := range desc.Owned {
		collections = append(collections, field)
	}
	for field := range desc.Referenced {
		collections = append(collections, field)
	}

	plan, err := e.compile(desc, collections, nil)
	if err != nil {
		return err
	}
	plan.query.Bind = []string{iri}
	rows, err := e.store.Select(ctx, plan.query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NotFound("Engine", "Delete", iri)
	}
	row := rows[0]

	// Owned children go down with the parent; referenced entities are only
	// detached and survive.
	for field, childType := range desc.Owned {
		childDesc, err := e.registry.Lookup(childType)
		if err != nil {
			return err
		}
		for _, childIRI := range row[field] {
			if err := e.deleteByIRI(ctx, childDesc, childIRI); err != nil && !errors.IsNotFound(err) {
				return err
			}
		}
	}
	for field := range desc.Referenced {
		targets := row[field]
		if len(targets) == 0 {
			continue
		}
		binding, err := desc.Binding(field)
		if err != nil {
			return err
		}
		if err := e.store.Execute(ctx, storage.Statement{
			Kind:      storage.StatementDetach,
			Ref:       iri,
			Predicate: binding.Predicate,
			Targets:   targets,
		}); err != nil {
			return err
		}
	}

	return e.store.Execute(ctx, storage.Statement{
		Kind: storage.StatementDelete,
		Ref:  iri,
	})
}

// Attach links existing entities into a collection field by id.
func (e *Engine) Attach(ctx context.Context, et vocabulary.EntityType, id, field string, targetIDs []string) error {
	start := e.now()
	err := e.attach(ctx, et, id, field, targetIDs, storage.StatementAttach)
	e.recordMutation(storage.StatementAttach, et, start, err)
	return err
}

// Detach unlinks entities from a collection field by id. The targets
// themselves are untouched.
func (e *Engine) Detach(ctx context.Context, et vocabulary.EntityType, id, field string, targetIDs []string) error {
	start := e.now()
	err := e.attach(ctx, et, id, field, targetIDs, storage.StatementDetach)
	e.recordMutation(storage.StatementDetach, et, start, err)
	return err
}

func (e *Engine) attach(ctx context.Context, et vocabulary.EntityType, id, field string, targetIDs []string, kind storage.StatementKind) error {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return err
	}
	if err := vocabulary.ValidateID(id); err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no targets for %s.%s", errors.ErrNoInputSupplied, et, field),
			"Engine", kind.String(), "input validation")
	}
	iri := vocabulary.IRI(e.namespace, et, id)
	exists, err := e.Exists(ctx, et, iri)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound("Engine", kind.String(), iri)
	}

	// Attach verifies targets resolve; detach tolerates already-gone ones.
	targets, err := e.resolveTargets(ctx, desc, field, targetIDs, kind == storage.StatementAttach)
	if err != nil {
		return err
	}
	binding, err := desc.Binding(field)
	if err != nil {
		return err
	}
	return e.store.Execute(ctx, storage.Statement{
		Kind:      kind,
		Ref:       iri,
		Predicate: binding.Predicate,
		Targets:   targets,
	})
}

// projection lists every non-intermediate field of a descriptor, used to
// return complete entities from mutations.
func (e *Engine) projection(desc *vocabulary.EntityDescriptor) []string {
	intermediate := make(map[string]bool)
	for _, raws := range desc.Derived {
		for _, raw := range raws {
			intermediate[raw] = true
		}
	}
	fields := make([]string, 0, len(desc.Bindings))
	for field := range desc.Bindings {
		if !intermediate[field] {
			fields = append(fields, field)
		}
	}
	return fields
}

func protectedField(field string) bool {
	switch field {
	case vocabulary.FieldID, vocabulary.FieldEntityType,
		vocabulary.FieldCreated, vocabulary.FieldModified, vocabulary.FieldIRI:
		return true
	}
	return false
}

func (e *Engine) recordMutation(kind storage.StatementKind, et vocabulary.EntityType, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.IsNotFound(err):
		status = "not_found"
	case errors.IsInvalid(err):
		status = "invalid"
	case err != nil:
		status = "error"
	}
	e.metrics.RecordMutation(kind.String(), string(et), status)
	e.metrics.RecordMutationDuration(kind.String(), string(et), e.now().Sub(start))
}
