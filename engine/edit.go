package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// Edit applies field changes to an existing entity as one patch statement.
// The engine snapshots the current values of the edited fields first and
// infers the operation for any edit that does not name one: no values means
// remove, an absent field means add, a present one means replace. Edits that
// would not change a simple scalar downgrade to a skip. The identifier and
// creation timestamp cannot be edited; the modification timestamp is stamped
// by the engine on every successful edit, and an entity missing its creation
// timestamp has one backfilled at the same time.
func (e *Engine) Edit(ctx context.Context, et vocabulary.EntityType, id string, edits []EditInput) (Entity, error) {
	start := e.now()
	ent, err := e.edit(ctx, et, id, edits)
	e.recordMutation(storage.StatementPatch, et, start, err)
	return ent, err
}

func (e *Engine) edit(ctx context.Context, et vocabulary.EntityType, id string, edits []EditInput) (Entity, error) {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return nil, err
	}
	if err := vocabulary.ValidateID(id); err != nil {
		return nil, err
	}
	if len(edits) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: edit %s", errors.ErrNoInputSupplied, et),
			"Engine", "Edit", "input validation")
	}

	// Immutable fields are stripped silently rather than rejected, so a
	// caller echoing a whole object back does not fail.
	kept := make([]EditInput, 0, len(edits))
	for _, edit := range edits {
		if protectedField(edit.Key) {
			continue
		}
		kept = append(kept, edit)
	}
	if len(kept) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: only immutable fields named", errors.ErrNoInputSupplied),
			"Engine", "Edit", "input validation")
	}

	iri := vocabulary.IRI(e.namespace, et, id)
	snapshot, err := e.snapshot(ctx, desc, iri, kept)
	if err != nil {
		return nil, err
	}

	ops, err := e.compileEdits(ctx, desc, snapshot, kept)
	if err != nil {
		return nil, err
	}

	stamp := e.now().UTC().Format(time.RFC3339)

	// Rows written outside the engine may lack a creation timestamp;
	// backfill it so lifecycle fields converge on edit.
	if !snapshot.Has(vocabulary.FieldCreated) {
		createdBinding, err := desc.Binding(vocabulary.FieldCreated)
		if err != nil {
			return nil, err
		}
		ops = append(ops, storage.FieldOp{
			Predicate: createdBinding.Predicate,
			Values:    []string{stamp},
			Action:    storage.PatchAdd,
		})
	}

	// Stamp modified regardless of what the caller asked for.
	modifiedBinding, err := desc.Binding(vocabulary.FieldModified)
	if err != nil {
		return nil, err
	}
	ops = append(ops, storage.FieldOp{
		Predicate: modifiedBinding.Predicate,
		Values:    []string{stamp},
		Action:    storage.PatchReplace,
	})

	if err := e.store.Execute(ctx, storage.Statement{
		Kind: storage.StatementPatch,
		Ref:  iri,
		Ops:  ops,
	}); err != nil {
		return nil, err
	}

	return e.getByIRI(ctx, desc, iri, e.projection(desc))
}

// snapshot fetches the current values of the edited fields, plus the
// creation timestamp so a missing one can be backfilled. A missing entity
// fails here, before any operation is compiled.
func (e *Engine) snapshot(ctx context.Context, desc *vocabulary.EntityDescriptor, iri string, edits []EditInput) (storage.Row, error) {
	fields := make([]string, 0, len(edits)+1)
	for _, edit := range edits {
		fields = append(fields, edit.Key)
	}
	fields = append(fields, vocabulary.FieldCreated)
	plan, err := e.compile(desc, fields, nil)
	if err != nil {
		return nil, err
	}
	plan.query.Bind = []string{iri}

	rows, err := e.store.Select(ctx, plan.query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Engine", "Edit", iri)
	}
	return rows[0], nil
}

// compileEdits turns the edit list into patch operations. Skips are dropped;
// reference fields have their target ids resolved and verified first.
func (e *Engine) compileEdits(ctx context.Context, desc *vocabulary.EntityDescriptor, snapshot storage.Row, edits []EditInput) ([]storage.FieldOp, error) {
	var ops []storage.FieldOp
	for _, edit := range edits {
		binding, err := desc.Binding(edit.Key)
		if err != nil {
			return nil, err
		}

		values := edit.Values
		if binding.Kind == vocabulary.KindIRI && len(values) > 0 {
			values, err = e.resolveTargets(ctx, desc, edit.Key, values, true)
			if err != nil {
				return nil, err
			}
		}
		for _, v := range values {
			if err := desc.ValidateEnum(edit.Key, v); err != nil {
				return nil, err
			}
		}

		op := edit.Operation
		if op == OperationUnset {
			op = inferOperation(snapshot.Has(edit.Key), values)
		}
		if op == OperationSkip {
			continue
		}
		// Replacing a simple scalar with its current value is a no-op.
		if op == OperationReplace && desc.IsSimpleScalar(edit.Key) &&
			len(values) == 1 && snapshot.First(edit.Key) == values[0] {
			continue
		}

		action, err := patchAction(op)
		if err != nil {
			return nil, err
		}
		ops = append(ops, storage.FieldOp{
			Predicate: binding.Predicate,
			Values:    values,
			Action:    action,
		})
	}
	return ops, nil
}

// inferOperation decides what an unset edit means: empty values remove the
// field, values on an absent field add, values on a present field replace.
// The inference is total; every input maps to an operation.
func inferOperation(present bool, values []string) Operation {
	if len(values) == 0 {
		return OperationRemove
	}
	if !present {
		return OperationAdd
	}
	return OperationReplace
}

func patchAction(op Operation) (storage.PatchAction, error) {
	switch op {
	case OperationAdd:
		return storage.PatchAdd, nil
	case OperationReplace:
		return storage.PatchReplace, nil
	case OperationRemove:
		return storage.PatchRemove, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: operation %q", errors.ErrInvalidFieldValue, op),
			"Engine", "Edit", "operation mapping")
	}
}
