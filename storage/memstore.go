package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// PredClass is the predicate class-marker triples are stored under.
const PredClass = "core.meta.class"

// MemStore is an in-memory triple store implementing Store. It backs local
// mode and the engine's tests. All operations are safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	subjects map[string]map[string][]string // subject -> predicate -> objects
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(logger *slog.Logger) *MemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemStore{
		logger:   logger.With("component", "memstore"),
		subjects: make(map[string]map[string][]string),
	}
}

// Select implements Store.
func (s *MemStore) Select(ctx context.Context, q *SelectQuery) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "MemStore", "Select", "context check")
	}
	if q == nil || len(q.Fields) == 0 {
		return nil, errors.WrapInvalid(errors.ErrQueryRejected, "MemStore", "Select", "empty query")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidateSubjects(q)

	rows := make([]Row, 0, len(candidates))
	for _, subject := range candidates {
		preds := s.subjects[subject]
		row := Row{vocabulary.FieldIRI: []string{subject}}

		for field, binding := range q.Fields {
			var values []string
			if exp, ok := q.Expansions[field]; ok {
				values = s.expand(subject, exp)
			} else {
				values = preds[binding.Predicate]
			}
			if len(values) == 0 {
				continue
			}
			out := append([]string(nil), values...)
			if q.Singularize[field] && len(out) > 1 {
				out = out[:1]
			}
			row[field] = out
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// candidateSubjects resolves the query's range: an explicit inclusion set, a
// parent-scoped traversal, or the full extent of the class markers. Results
// are in sorted order so repeated queries iterate deterministically.
func (s *MemStore) candidateSubjects(q *SelectQuery) []string {
	var candidates []string

	switch {
	case len(q.Bind) > 0:
		for _, ref := range q.Bind {
			if _, ok := s.subjects[ref]; ok {
				candidates = append(candidates, ref)
			}
		}
	case q.Parent != nil:
		parent, ok := s.subjects[q.Parent.IRI]
		if !ok {
			return nil
		}
		for _, ref := range parent[q.Parent.Predicate] {
			if _, ok := s.subjects[ref]; ok {
				candidates = append(candidates, ref)
			}
		}
	default:
		for subject, preds := range s.subjects {
			if matchesClass(preds[PredClass], q.ClassMarkers) {
				candidates = append(candidates, subject)
			}
		}
	}

	sort.Strings(candidates)
	return candidates
}

// expand follows the Via relation to each facet subject in sorted order and
// collects the Source predicate's values. Sorted traversal keeps parallel
// expansions of the same relation index-aligned.
func (s *MemStore) expand(subject string, exp vocabulary.Expansion) []string {
	facets := append([]string(nil), s.subjects[subject][exp.Via]...)
	sort.Strings(facets)

	var values []string
	for _, facet := range facets {
		if preds, ok := s.subjects[facet]; ok {
			values = append(values, preds[exp.Source]...)
		}
	}
	return values
}

func matchesClass(classes, markers []string) bool {
	if len(markers) == 0 {
		return len(classes) > 0
	}
	for _, c := range classes {
		for _, m := range markers {
			if c == m {
				return true
			}
		}
	}
	return false
}

// Execute implements Store.
func (s *MemStore) Execute(ctx context.Context, stmt Statement) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "MemStore", "Execute", "context check")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch stmt.Kind {
	case StatementInsert:
		return s.applyInsert(stmt)
	case StatementDelete:
		return s.applyDelete(stmt)
	case StatementAttach:
		return s.applyAttach(stmt)
	case StatementDetach:
		return s.applyDetach(stmt)
	case StatementPatch:
		return s.applyPatch(stmt)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: statement kind %d", errors.ErrQueryRejected, stmt.Kind),
			"MemStore", "Execute", "statement dispatch")
	}
}

func (s *MemStore) applyInsert(stmt Statement) error {
	if stmt.Ref == "" {
		return errors.WrapInvalid(errors.ErrQueryRejected, "MemStore", "Execute", "insert without ref")
	}
	preds, ok := s.subjects[stmt.Ref]
	if !ok {
		preds = make(map[string][]string)
		s.subjects[stmt.Ref] = preds
	}
	for _, t := range stmt.Triples {
		preds[t.Predicate] = appendUnique(preds[t.Predicate], t.Object)
	}
	return nil
}

func (s *MemStore) applyDelete(stmt Statement) error {
	if _, ok := s.subjects[stmt.Ref]; !ok {
		return errors.NotFound("MemStore", "Execute", stmt.Ref)
	}
	delete(s.subjects, stmt.Ref)
	return nil
}

func (s *MemStore) applyAttach(stmt Statement) error {
	preds, ok := s.subjects[stmt.Ref]
	if !ok {
		return errors.NotFound("MemStore", "Execute", stmt.Ref)
	}
	for _, target := range stmt.Targets {
		preds[stmt.Predicate] = appendUnique(preds[stmt.Predicate], target)
	}
	return nil
}

func (s *MemStore) applyDetach(stmt Statement) error {
	preds, ok := s.subjects[stmt.Ref]
	if !ok {
		return errors.NotFound("MemStore", "Execute", stmt.Ref)
	}
	preds[stmt.Predicate] = removeValues(preds[stmt.Predicate], stmt.Targets)
	if len(preds[stmt.Predicate]) == 0 {
		delete(preds, stmt.Predicate)
	}
	return nil
}

func (s *MemStore) applyPatch(stmt Statement) error {
	preds, ok := s.subjects[stmt.Ref]
	if !ok {
		return errors.NotFound("MemStore", "Execute", stmt.Ref)
	}
	for _, op := range stmt.Ops {
		switch op.Action {
		case PatchAdd:
			for _, v := range op.Values {
				preds[op.Predicate] = appendUnique(preds[op.Predicate], v)
			}
		case PatchReplace:
			preds[op.Predicate] = append([]string(nil), op.Values...)
		case PatchRemove:
			if len(op.Values) == 0 {
				delete(preds, op.Predicate)
				continue
			}
			preds[op.Predicate] = removeValues(preds[op.Predicate], op.Values)
			if len(preds[op.Predicate]) == 0 {
				delete(preds, op.Predicate)
			}
		}
	}
	return nil
}

// Exists reports whether a subject is present. Used by tests and the local
// mode health probe.
func (s *MemStore) Exists(ref string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subjects[ref]
	return ok
}

// Len returns the number of stored subjects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects)
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func removeValues(values, remove []string) []string {
	if len(values) == 0 {
		return values
	}
	drop := make(map[string]bool, len(remove))
	for _, v := range remove {
		drop[v] = true
	}
	kept := values[:0]
	for _, v := range values {
		if !drop[v] {
			kept = append(kept, v)
		}
	}
	return kept
}
