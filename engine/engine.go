// Package engine implements the generic query and mutation pipeline over the
// compliance graph: it compiles caller selections into store queries, reduces
// raw rows into entities, derives risk severity, paginates connections, and
// compiles edits and nested creates into mutation statements. The engine is
// generic over the vocabulary's entity descriptors; nothing in this package
// is specific to one entity type.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/metric"
	"github.com/champtc/opencti-sub001/scoring"
	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// Engine executes queries and mutations against a Store using the registered
// entity descriptors. Safe for concurrent use.
type Engine struct {
	store      storage.Store
	registry   *vocabulary.Registry
	logger     *slog.Logger
	metrics    *metric.Metrics
	namespace  string
	thresholds scoring.Thresholds
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry substitutes the descriptor registry (tests register trimmed
// descriptor sets).
func WithRegistry(r *vocabulary.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNamespace sets the IRI namespace for generated references.
func WithNamespace(ns string) Option {
	return func(e *Engine) {
		if ns != "" {
			e.namespace = ns
		}
	}
}

// WithThresholds overrides the severity bucket table.
func WithThresholds(t scoring.Thresholds) Option {
	return func(e *Engine) {
		if len(t) > 0 {
			e.thresholds = t
		}
	}
}

// WithClock substitutes the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine over the given store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		registry:   vocabulary.Default(),
		logger:     slog.Default().With("component", "engine"),
		namespace:  vocabulary.DefaultNamespace,
		thresholds: scoring.DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get fetches one entity by id. The selection is augmented with the core
// fields; derived fields in the selection are computed from their facets.
// Missing entities report a not-found error.
func (e *Engine) Get(ctx context.Context, et vocabulary.EntityType, id string, selectFields []string) (Entity, error) {
	start := e.now()
	ent, err := e.get(ctx, et, id, selectFields)
	e.record("get", et, start, err)
	return ent, err
}

func (e *Engine) get(ctx context.Context, et vocabulary.EntityType, id string, selectFields []string) (Entity, error) {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return nil, err
	}
	if err := vocabulary.ValidateID(id); err != nil {
		return nil, err
	}
	iri := vocabulary.IRI(e.namespace, et, id)
	return e.getByIRI(ctx, desc, iri, selectFields)
}

func (e *Engine) getByIRI(ctx context.Context, desc *vocabulary.EntityDescriptor, iri string, selectFields []string) (Entity, error) {
	plan, err := e.compile(desc, selectFields, nil)
	if err != nil {
		return nil, err
	}
	plan.query.Bind = []string{iri}

	rows, err := e.store.Select(ctx, plan.query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Engine", "Get", iri)
	}

	e.applyDerived(desc, rows, plan.derived)
	ent, err := e.reduce(rows[0], plan.intermediates)
	if err != nil {
		return nil, err
	}
	return ent, nil
}

// List returns a paginated connection over all entities of a type, optionally
// scoped to a parent, filtered, sorted and windowed per args. A window beyond
// the result set yields a nil connection, not an error.
func (e *Engine) List(ctx context.Context, et vocabulary.EntityType, args *QueryArgs) (*Connection, error) {
	start := e.now()
	conn, err := e.list(ctx, et, args, nil)
	e.record("list", et, start, err)
	return conn, err
}

// ResolveMany resolves a reference hint list into a connection in one query.
// References that no longer resolve are silently absent from the result.
func (e *Engine) ResolveMany(ctx context.Context, et vocabulary.EntityType, refs []string, args *QueryArgs) (*Connection, error) {
	start := e.now()
	if len(refs) == 0 {
		e.record("resolve", et, start, nil)
		return nil, nil
	}
	conn, err := e.list(ctx, et, args, refs)
	e.record("resolve", et, start, err)
	return conn, err
}

func (e *Engine) list(ctx context.Context, et vocabulary.EntityType, args *QueryArgs, bind []string) (*Connection, error) {
	if args == nil {
		args = &QueryArgs{}
	}
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return nil, err
	}

	plan, err := e.compile(desc, args.Select, args)
	if err != nil {
		return nil, err
	}
	plan.query.Bind = bind

	if args.Parent != nil {
		pred, err := desc.ScopePredicate(args.Parent.Type)
		if err != nil {
			return nil, err
		}
		plan.query.Parent = &storage.ParentScope{IRI: args.Parent.IRI, Predicate: pred}
	}

	rows, err := e.store.Select(ctx, plan.query)
	if err != nil {
		return nil, err
	}

	e.applyDerived(desc, rows, plan.derived)
	return e.paginate(desc, rows, args, plan.intermediates)
}

// Exists reports whether the reference resolves, using a minimal probe query.
func (e *Engine) Exists(ctx context.Context, et vocabulary.EntityType, iri string) (bool, error) {
	desc, err := e.registry.Lookup(et)
	if err != nil {
		return false, err
	}
	idBinding, err := desc.Binding(vocabulary.FieldID)
	if err != nil {
		return false, err
	}
	q := &storage.SelectQuery{
		EntityType:   et,
		ClassMarkers: desc.ClassMarkers,
		Fields:       map[string]vocabulary.FieldBinding{vocabulary.FieldID: idBinding},
		Bind:         []string{iri},
		Singularize:  map[string]bool{vocabulary.FieldID: true},
	}
	rows, err := e.store.Select(ctx, q)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// applyDerived computes requested derived fields onto each row before the
// rows are sorted or reduced, so sorting on a derived key sees real values.
func (e *Engine) applyDerived(desc *vocabulary.EntityDescriptor, rows []storage.Row, derived []string) {
	if len(derived) == 0 {
		return
	}
	wantScore := containsField(derived, vocabulary.FieldRiskScore)
	wantLevel := containsField(derived, vocabulary.FieldRiskLevel)
	wantResponse := containsField(derived, vocabulary.FieldResponseType)
	wantLifecycle := containsField(derived, vocabulary.FieldLifecycle)
	wantOccurrences := containsField(derived, vocabulary.FieldOccurrences)

	for _, row := range rows {
		if wantScore || wantLevel {
			facets := append(
				scoring.Facets(scoring.V2, row["cvss2_base_score"], row["cvss2_temporal_score"]),
				scoring.Facets(scoring.V3, row["cvss3_base_score"], row["cvss3_temporal_score"])...,
			)
			res := scoring.Score(facets, e.thresholds)
			if wantScore {
				row[vocabulary.FieldRiskScore] = []string{formatScore(res.Score)}
			}
			if wantLevel {
				row[vocabulary.FieldRiskLevel] = []string{string(res.Level)}
			}
		}
		if wantResponse || wantLifecycle {
			rems := scoring.Remediations(
				row["remediation_response_type"],
				row["remediation_lifecycle"],
				row["remediation_timestamp"],
			)
			if rt, lc, ok := scoring.Consolidate(rems); ok {
				if wantResponse {
					row[vocabulary.FieldResponseType] = []string{rt}
				}
				if wantLifecycle {
					row[vocabulary.FieldLifecycle] = []string{lc}
				}
			}
		}
		if wantOccurrences {
			n := scoring.Occurrences(row["subject_context"], vocabulary.SubjectContextTarget)
			row[vocabulary.FieldOccurrences] = []string{fmt.Sprintf("%d", n)}
		}
	}
}

func formatScore(s float64) string {
	return fmt.Sprintf("%g", s)
}

func containsField(fields []string, f string) bool {
	for _, v := range fields {
		if v == f {
			return true
		}
	}
	return false
}

func (e *Engine) record(operation string, et vocabulary.EntityType, start time.Time, err error) {
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
	e.metrics.RecordQuery(operation, string(et), status)
	e.metrics.RecordQueryDuration(operation, string(et), e.now().Sub(start))
}
