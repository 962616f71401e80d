// Package graphql is the GraphQL boundary over the query engine. Incoming
// documents are parsed with gqlparser and dispatched generically: the field
// name selects the entity type and operation, the selection set becomes the
// engine's field selection, and nested selection sets on collection fields
// are resolved through the engine's bulk resolver. No per-entity resolver
// code exists here; the vocabulary's descriptors drive everything.
package graphql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/champtc/opencti-sub001/engine"
	"github.com/champtc/opencti-sub001/errors"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// Response is the wire shape of one GraphQL execution.
type Response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// Resolver executes GraphQL documents against the engine.
type Resolver struct {
	engine   *engine.Engine
	registry *vocabulary.Registry
	logger   *slog.Logger
	fields   map[string]fieldTarget
}

// fieldTarget maps one top-level field name to its entity type and verb.
type fieldTarget struct {
	entityType vocabulary.EntityType
	verb       string
}

// Dispatch verbs.
const (
	verbGet    = "get"
	verbList   = "list"
	verbCreate = "create"
	verbEdit   = "edit"
	verbDelete = "delete"
	verbAttach = "attach"
	verbDetach = "detach"
)

// NewResolver builds the field dispatch table from the registered entity
// types: each type contributes get, list, create, edit, delete, attach and
// detach fields named from its tag (e.g. "risk", "riskList", "createRisk",
// "attachToRisk").
func NewResolver(eng *engine.Engine, registry *vocabulary.Registry, logger *slog.Logger) *Resolver {
	if registry == nil {
		registry = vocabulary.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		engine:   eng,
		registry: registry,
		logger:   logger.With("component", "graphql"),
		fields:   make(map[string]fieldTarget),
	}
	for _, et := range registry.Types() {
		tag := et.Tag()
		base := strings.ToLower(tag[:1]) + tag[1:]
		r.fields[base] = fieldTarget{et, verbGet}
		r.fields[base+"List"] = fieldTarget{et, verbList}
		r.fields["create"+tag] = fieldTarget{et, verbCreate}
		r.fields["edit"+tag] = fieldTarget{et, verbEdit}
		r.fields["delete"+tag] = fieldTarget{et, verbDelete}
		r.fields["attachTo"+tag] = fieldTarget{et, verbAttach}
		r.fields["detachFrom"+tag] = fieldTarget{et, verbDetach}
	}
	return r
}

// Execute parses and runs one GraphQL document. Per-field failures are
// reported in the errors list; fields that succeed still contribute data.
func (r *Resolver) Execute(ctx context.Context, query string, variables map[string]any) *Response {
	doc, parseErr := parser.ParseQuery(&ast.Source{Input: query})
	if parseErr != nil {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("parse error: %s", parseErr.Error())}}
	}
	if len(doc.Operations) == 0 {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("document has no operations")}}
	}
	op := doc.Operations[0]

	resp := &Response{Data: make(map[string]any)}
	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		alias := field.Alias
		if alias == "" {
			alias = field.Name
		}
		value, err := r.resolveField(ctx, op.Operation, field, variables)
		if err != nil {
			r.logger.Warn("field resolution failed",
				"field", field.Name,
				"error", err)
			resp.Errors = append(resp.Errors, mapError(err, field.Name))
			resp.Data[alias] = nil
			continue
		}
		resp.Data[alias] = value
	}
	return resp
}

func (r *Resolver) resolveField(ctx context.Context, kind ast.Operation, field *ast.Field, variables map[string]any) (any, error) {
	target, ok := r.fields[field.Name]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: field %q", errors.ErrUnknownField, field.Name),
			"Resolver", "resolveField", "dispatch")
	}

	args, err := decodeArguments(field, variables)
	if err != nil {
		return nil, err
	}

	switch target.verb {
	case verbGet, verbList:
		if kind != ast.Query {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q is a query field", errors.ErrQueryRejected, field.Name),
				"Resolver", "resolveField", "operation check")
		}
	default:
		if kind != ast.Mutation {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q is a mutation field", errors.ErrQueryRejected, field.Name),
				"Resolver", "resolveField", "operation check")
		}
	}

	switch target.verb {
	case verbGet:
		return r.resolveGet(ctx, target.entityType, field, args)
	case verbList:
		return r.resolveList(ctx, target.entityType, field, args)
	case verbCreate:
		return r.resolveCreate(ctx, target.entityType, field, args)
	case verbEdit:
		return r.resolveEdit(ctx, target.entityType, field, args)
	case verbDelete:
		return r.resolveDelete(ctx, target.entityType, args)
	case verbAttach, verbDetach:
		return r.resolveAttachDetach(ctx, target.entityType, target.verb, args)
	default:
		return nil, errors.WrapFatal(
			fmt.Errorf("unhandled verb %q", target.verb),
			"Resolver", "resolveField", "dispatch")
	}
}

func (r *Resolver) resolveGet(ctx context.Context, et vocabulary.EntityType, field *ast.Field, args map[string]any) (any, error) {
	id, err := stringArg(args, "id", true)
	if err != nil {
		return nil, err
	}
	sel := fieldNames(field.SelectionSet)
	ent, err := r.engine.Get(ctx, et, id, sel)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, et, ent, field.SelectionSet)
}

func (r *Resolver) resolveList(ctx context.Context, et vocabulary.EntityType, field *ast.Field, args map[string]any) (any, error) {
	nodeSel := connectionNodeSelection(field.SelectionSet)
	queryArgs, err := buildQueryArgs(args, fieldNames(nodeSel))
	if err != nil {
		return nil, err
	}
	conn, err := r.engine.List(ctx, et, queryArgs)
	if err != nil {
		return nil, err
	}
	return r.materializeConnection(ctx, et, conn, nodeSel)
}

func (r *Resolver) resolveCreate(ctx context.Context, et vocabulary.EntityType, field *ast.Field, args map[string]any) (any, error) {
	input, err := decodeCreateInput(args["input"])
	if err != nil {
		return nil, err
	}
	ent, err := r.engine.Create(ctx, et, input)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, et, ent, field.SelectionSet)
}

func (r *Resolver) resolveEdit(ctx context.Context, et vocabulary.EntityType, field *ast.Field, args map[string]any) (any, error) {
	id, err := stringArg(args, "id", true)
	if err != nil {
		return nil, err
	}
	edits, err := decodeEdits(args["edits"])
	if err != nil {
		return nil, err
	}
	ent, err := r.engine.Edit(ctx, et, id, edits)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, et, ent, field.SelectionSet)
}

func (r *Resolver) resolveDelete(ctx context.Context, et vocabulary.EntityType, args map[string]any) (any, error) {
	id, err := stringArg(args, "id", true)
	if err != nil {
		return nil, err
	}
	if err := r.engine.Delete(ctx, et, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (r *Resolver) resolveAttachDetach(ctx context.Context, et vocabulary.EntityType, verb string, args map[string]any) (any, error) {
	id, err := stringArg(args, "id", true)
	if err != nil {
		return nil, err
	}
	fieldName, err := stringArg(args, "field", true)
	if err != nil {
		return nil, err
	}
	ids, err := stringListArg(args, "entityIds")
	if err != nil {
		return nil, err
	}
	if verb == verbAttach {
		err = r.engine.Attach(ctx, et, id, fieldName, ids)
	} else {
		err = r.engine.Detach(ctx, et, id, fieldName, ids)
	}
	if err != nil {
		return nil, err
	}
	return true, nil
}

// materialize converts an entity into response shape, resolving nested
// selection sets on collection fields through the bulk resolver. Collection
// fields selected without a sub-selection stay as raw reference lists.
func (r *Resolver) materialize(ctx context.Context, et vocabulary.EntityType, ent engine.Entity, selections ast.SelectionSet) (map[string]any, error) {
	desc, err := r.registry.Lookup(et)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(ent))
	for k, v := range ent {
		out[k] = v
	}

	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok || len(field.SelectionSet) == 0 {
			continue
		}
		childType, _, isCollection := desc.CollectionTarget(field.Name)
		if !isCollection {
			continue
		}
		hints := ent.RefHints(field.Name)
		delete(out, field.Name+engine.RefHintSuffix)
		if len(hints) == 0 {
			out[field.Name] = nil
			continue
		}
		conn, err := r.engine.ResolveMany(ctx, childType, hints, &engine.QueryArgs{
			Select: fieldNames(field.SelectionSet),
		})
		if err != nil {
			return nil, err
		}
		if conn == nil {
			out[field.Name] = nil
			continue
		}
		children := make([]any, 0, len(conn.Edges))
		for _, edge := range conn.Edges {
			child, err := r.materialize(ctx, childType, edge.Node, field.SelectionSet)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		out[field.Name] = children
	}
	return out, nil
}

func (r *Resolver) materializeConnection(ctx context.Context, et vocabulary.EntityType, conn *engine.Connection, nodeSel ast.SelectionSet) (any, error) {
	if conn == nil {
		return nil, nil
	}
	edges := make([]any, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		node, err := r.materialize(ctx, et, edge.Node, nodeSel)
		if err != nil {
			return nil, err
		}
		edges = append(edges, map[string]any{
			"cursor": edge.Cursor,
			"node":   node,
		})
	}
	return map[string]any{
		"pageInfo": map[string]any{
			"startCursor":     conn.PageInfo.StartCursor,
			"endCursor":       conn.PageInfo.EndCursor,
			"hasNextPage":     conn.PageInfo.HasNextPage,
			"hasPreviousPage": conn.PageInfo.HasPreviousPage,
			"globalCount":     conn.PageInfo.GlobalCount,
		},
		"edges": edges,
	}, nil
}

// fieldNames extracts the scalar selection names of a selection set,
// dropping GraphQL meta fields and the connection plumbing.
func fieldNames(selections ast.SelectionSet) []string {
	names := make([]string, 0, len(selections))
	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		if strings.HasPrefix(field.Name, "__") || field.Name == vocabulary.FieldIRI {
			continue
		}
		names = append(names, field.Name)
	}
	return names
}

// connectionNodeSelection digs the node selection out of a connection
// selection set (edges { node { ... } }).
func connectionNodeSelection(selections ast.SelectionSet) ast.SelectionSet {
	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		if field.Name == "edges" {
			for _, inner := range field.SelectionSet {
				if node, ok := inner.(*ast.Field); ok && node.Name == "node" {
					return node.SelectionSet
				}
			}
		}
	}
	return nil
}
