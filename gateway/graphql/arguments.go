package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/champtc/opencti-sub001/engine"
	"github.com/champtc/opencti-sub001/errors"
)

// decodeArguments evaluates a field's arguments against the request
// variables into plain Go values.
func decodeArguments(field *ast.Field, variables map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(field.Arguments))
	for _, arg := range field.Arguments {
		value, err := arg.Value.Value(variables)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: argument %q: %v", errors.ErrInvalidFieldValue, arg.Name, err),
				"Resolver", "decodeArguments", "argument evaluation")
		}
		args[arg.Name] = value
	}
	return args, nil
}

func stringArg(args map[string]any, name string, required bool) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		if required {
			return "", errors.WrapInvalid(
				fmt.Errorf("%w: argument %q", errors.ErrNoInputSupplied, name),
				"Resolver", "stringArg", "argument check")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: argument %q must be a string", errors.ErrInvalidFieldValue, name),
			"Resolver", "stringArg", "argument check")
	}
	return s, nil
}

func intArg(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i, nil
	case int:
		return &n, nil
	case float64:
		i := int(n)
		return &i, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: argument %q must be an integer", errors.ErrInvalidFieldValue, name),
			"Resolver", "intArg", "argument check")
	}
}

func stringListArg(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	return toStringList(v, name)
}

func toStringList(v any, name string) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case string:
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprintf("%v", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q must be a string or list of strings", errors.ErrInvalidFieldValue, name),
			"Resolver", "toStringList", "argument check")
	}
}

// buildQueryArgs maps list-field arguments onto the engine's query shape.
func buildQueryArgs(args map[string]any, sel []string) (*engine.QueryArgs, error) {
	out := &engine.QueryArgs{Select: sel}

	var err error
	if out.First, err = intArg(args, "first"); err != nil {
		return nil, err
	}
	if out.Offset, err = intArg(args, "offset"); err != nil {
		return nil, err
	}
	if out.OrderedBy, err = stringArg(args, "orderedBy", false); err != nil {
		return nil, err
	}
	if out.Search, err = stringArg(args, "search", false); err != nil {
		return nil, err
	}

	mode, err := stringArg(args, "orderMode", false)
	if err != nil {
		return nil, err
	}
	if mode == "desc" {
		out.OrderMode = engine.OrderDesc
	}

	filterMode, err := stringArg(args, "filterMode", false)
	if err != nil {
		return nil, err
	}
	if filterMode == "or" {
		out.FilterMode = engine.FilterOr
	}

	if raw, ok := args["filters"]; ok && raw != nil {
		out.Filters, err = decodeFilters(raw)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeFilters(raw any) ([]engine.Filter, error) {
	items, ok := raw.([]any)
	if !ok {
		if single, ok := raw.(map[string]any); ok {
			items = []any{single}
		} else {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: filters must be a list", errors.ErrInvalidFieldValue),
				"Resolver", "decodeFilters", "argument check")
		}
	}
	filters := make([]engine.Filter, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: filter entries must be objects", errors.ErrInvalidFieldValue),
				"Resolver", "decodeFilters", "argument check")
		}
		f := engine.Filter{Op: engine.FilterEq}
		if key, ok := obj["key"].(string); ok {
			f.Key = key
		}
		if op, ok := obj["op"].(string); ok && op != "" {
			f.Op = engine.FilterOp(op)
		}
		if values, ok := obj["values"]; ok && values != nil {
			list, err := toStringList(values, "filter values")
			if err != nil {
				return nil, err
			}
			f.Values = list
		}
		if mode, ok := obj["mode"].(string); ok && mode == "or" {
			f.Mode = engine.FilterOr
		}
		if f.Key == "" {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: filter without key", errors.ErrInvalidFieldValue),
				"Resolver", "decodeFilters", "argument check")
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// decodeCreateInput maps a create mutation's input object onto the engine's
// create shape: scalar fields, nested owned children and reference id lists.
func decodeCreateInput(raw any) (*engine.CreateInput, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: input must be an object", errors.ErrInvalidFieldValue),
			"Resolver", "decodeCreateInput", "input decode")
	}

	input := &engine.CreateInput{}

	if fields, ok := obj["fields"].(map[string]any); ok {
		input.Fields = make(map[string][]string, len(fields))
		for k, v := range fields {
			list, err := toStringList(v, k)
			if err != nil {
				return nil, err
			}
			input.Fields[k] = list
		}
	}

	if owned, ok := obj["owned"].(map[string]any); ok {
		input.Owned = make(map[string][]*engine.CreateInput, len(owned))
		for field, children := range owned {
			list, ok := children.([]any)
			if !ok {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: owned.%s must be a list", errors.ErrInvalidFieldValue, field),
					"Resolver", "decodeCreateInput", "input decode")
			}
			for _, child := range list {
				childInput, err := decodeCreateInput(child)
				if err != nil {
					return nil, err
				}
				input.Owned[field] = append(input.Owned[field], childInput)
			}
		}
	}

	if refs, ok := obj["references"].(map[string]any); ok {
		input.References = make(map[string][]string, len(refs))
		for field, ids := range refs {
			list, err := toStringList(ids, field)
			if err != nil {
				return nil, err
			}
			input.References[field] = list
		}
	}

	return input, nil
}

// decodeEdits maps an edit mutation's edits argument onto the engine's edit
// list. Operation is optional; the engine infers it when absent.
func decodeEdits(raw any) ([]engine.EditInput, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if single, ok := raw.(map[string]any); ok {
			items = []any{single}
		} else {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: edits must be a list", errors.ErrInvalidFieldValue),
				"Resolver", "decodeEdits", "input decode")
		}
	}
	edits := make([]engine.EditInput, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: edit entries must be objects", errors.ErrInvalidFieldValue),
				"Resolver", "decodeEdits", "input decode")
		}
		edit := engine.EditInput{}
		if key, ok := obj["key"].(string); ok {
			edit.Key = key
		}
		if values, ok := obj["values"]; ok && values != nil {
			list, err := toStringList(values, "edit values")
			if err != nil {
				return nil, err
			}
			edit.Values = list
		}
		if op, ok := obj["operation"].(string); ok {
			edit.Operation = engine.Operation(op)
		}
		edits = append(edits, edit)
	}
	return edits, nil
}
