package engine

import (
	"sort"

	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// queryPlan is a compiled selection: the store query plus the bookkeeping the
// pipeline needs afterwards. intermediates are raw facet fields fetched only
// to feed derived computation; they never reach the final projection. derived
// lists the engine-computed fields the caller actually asked for (directly,
// or indirectly through a filter or sort key).
type queryPlan struct {
	query         *storage.SelectQuery
	intermediates []string
	derived       []string
}

// compile turns a caller selection into a store query. The selection is
// augmented with the core identity fields, with any fields named by filters
// or the sort key, and with the raw facets behind requested derived fields.
// Unregistered field names fail fast.
func (e *Engine) compile(desc *vocabulary.EntityDescriptor, selectFields []string, args *QueryArgs) (*queryPlan, error) {
	requested := make(map[string]bool, len(selectFields)+4)
	for _, f := range selectFields {
		requested[f] = true
	}
	requested[vocabulary.FieldID] = true
	requested[vocabulary.FieldEntityType] = true

	if args != nil {
		for _, f := range args.Filters {
			requested[f.Key] = true
		}
		if args.OrderedBy != "" {
			requested[desc.SortField(args.OrderedBy)] = true
		}
	}

	plan := &queryPlan{
		query: &storage.SelectQuery{
			EntityType:   desc.Type,
			ClassMarkers: desc.ClassMarkers,
			Fields:       make(map[string]vocabulary.FieldBinding),
			Singularize:  make(map[string]bool),
		},
	}

	// Derived fields resolve to their raw facets; the facets are fetched,
	// the derived name itself is computed later and never sent to the store.
	fetch := make(map[string]bool)
	for f := range requested {
		raws, ok := desc.Derived[f]
		if !ok {
			fetch[f] = true
			continue
		}
		plan.derived = append(plan.derived, f)
		for _, raw := range raws {
			if !fetch[raw] && !requested[raw] {
				plan.intermediates = append(plan.intermediates, raw)
			}
			fetch[raw] = true
		}
	}
	sort.Strings(plan.derived)
	sort.Strings(plan.intermediates)

	for f := range fetch {
		binding, err := desc.Binding(f)
		if err != nil {
			return nil, err
		}
		plan.query.Fields[f] = binding
		if !binding.Multi {
			plan.query.Singularize[f] = true
		}
		if exp, ok := desc.Expansions[f]; ok {
			if plan.query.Expansions == nil {
				plan.query.Expansions = make(map[string]vocabulary.Expansion)
			}
			plan.query.Expansions[f] = exp
		}
	}
	plan.query.GroupByEntity = len(plan.query.Expansions) > 0

	return plan, nil
}
