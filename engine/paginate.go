package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/champtc/opencti-sub001/storage"
	"github.com/champtc/opencti-sub001/vocabulary"
)

// paginate walks the raw rows once: it drops rows without a resolvable
// reference (logging the violation), consumes the offset, applies filters and
// search past the offset, and reduces rows into edges until the limit is
// exhausted. Filtered-out rows never consume limit. The page flags are
// computed from the scan counters; a page with no edges is reported as an
// absent connection rather than an empty one.
func (e *Engine) paginate(desc *vocabulary.EntityDescriptor, rows []storage.Row, args *QueryArgs, intermediates []string) (*Connection, error) {
	limit := len(rows)
	if args.First != nil {
		limit = *args.First
	}
	offset := 0
	if args.Offset != nil {
		offset = *args.Offset
	}
	limitSize, offsetSize := limit, offset

	if args.OrderedBy != "" {
		sortRows(rows, desc.SortField(args.OrderedBy), args.OrderMode)
	}

	edges := make([]Edge, 0, limit)
	filterCount := 0
	dropped := 0

	for _, row := range rows {
		if row.IRI() == "" {
			e.logger.Warn("dropping row without reference",
				"entity_type", string(desc.Type))
			if e.metrics != nil {
				e.metrics.RecordRowDropped()
			}
			dropped++
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if !matchesSearch(row, args.Search) {
			continue
		}
		if !matchesFilters(row, args.Filters, args.FilterMode) {
			continue
		}
		filterCount++
		if limit > 0 {
			node, err := e.reduce(row, intermediates)
			if err != nil {
				e.logger.Warn("dropping unreducible row",
					"entity_type", string(desc.Type),
					"ref", row.IRI(),
					"error", err)
				if e.metrics != nil {
					e.metrics.RecordRowDropped()
				}
				dropped++
				filterCount--
				continue
			}
			edges = append(edges, Edge{Cursor: row.IRI(), Node: node})
			limit--
		}
	}

	resultCount := len(rows) - dropped

	hasNextPage, hasPreviousPage := false, false
	if len(edges) < resultCount {
		if len(edges) == limitSize && filterCount < limitSize {
			hasNextPage = true
			if offsetSize > 0 {
				hasPreviousPage = true
			}
		}
		if len(edges) <= limitSize {
			if filterCount != len(edges) {
				hasNextPage = true
			}
			if filterCount > 0 && offsetSize > 0 {
				hasPreviousPage = true
			}
		}
	}

	if len(edges) == 0 {
		return nil, nil
	}
	if e.metrics != nil {
		e.metrics.RecordEdges(len(edges))
	}

	return &Connection{
		PageInfo: PageInfo{
			StartCursor:     edges[0].Cursor,
			EndCursor:       edges[len(edges)-1].Cursor,
			HasNextPage:     hasNextPage,
			HasPreviousPage: hasPreviousPage,
			GlobalCount:     resultCount,
		},
		Edges: edges,
	}, nil
}

// sortRows stable-sorts rows on one field. Comparison is numeric when both
// values parse as numbers, lexical otherwise; rows missing the field sort
// last in either direction.
func sortRows(rows []storage.Row, field string, mode OrderMode) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := firstValue(rows[i], field)
		b, bok := firstValue(rows[j], field)
		if !aok || !bok {
			return aok && !bok
		}
		if mode == OrderDesc {
			return compareValues(b, a)
		}
		return compareValues(a, b)
	})
}

func firstValue(row storage.Row, field string) (string, bool) {
	if row.Has(field) {
		return row.First(field), true
	}
	return "", false
}

func compareValues(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

// matchesSearch reports whether any of the row's values contains the search
// term, case-insensitively. An empty term matches everything.
func matchesSearch(row storage.Row, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for field, values := range row {
		if field == vocabulary.FieldIRI {
			continue
		}
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
	}
	return false
}

// matchesFilters combines the filters under the query-level mode. No filters
// matches everything.
func matchesFilters(row storage.Row, filters []Filter, mode FilterMode) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		matched := matchesFilter(row, f)
		if mode == FilterOr && matched {
			return true
		}
		if mode == FilterAnd && !matched {
			return false
		}
	}
	return mode == FilterAnd
}

// matchesFilter applies one filter. Under the filter-level OR mode any
// (row value, filter value) pair may satisfy the operator; under AND every
// filter value must be satisfied by some row value.
func matchesFilter(row storage.Row, f Filter) bool {
	rowValues := row[f.Key]
	if len(f.Values) == 0 {
		return row.Has(f.Key)
	}
	if f.Mode == FilterAnd {
		for _, fv := range f.Values {
			if !anyValueMatches(rowValues, f.Op, fv) {
				return false
			}
		}
		return true
	}
	for _, fv := range f.Values {
		if anyValueMatches(rowValues, f.Op, fv) {
			return true
		}
	}
	return false
}

func anyValueMatches(rowValues []string, op FilterOp, fv string) bool {
	if op == FilterNe {
		// absent fields satisfy inequality; present fields must all differ
		for _, rv := range rowValues {
			if rv == fv {
				return false
			}
		}
		return true
	}
	for _, rv := range rowValues {
		if valueMatches(rv, op, fv) {
			return true
		}
	}
	return false
}

func valueMatches(rv string, op FilterOp, fv string) bool {
	switch op {
	case FilterEq:
		return rv == fv
	case FilterContains:
		return strings.Contains(strings.ToLower(rv), strings.ToLower(fv))
	case FilterGt:
		return compareValues(fv, rv)
	case FilterLt:
		return compareValues(rv, fv)
	case FilterGte:
		return rv == fv || compareValues(fv, rv)
	case FilterLte:
		return rv == fv || compareValues(rv, fv)
	default:
		return false
	}
}
