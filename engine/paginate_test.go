package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champtc/opencti-sub001/vocabulary"
)

func TestList_FirstPage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 10)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(5),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 5)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
	assert.Equal(t, 10, conn.PageInfo.GlobalCount)
	assert.Equal(t, conn.Edges[0].Cursor, conn.PageInfo.StartCursor)
	assert.Equal(t, conn.Edges[4].Cursor, conn.PageInfo.EndCursor)
}

func TestList_LastPage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 10)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(5),
		Offset: intPtr(5),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 5)
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.True(t, conn.PageInfo.HasPreviousPage)
}

func TestList_UnderfilledPage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 3)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(10),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 3)
	assert.False(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
}

func TestList_MiddlePage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 10)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(3),
		Offset: intPtr(3),
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 3)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.True(t, conn.PageInfo.HasPreviousPage)
}

func TestList_EdgeCountLaw(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	const n = 10
	seedLabels(t, eng, n)

	for _, first := range []int{1, 3, 5, 10, 20} {
		for _, offset := range []int{0, 2, 5, 9} {
			conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
				Select: []string{"name"},
				First:  intPtr(first),
				Offset: intPtr(offset),
			})
			require.NoError(t, err)

			want := first
			if remaining := n - offset; remaining < want {
				want = remaining
			}
			require.NotNil(t, conn, "first=%d offset=%d", first, offset)
			assert.Len(t, conn.Edges, want, "first=%d offset=%d", first, offset)
		}
	}
}

func TestList_OffsetBeyondCount(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 4)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(5),
		Offset: intPtr(10),
	})
	require.NoError(t, err, "an out-of-range window is not an error")
	assert.Nil(t, conn)
}

func TestList_EmptyStore(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
	})
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestList_SortAscDesc(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 5)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select:    []string{"name"},
		OrderedBy: "name",
	})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 5)
	for i, edge := range conn.Edges {
		assert.Equal(t, labelName(i), edge.Node["name"])
	}

	conn, err = eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select:    []string{"name"},
		OrderedBy: "name",
		OrderMode: OrderDesc,
	})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 5)
	for i, edge := range conn.Edges {
		assert.Equal(t, labelName(4-i), edge.Node["name"])
	}
}

func labelName(i int) string {
	return []string{"label-00", "label-01", "label-02", "label-03", "label-04"}[i]
}

func TestList_SortOnDerivedAlias(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	scores := map[string]string{"low risk": "3.0", "high risk": "9.0", "mid risk": "5.5"}
	for name, score := range scores {
		_, err := eng.Create(ctx, vocabulary.TypeRisk, &CreateInput{
			Fields: map[string][]string{"name": {name}, "risk_status": {"open"}},
			Owned: map[string][]*CreateInput{
				"characterizations": {
					{Fields: map[string][]string{
						"name":             {name + " vector"},
						"cvss3_base_score": {score},
					}},
				},
			},
		})
		require.NoError(t, err)
	}

	conn, err := eng.List(ctx, vocabulary.TypeRisk, &QueryArgs{
		Select:    []string{"name", vocabulary.FieldRiskLevel},
		OrderedBy: vocabulary.FieldRiskLevel,
		OrderMode: OrderDesc,
	})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 3)
	assert.Equal(t, "high risk", conn.Edges[0].Node["name"])
	assert.Equal(t, "mid risk", conn.Edges[1].Node["name"])
	assert.Equal(t, "low risk", conn.Edges[2].Node["name"])
	assert.Equal(t, "critical", conn.Edges[0].Node[vocabulary.FieldRiskLevel])
}

func TestList_FilterEquality(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 10)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		Filters: []Filter{
			{Key: "name", Op: FilterEq, Values: []string{"label-03"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, "label-03", conn.Edges[0].Node["name"])
	assert.False(t, conn.PageInfo.HasNextPage)
}

func TestList_FilterDoesNotConsumeLimit(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 10)

	// Five of the ten labels match; a window of three must fill completely
	// even though non-matching rows are interleaved.
	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		First:  intPtr(3),
		Filters: []Filter{
			{
				Key: "name", Op: FilterEq, Mode: FilterOr,
				Values: []string{"label-01", "label-03", "label-05", "label-07", "label-09"},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 3)
	assert.True(t, conn.PageInfo.HasNextPage, "more matching rows remain")
}

func TestList_FilterOrMode(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	seedLabels(t, eng, 5)

	conn, err := eng.List(context.Background(), vocabulary.TypeLabel, &QueryArgs{
		Select:     []string{"name"},
		FilterMode: FilterOr,
		Filters: []Filter{
			{Key: "name", Op: FilterEq, Values: []string{"label-01"}},
			{Key: "name", Op: FilterEq, Values: []string{"label-04"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 2)
}

func TestList_FilterComparison(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	for i, priority := range []string{"1", "5", "9"} {
		_, err := eng.Create(ctx, vocabulary.TypeRisk, &CreateInput{
			Fields: map[string][]string{
				"name":        {labelName(i)},
				"risk_status": {"open"},
				"priority":    {priority},
			},
		})
		require.NoError(t, err)
	}

	conn, err := eng.List(ctx, vocabulary.TypeRisk, &QueryArgs{
		Select: []string{"name", "priority"},
		Filters: []Filter{
			{Key: "priority", Op: FilterGte, Values: []string{"5"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Len(t, conn.Edges, 2)
}

func TestList_Search(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	createLabel(t, eng, "Payment Card Data")
	createLabel(t, eng, "internal only")

	conn, err := eng.List(ctx, vocabulary.TypeLabel, &QueryArgs{
		Select: []string{"name"},
		Search: "payment",
	})
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, "Payment Card Data", conn.Edges[0].Node["name"])
}

func TestMatchesFilter_NeAbsentField(t *testing.T) {
	row := map[string][]string{"name": {"x"}}
	matched := matchesFilter(row, Filter{Key: "color", Op: FilterNe, Values: []string{"red"}})
	assert.True(t, matched, "absent field satisfies inequality")
}
