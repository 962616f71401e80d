package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScore_PrefersHigherVersionFamily(t *testing.T) {
	facets := []Facet{
		{Version: V2, Base: 9.8},
		{Version: V3, Base: 5.0},
	}
	res := Score(facets, nil)
	assert.Equal(t, 5.0, res.Score, "v3 family wins even with a lower score")
	assert.Equal(t, LevelModerate, res.Level)
}

func TestScore_MaxWithinFamily(t *testing.T) {
	facets := []Facet{
		{Version: V3, Base: 4.2},
		{Version: V3, Base: 8.1},
		{Version: V3, Base: 6.6, Temporal: 9.3},
	}
	res := Score(facets, nil)
	assert.Equal(t, 9.3, res.Score, "temporal contributes to the family max")
	assert.Equal(t, LevelCritical, res.Level)
}

func TestScore_NoFacets(t *testing.T) {
	res := Score(nil, nil)
	assert.Equal(t, LevelUnknown, res.Level)
	assert.Zero(t, res.Score)
}

func TestScore_CustomThresholds(t *testing.T) {
	custom := Thresholds{
		{Level: LevelHigh, Min: 5.0},
		{Level: LevelLow, Min: 0.0},
	}
	res := Score([]Facet{{Version: V3, Base: 5.0}}, custom)
	assert.Equal(t, LevelHigh, res.Level)
}

func TestBucket_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  Level
	}{
		{0.0, LevelNone},
		{0.1, LevelLow},
		{3.9, LevelLow},
		{4.0, LevelModerate},
		{6.9, LevelModerate},
		{7.0, LevelHigh},
		{8.9, LevelHigh},
		{9.0, LevelCritical},
		{10.0, LevelCritical},
		{-1.0, LevelUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, th.Bucket(tc.score), "score %v", tc.score)
	}
}

func TestFacets_SkipsUnparseable(t *testing.T) {
	facets := Facets(V3, []string{"7.5", "bogus", "3.1"}, []string{"6.0"})
	assert.Len(t, facets, 2)
	assert.Equal(t, 7.5, facets[0].Base)
	assert.Equal(t, 6.0, facets[0].Temporal)
	assert.Equal(t, 3.1, facets[1].Base)
	assert.Zero(t, facets[1].Temporal)
}

func TestConsolidate_MostRecentWins(t *testing.T) {
	rems := []Remediation{
		{ResponseType: "avoid", Lifecycle: "planned", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ResponseType: "mitigate", Lifecycle: "completed", Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ResponseType: "transfer", Lifecycle: "in_progress", Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	rt, lc, ok := Consolidate(rems)
	assert.True(t, ok)
	assert.Equal(t, "mitigate", rt)
	assert.Equal(t, "completed", lc)
}

func TestConsolidate_Empty(t *testing.T) {
	_, _, ok := Consolidate(nil)
	assert.False(t, ok)
}

func TestRemediations_PairsByIndex(t *testing.T) {
	rems := Remediations(
		[]string{"avoid", "mitigate"},
		[]string{"planned"},
		[]string{"not-a-time", "2024-06-01T00:00:00Z"},
	)
	assert.Len(t, rems, 2)
	assert.Equal(t, "planned", rems[0].Lifecycle)
	assert.True(t, rems[0].Timestamp.IsZero(), "unparseable timestamp sorts as zero time")
	assert.Empty(t, rems[1].Lifecycle)
	assert.False(t, rems[1].Timestamp.IsZero())
}

func TestOccurrences(t *testing.T) {
	assert.Equal(t, 2, Occurrences([]string{"target", "collateral", "target"}, "target"))
	assert.Zero(t, Occurrences(nil, "target"))
}
