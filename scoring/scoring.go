// Package scoring derives risk severity from raw characterization and
// remediation facets. All functions are pure: they read only their arguments,
// so the same facet values always produce the same result regardless of
// query shape or pagination.
package scoring

import (
	"sort"
	"strconv"
	"time"
)

// Version identifies a CVSS version family. Facets from a higher family take
// precedence over lower ones when both are present on the same risk.
type Version int

const (
	// V2 covers CVSS 2.x vectors
	V2 Version = 2
	// V3 covers CVSS 3.x vectors
	V3 Version = 3
)

// Level is a qualitative severity bucket.
type Level string

// Severity buckets, ordered from absent data to most severe.
const (
	LevelUnknown  Level = "unknown"
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Threshold maps a minimum numeric score onto a qualitative level.
type Threshold struct {
	Level Level
	Min   float64
}

// Thresholds is an ordered bucket table, highest minimum first. Bucket walks
// it top down and returns the first level whose minimum the score meets.
type Thresholds []Threshold

// DefaultThresholds returns the CVSS v3.x qualitative scale.
func DefaultThresholds() Thresholds {
	return Thresholds{
		{Level: LevelCritical, Min: 9.0},
		{Level: LevelHigh, Min: 7.0},
		{Level: LevelModerate, Min: 4.0},
		{Level: LevelLow, Min: 0.1},
		{Level: LevelNone, Min: 0.0},
	}
}

// Bucket maps a numeric score into its qualitative level. Scores below every
// threshold minimum resolve to unknown.
func (t Thresholds) Bucket(score float64) Level {
	for _, th := range t {
		if score >= th.Min {
			return th.Level
		}
	}
	return LevelUnknown
}

// Facet is one characterization's scores within a single version family.
// Temporal is optional and contributes to the family maximum when present.
type Facet struct {
	Version  Version
	Base     float64
	Temporal float64
}

// Result is the derived severity of one risk.
type Result struct {
	Level Level
	Score float64
}

// Score derives severity from the risk's characterization facets. Within each
// version family the maximum across base and temporal scores is taken; the
// highest version family present wins, and its maximum is the reported score.
// With no facets at all the result is unknown with a zero score.
func Score(facets []Facet, thresholds Thresholds) Result {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	byVersion := map[Version]float64{}
	seen := map[Version]bool{}
	for _, f := range facets {
		facetMax := f.Base
		if f.Temporal > facetMax {
			facetMax = f.Temporal
		}
		if !seen[f.Version] || facetMax > byVersion[f.Version] {
			byVersion[f.Version] = facetMax
			seen[f.Version] = true
		}
	}
	if len(byVersion) == 0 {
		return Result{Level: LevelUnknown, Score: 0}
	}
	versions := make([]Version, 0, len(byVersion))
	for v := range byVersion {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	score := byVersion[versions[0]]
	return Result{Level: thresholds.Bucket(score), Score: score}
}

// Facets pairs parallel base and temporal value lists into facets of one
// version family. The lists come from the same facet traversal so they are
// index-aligned; a temporal list shorter than the base list leaves the
// remaining facets with no temporal component. Unparseable values are skipped.
func Facets(version Version, base, temporal []string) []Facet {
	facets := make([]Facet, 0, len(base))
	for i, raw := range base {
		b, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		f := Facet{Version: version, Base: b}
		if i < len(temporal) {
			if t, err := strconv.ParseFloat(temporal[i], 64); err == nil {
				f.Temporal = t
			}
		}
		facets = append(facets, f)
	}
	return facets
}

// Remediation is one remediation facet considered during consolidation.
type Remediation struct {
	ResponseType string
	Lifecycle    string
	Timestamp    time.Time
}

// Consolidate reduces a risk's remediation facets to the response type and
// lifecycle of the most recently modified remediation. The boolean is false
// when there are no facets to consolidate.
func Consolidate(rems []Remediation) (responseType, lifecycle string, ok bool) {
	if len(rems) == 0 {
		return "", "", false
	}
	latest := rems[0]
	for _, r := range rems[1:] {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest.ResponseType, latest.Lifecycle, true
}

// Remediations pairs parallel response type, lifecycle and timestamp lists
// into remediation facets. Missing or unparseable timestamps sort as the zero
// time, so a facet with any valid timestamp outranks them.
func Remediations(types, lifecycles, timestamps []string) []Remediation {
	rems := make([]Remediation, 0, len(types))
	for i, rt := range types {
		r := Remediation{ResponseType: rt}
		if i < len(lifecycles) {
			r.Lifecycle = lifecycles[i]
		}
		if i < len(timestamps) {
			if ts, err := time.Parse(time.RFC3339, timestamps[i]); err == nil {
				r.Timestamp = ts
			}
		}
		rems = append(rems, r)
	}
	return rems
}

// Occurrences counts how many related observation subjects carry the given
// context marker.
func Occurrences(contexts []string, marker string) int {
	n := 0
	for _, c := range contexts {
		if c == marker {
			n++
		}
	}
	return n
}
