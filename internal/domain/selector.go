package domain

import (
	"math"
	"slices"
	"time"
)

// Filter narrows a Table. A nil field disables that filter. Set fields match
// by membership (any listed value); Latitudes, Longitudes and Pressures are
// inclusive ranges [min(values), max(values)]. Fields combine with AND.
type Filter struct {
	Cycles     []int       // hour of the cycle time, UTC
	Dates      []time.Time // exact cycle time
	Platforms  []string
	ObTypes    []string
	Channels   []int
	Latitudes  []float64
	Longitudes []float64
	Pressures  []float64
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.Cycles == nil && f.Dates == nil && f.Platforms == nil && f.ObTypes == nil &&
		f.Channels == nil && f.Latitudes == nil && f.Longitudes == nil && f.Pressures == nil
}

// Validate rejects ranges that cannot describe an interval.
func (f Filter) Validate() error {
	for _, r := range []struct {
		name string
		vals []float64
	}{
		{"latitudes", f.Latitudes},
		{"longitudes", f.Longitudes},
		{"pressures", f.Pressures},
	} {
		if r.vals == nil {
			continue
		}
		if len(r.vals) == 0 {
			return usageErrorf("select", "%s range is empty", r.name)
		}
		if slices.ContainsFunc(r.vals, math.IsNaN) {
			return usageErrorf("select", "%s range contains NaN", r.name)
		}
	}
	return nil
}

// Match reports whether a record passes every active filter.
func (f Filter) Match(r Record) bool {
	if f.Cycles != nil && !slices.Contains(f.Cycles, r.DateTime.Hour()) {
		return false
	}
	if f.Dates != nil && !slices.ContainsFunc(f.Dates, r.DateTime.Equal) {
		return false
	}
	if f.Platforms != nil && !slices.Contains(f.Platforms, r.Platform) {
		return false
	}
	if f.ObTypes != nil && !slices.Contains(f.ObTypes, r.ObType) {
		return false
	}
	if f.Channels != nil && !slices.Contains(f.Channels, r.Channel) {
		return false
	}
	return inRange(f.Latitudes, r.Latitude) &&
		inRange(f.Longitudes, r.Longitude) &&
		inRange(f.Pressures, r.Pressure)
}

// inRange treats a nil range as unbounded and an empty one as matching nothing.
func inRange(vals []float64, v float64) bool {
	if vals == nil {
		return true
	}
	if len(vals) == 0 {
		return false
	}
	return v >= slices.Min(vals) && v <= slices.Max(vals)
}

// Select returns the records of t that pass f. An empty filter returns t
// unchanged.
func Select(t Table, f Filter) Table {
	if f.IsZero() {
		return t
	}
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return Table{records: out}
}

// SelectChecked validates f before selecting.
func SelectChecked(t Table, f Filter) (Table, error) {
	if err := f.Validate(); err != nil {
		return Table{}, err
	}
	return Select(t, f), nil
}
