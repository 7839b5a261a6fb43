package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// SynopticCycles are the analysis hours used when no cycle is selected.
var SynopticCycles = []int{0, 6, 12, 18}

// ParseCycle parses a YYYYMMDDHH cycle time as UTC.
func ParseCycle(s string) (time.Time, error) {
	t, err := time.ParseInLocation(source.CycleFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, &domain.UsageError{Op: "cycle", Msg: fmt.Sprintf("%q is not YYYYMMDDHH", s)}
	}
	return t, nil
}

// CycleDates lists every cycle between start and end, inclusive, whose hour
// is in cycles. An empty cycles list means the synoptic cycles.
func CycleDates(start, end time.Time, cycles []int) ([]time.Time, error) {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return nil, &domain.UsageError{Op: "cycle range", Msg: "end is before start"}
	}
	if len(cycles) == 0 {
		cycles = SynopticCycles
	}
	hours := slices.Clone(cycles)
	slices.Sort(hours)
	hours = slices.Compact(hours)

	var out []time.Time
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for ; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, h := range hours {
			t := day.Add(time.Duration(h) * time.Hour)
			if t.Before(start) || t.After(end) {
				continue
			}
			out = append(out, t)
		}
	}
	return out, nil
}
