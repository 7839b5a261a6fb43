package domain

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// TimeAverage collapses the cycle dimension of b. Rows are grouped by the key
// components named in levels (e.g. LevelPlatform, or LevelPlatform and
// LevelChannel); the output keys have a zero DateTime. It returns the mean
// and the sample standard deviation of each column across the cycles present
// in each group. Count columns are truncated to integers in both tables, and
// a group seen in only one cycle has a standard deviation of 0.
//
// At least one level is required.
func TimeAverage(b BulkTable, levels ...Level) (mean, std BulkTable, err error) {
	if len(levels) == 0 {
		return BulkTable{}, BulkTable{}, usageErrorf("time average", "a level is needed to average over, e.g. platform or channel")
	}
	for _, l := range levels {
		if l < LevelPlatform || l > LevelChannel {
			return BulkTable{}, BulkTable{}, usageErrorf("time average", "unknown level %d", int(l))
		}
	}

	type series struct {
		key                Key
		imp, cnt, ben, neu []float64
	}
	idx := make(map[Key]int)
	var groups []*series
	for _, r := range b.rows {
		k := r.Key.Project(levels...)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, &series{key: k})
		}
		g := groups[i]
		g.imp = append(g.imp, r.TotImp)
		g.cnt = append(g.cnt, float64(r.ObCnt))
		g.ben = append(g.ben, float64(r.ObCntBen))
		g.neu = append(g.neu, float64(r.ObCntNeu))
	}

	meanRows := make([]BulkRow, 0, len(groups))
	stdRows := make([]BulkRow, 0, len(groups))
	for _, g := range groups {
		meanRows = append(meanRows, BulkRow{
			Key:      g.key,
			TotImp:   stat.Mean(g.imp, nil),
			ObCnt:    int(stat.Mean(g.cnt, nil)),
			ObCntBen: int(stat.Mean(g.ben, nil)),
			ObCntNeu: int(stat.Mean(g.neu, nil)),
		})
		stdRows = append(stdRows, BulkRow{
			Key:      g.key,
			TotImp:   sampleStdDev(g.imp),
			ObCnt:    int(sampleStdDev(g.cnt)),
			ObCntBen: int(sampleStdDev(g.ben)),
			ObCntNeu: int(sampleStdDev(g.neu)),
		})
	}
	sortBulk(meanRows)
	sortBulk(stdRows)
	return BulkTable{rows: meanRows}, BulkTable{rows: stdRows}, nil
}

// sampleStdDev is the n-1 standard deviation, defined as 0 for fewer than two
// samples.
func sampleStdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// ParseLevels converts names such as "platform" or "channel" into Levels.
func ParseLevels(names ...string) ([]Level, error) {
	out := make([]Level, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "platform":
			out = append(out, LevelPlatform)
		case "obtype":
			out = append(out, LevelObType)
		case "channel":
			out = append(out, LevelChannel)
		default:
			return nil, usageErrorf("parse level", "unknown level %q", n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
