package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryMetrics_RadiosondeExample(t *testing.T) {
	bulk := BulkStats(NewTable(impactRecords(cycle00, "Radiosonde", "t", 0, -2.0, -0.5, 0.3)...), DefaultThreshold)

	summary := SummaryMetrics(bulk)
	require.Equal(t, 1, summary.Len())

	row := summary.Rows()[0]
	assert.InDelta(t, -2.2, row.TotImp, 1e-12)
	assert.Equal(t, 3, row.ObCnt)
	assert.InDelta(t, -0.7333333333, row.ImpPerOb, 1e-9)
	assert.InDelta(t, 66.6666666667, row.FracBenObs, 1e-9)
	assert.InDelta(t, 0.0, row.FracNeuObs, 1e-12)
	assert.InDelta(t, 100.0, row.FracImp, 1e-12)
}

func TestSummaryMetrics_Denominators(t *testing.T) {
	// FracBenObs excludes neutral observations and FracNeuObs excludes
	// beneficial ones from their denominators.
	bulk := NewBulkTable(BulkRow{Key: Key{Platform: "Ship"}, TotImp: -1, ObCnt: 10, ObCntBen: 4, ObCntNeu: 2})
	row := SummaryMetrics(bulk).Rows()[0]
	assert.InDelta(t, 50.0, row.FracBenObs, 1e-12)
	assert.InDelta(t, 2.0/6.0*100, row.FracNeuObs, 1e-12)
	assert.InDelta(t, -0.1, row.ImpPerOb, 1e-12)
}

func TestSummaryMetrics_AllNeutralIsNaN(t *testing.T) {
	bulk := NewBulkTable(
		BulkRow{Key: Key{Platform: "Buoy"}, TotImp: 0, ObCnt: 3, ObCntNeu: 3},
		BulkRow{Key: Key{Platform: "Ship"}, TotImp: -2, ObCnt: 4, ObCntBen: 4},
	)
	summary := SummaryMetrics(bulk)
	rows := summary.Rows()

	assert.True(t, math.IsNaN(rows[0].FracBenObs), "0/0 is NaN, not an error")
	assert.InDelta(t, 100.0, rows[0].FracNeuObs, 1e-12)
	assert.True(t, math.IsNaN(rows[1].FracNeuObs))

	finite, err := summary.Finite(ColFracBenObs)
	require.NoError(t, err)
	require.Equal(t, 1, finite.Len())
	assert.Equal(t, "Ship", finite.Rows()[0].Platform)
}

func TestSummaryMetrics_FracImpSumsTo100(t *testing.T) {
	bulk := NewBulkTable(
		BulkRow{Key: Key{Platform: "AMSUA"}, TotImp: -12.5, ObCnt: 100},
		BulkRow{Key: Key{Platform: "Radiosonde"}, TotImp: -7.25, ObCnt: 40},
		BulkRow{Key: Key{Platform: "Aircraft"}, TotImp: 1.5, ObCnt: 30},
		BulkRow{Key: Key{Platform: "GPSRO"}, TotImp: -3.0, ObCnt: 10},
	)
	col, err := SummaryMetrics(bulk).Column(ColFracImp)
	require.NoError(t, err)

	var sum float64
	for _, v := range col {
		sum += v
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestSummaryTable_SortBy(t *testing.T) {
	bulk := NewBulkTable(
		BulkRow{Key: Key{Platform: "A"}, TotImp: -1, ObCnt: 4, ObCntBen: 1},
		BulkRow{Key: Key{Platform: "B"}, TotImp: -3, ObCnt: 2, ObCntNeu: 2},
		BulkRow{Key: Key{Platform: "C"}, TotImp: -2, ObCnt: 4, ObCntBen: 3},
	)
	summary := SummaryMetrics(bulk)

	byImp, err := summary.SortBy(ColTotImp, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, summaryPlatforms(byImp))

	byBen, err := summary.SortBy(ColFracBenObs, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, summaryPlatforms(byBen), "NaN sorts first")

	byBenDesc, err := summary.SortBy(ColFracBenObs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, summaryPlatforms(byBenDesc), "NaN sorts first in either direction")

	assert.Equal(t, []string{"C", "B", "A"}, summaryPlatforms(summary.SortByKey(true)))

	_, err = summary.SortBy("Bogus", true)
	assert.ErrorIs(t, err, ErrUsage)
}

func summaryPlatforms(s SummaryTable) []string {
	var out []string
	for _, r := range s.Rows() {
		out = append(out, r.Platform)
	}
	return out
}

func TestSummaryRow_JSONEncodesNaNAsNull(t *testing.T) {
	bulk := NewBulkTable(BulkRow{Key: Key{Platform: "Buoy"}, ObCnt: 3, ObCntNeu: 3, TotImp: -1})
	data, err := json.Marshal(SummaryMetrics(bulk))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FracBenObs":null`)

	var decoded SummaryTable
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsNaN(decoded.Rows()[0].FracBenObs))
	assert.InDelta(t, 100.0, decoded.Rows()[0].FracNeuObs, 1e-12)
}

func TestNewReport(t *testing.T) {
	fixed := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	mean := NewBulkTable(BulkRow{Key: Key{Platform: "AMSUA"}, TotImp: -2, ObCnt: 10, ObCntBen: 6})
	report := NewReport("run-1", "GMAO", mean, NewBulkTable())

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "GMAO", report.Center)
	assert.Equal(t, fixed, report.GeneratedAt)
	require.Equal(t, 1, report.Summary.Len())
	assert.InDelta(t, 60.0, report.Summary.Rows()[0].FracBenObs, 1e-12)
}
