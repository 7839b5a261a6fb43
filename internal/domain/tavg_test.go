package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeAverage_ByPlatform(t *testing.T) {
	cycle06 := cycle00.Add(6 * time.Hour)
	cycle12 := cycle00.Add(12 * time.Hour)
	accum := NewBulkTable(
		BulkRow{Key: Key{DateTime: cycle00, Platform: "AMSUA"}, TotImp: -1, ObCnt: 10, ObCntBen: 6, ObCntNeu: 1},
		BulkRow{Key: Key{DateTime: cycle06, Platform: "AMSUA"}, TotImp: -3, ObCnt: 13, ObCntBen: 7, ObCntNeu: 2},
		BulkRow{Key: Key{DateTime: cycle12, Platform: "AMSUA"}, TotImp: -2, ObCnt: 11, ObCntBen: 8, ObCntNeu: 2},
		BulkRow{Key: Key{DateTime: cycle06, Platform: "GPSRO"}, TotImp: -0.5, ObCnt: 4, ObCntBen: 3},
	)

	mean, std, err := TimeAverage(accum, LevelPlatform)
	require.NoError(t, err)

	wantMean := []BulkRow{
		{Key: Key{Platform: "AMSUA"}, TotImp: -2, ObCnt: 11, ObCntBen: 7, ObCntNeu: 1},
		{Key: Key{Platform: "GPSRO"}, TotImp: -0.5, ObCnt: 4, ObCntBen: 3},
	}
	// Sample std of (-1,-3,-2) is 1; of (10,13,11) is 1.527 -> 1;
	// of (6,7,8) is 1; of (1,2,2) is 0.577 -> 0.
	wantStd := []BulkRow{
		{Key: Key{Platform: "AMSUA"}, TotImp: 1, ObCnt: 1, ObCntBen: 1, ObCntNeu: 0},
		{Key: Key{Platform: "GPSRO"}},
	}

	approx := cmpopts.EquateApprox(0, 1e-12)
	if diff := cmp.Diff(wantMean, mean.Rows(), approx); diff != "" {
		t.Errorf("mean mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantStd, std.Rows(), approx); diff != "" {
		t.Errorf("std mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeAverage_SingleSampleStdIsZero(t *testing.T) {
	bulk := NewBulkTable(BulkRow{Key: Key{DateTime: cycle00, Platform: "Ship"}, TotImp: -4, ObCnt: 9, ObCntBen: 5, ObCntNeu: 3})

	_, std, err := TimeAverage(bulk, LevelPlatform)
	require.NoError(t, err)
	row := std.Rows()[0]
	assert.False(t, math.IsNaN(row.TotImp))
	assert.Equal(t, 0.0, row.TotImp)
	assert.Equal(t, 0, row.ObCnt)
}

func TestTimeAverage_ByPlatformAndChannel(t *testing.T) {
	cycle06 := cycle00.Add(6 * time.Hour)
	bulk := NewBulkTable(
		BulkRow{Key: NewKey(cycle00, "IASI_METOP-A", "tb", 100), TotImp: -1, ObCnt: 2},
		BulkRow{Key: NewKey(cycle06, "IASI_METOP-A", "tb", 100), TotImp: -2, ObCnt: 4},
		BulkRow{Key: NewKey(cycle00, "IASI_METOP-A", "tb", 200), TotImp: 1, ObCnt: 1},
	)

	mean, _, err := TimeAverage(bulk, LevelChannel, LevelPlatform)
	require.NoError(t, err)
	rows := mean.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Key{Platform: "IASI_METOP-A", Channel: 100}, rows[0].Key)
	assert.InDelta(t, -1.5, rows[0].TotImp, 1e-12)
	assert.Equal(t, 3, rows[0].ObCnt)
	assert.Equal(t, Key{Platform: "IASI_METOP-A", Channel: 200}, rows[1].Key)
}

func TestTimeAverage_MeanCountsTruncate(t *testing.T) {
	cycle06 := cycle00.Add(6 * time.Hour)
	bulk := NewBulkTable(
		BulkRow{Key: Key{DateTime: cycle00, Platform: "Buoy"}, ObCnt: 2},
		BulkRow{Key: Key{DateTime: cycle06, Platform: "Buoy"}, ObCnt: 3},
	)
	mean, _, err := TimeAverage(bulk, LevelPlatform)
	require.NoError(t, err)
	assert.Equal(t, 2, mean.Rows()[0].ObCnt, "2.5 truncates to 2")
}

func TestTimeAverage_RequiresLevel(t *testing.T) {
	_, _, err := TimeAverage(NewBulkTable(), nil...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "level")

	_, _, err = TimeAverage(NewBulkTable(), Level(42))
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseLevels(t *testing.T) {
	levels, err := ParseLevels("Channel", " platform ", "channel")
	require.NoError(t, err)
	assert.Equal(t, []Level{LevelPlatform, LevelChannel}, levels)

	_, err = ParseLevels("latitude")
	assert.ErrorIs(t, err, ErrUsage)
}
