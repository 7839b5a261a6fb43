package pipeline_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fsoi-stats/internal/chart"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
)

func compareReports() []domain.Report {
	gmao := domain.NewBulkTable(
		domain.BulkRow{Key: domain.Key{Platform: "AMSUA"}, TotImp: -30, ObCnt: 100, ObCntBen: 60},
		domain.BulkRow{Key: domain.Key{Platform: "Radiosonde"}, TotImp: -10, ObCnt: 50, ObCntBen: 30},
	)
	nrl := domain.NewBulkTable(
		domain.BulkRow{Key: domain.Key{Platform: "AMSUA"}, TotImp: -5, ObCnt: 20, ObCntBen: 12},
		domain.BulkRow{Key: domain.Key{Platform: "Ship"}, TotImp: -5, ObCnt: 10, ObCntBen: 6},
	)
	return []domain.Report{
		domain.NewReport("run-gmao", "GMAO", gmao, domain.NewBulkTable()),
		domain.NewReport("run-nrl", "NRL", nrl, domain.NewBulkTable()),
	}
}

func TestCompareTable_UnionOfPlatforms(t *testing.T) {
	c, err := pipeline.CompareTable(compareReports(), domain.ColFracImp, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"AMSUA", "Radiosonde", "Ship"}, c.Platforms)
	assert.Equal(t, []string{"GMAO", "NRL"}, c.Centers)
	assert.Equal(t, chart.ComparePalette([]string{"GMAO", "NRL"}), c.Palette)

	require.Len(t, c.Values, 3)
	assert.InDelta(t, 75.0, c.Values[0][0], 1e-9)
	assert.InDelta(t, 50.0, c.Values[0][1], 1e-9)
	assert.InDelta(t, 25.0, c.Values[1][0], 1e-9)
	assert.True(t, math.IsNaN(c.Values[1][1]), "NRL has no Radiosonde")
	assert.True(t, math.IsNaN(c.Values[2][0]), "GMAO has no Ship")
}

func TestCompareTable_ExplicitPlatforms(t *testing.T) {
	c, err := pipeline.CompareTable(compareReports(), domain.ColObCnt, []string{"Ship", "AMSUA", "GPSRO"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ship", "AMSUA", "GPSRO"}, c.Platforms)
	assert.True(t, math.IsNaN(c.Values[0][0]))
	assert.Equal(t, 10.0, c.Values[0][1])
	assert.Equal(t, []float64{100, 20}, c.Values[1])
	assert.True(t, math.IsNaN(c.Values[2][0]))
	assert.True(t, math.IsNaN(c.Values[2][1]))
}

func TestCompareTable_UnknownColumn(t *testing.T) {
	_, err := pipeline.CompareTable(compareReports(), "Bogus", nil)
	require.ErrorIs(t, err, domain.ErrUsage)
}

func TestComparison_MarshalJSON(t *testing.T) {
	c, err := pipeline.CompareTable(compareReports(), domain.ColTotImp, []string{"Radiosonde"})
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got struct {
		Quantity  string       `json:"quantity"`
		Platforms []string     `json:"platforms"`
		Values    [][]*float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, domain.ColTotImp, got.Quantity)
	require.Len(t, got.Values, 1)
	require.NotNil(t, got.Values[0][0])
	assert.Equal(t, -10.0, *got.Values[0][0])
	assert.Nil(t, got.Values[0][1], "missing values encode as null")
}
