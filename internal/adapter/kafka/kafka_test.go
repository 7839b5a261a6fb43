package kafka

import (
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

func testReport() domain.Report {
	cycle := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mean := domain.NewBulkTable(
		domain.BulkRow{Key: domain.Key{Platform: "AMSUA"}, TotImp: -2, ObCnt: 10, ObCntBen: 6, ObCntNeu: 1},
		domain.BulkRow{Key: domain.Key{Platform: "Dropsonde"}, TotImp: 0, ObCnt: 0},
	)
	std := domain.NewBulkTable(
		domain.BulkRow{Key: domain.Key{Platform: "AMSUA"}, TotImp: 0.1},
		domain.BulkRow{Key: domain.Key{Platform: "Dropsonde"}},
	)
	r := domain.NewReport("run-1", "GMAO", mean, std)
	r.Cycles = []int{0}
	r.Start, r.End = cycle, cycle.Add(24*time.Hour)
	r.GeneratedAt = time.Date(2020, 1, 3, 6, 0, 0, 0, time.UTC)
	return r
}

func TestSerializeToMessage(t *testing.T) {
	report := testReport()

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("GMAO"), msg.Key)
	assert.Contains(t, string(msg.Value), `"center":"GMAO"`)
	assert.Contains(t, string(msg.Value), `"ImpPerOb":null`, "undefined ratios are encoded as null")
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "center", msg.Headers[1].Key)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2020-01-03T06:00:00Z"), msg.Headers[2].Value)
}

func TestDecodeReport(t *testing.T) {
	report := testReport()
	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	got, err := DecodeReport(msg)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Center, got.Center)
	assert.Equal(t, report.Cycles, got.Cycles)
	assert.True(t, report.Start.Equal(got.Start))
	assert.Equal(t, report.Mean.Rows(), got.Mean.Rows())
	require.Equal(t, 2, got.Summary.Len())
	assert.True(t, math.IsNaN(got.Summary.Rows()[1].ImpPerOb), "null decodes back to NaN")

	_, err = DecodeReport(kafkago.Message{Value: []byte("{")})
	assert.Error(t, err)
}
