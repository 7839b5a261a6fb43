//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/kafka"
	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/adapter/sqlite"
	"github.com/couchcryptid/fsoi-stats/internal/config"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/observability"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

const testSummaryTopic = "test-summary"

var (
	cycle1 = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	cycle2 = cycle1.Add(24 * time.Hour)
)

type receivedReport struct {
	Report  domain.Report
	Key     string
	Headers map[string]string
}

// readReport reads one message from the summary topic and decodes it.
func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedReport {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	rep, err := kafka.DecodeReport(msg)
	require.NoError(t, err)
	return receivedReport{Report: rep, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// writeImpactFile lays out an ASCII impact file the way FileLoader expects.
func writeImpactFile(t *testing.T, dir, center string, date time.Time, body string) {
	t.Helper()
	path := filepath.Join(dir, source.CyclePath(center, date))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// TestPublisherRoundTrip verifies that a report survives Kafka unchanged.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: testSummaryTopic}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	mean := domain.NewBulkTable(
		domain.BulkRow{Key: domain.Key{Platform: "AMSUA"}, TotImp: -12.5, ObCnt: 4000, ObCntBen: 2200, ObCntNeu: 40},
		domain.BulkRow{Key: domain.Key{Platform: "GPSRO"}, TotImp: -3, ObCnt: 900, ObCntBen: 500},
	)
	report := domain.NewReport("run-42", "GMAO", mean, domain.NewBulkTable())
	report.Cycles = []int{0}
	require.NoError(t, pub.Publish(ctx, report))

	got := readReport(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "GMAO", got.Key)
	assert.Equal(t, "run-42", got.Headers["run_id"])
	assert.Equal(t, "GMAO", got.Headers["center"])
	_, err := time.Parse(time.RFC3339, got.Headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")

	assert.Equal(t, report.RunID, got.Report.RunID)
	assert.Equal(t, []int{0}, got.Report.Cycles)
	assert.Equal(t, mean.Rows(), got.Report.Mean.Rows())
	assert.Equal(t, report.Summary.Len(), got.Report.Summary.Len())
}

// TestPipelineEndToEnd runs impact files on disk through the runner into
// both Kafka and SQLite.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	dataDir := t.TempDir()
	writeImpactFile(t, dataDir, "NRL", cycle1, `
SSMIS_F17   tb  3   20.0 -20.0 -999.0 -0.4  0.1 0.2
SSMIS_F18   tb  3   21.0 -21.0 -999.0 -0.2  0.1 0.2
Ship        ps  0   30.0 -30.0 1000.0  0.1  0.1 0.2
`)
	writeImpactFile(t, dataDir, "NRL", cycle2, `
SSMIS_F17   tb  3   20.0 -20.0 -999.0 -0.6  0.1 0.2
Ship        ps  0   30.0 -30.0 1000.0 -0.1  0.1 0.2
`)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: testSummaryTopic}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	exporter, err := sqlite.NewExporter(filepath.Join(t.TempDir(), "fsoi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exporter.Close() })

	catalog, err := taxonomy.Embedded()
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	loader := source.NewCachedLoader(source.NewFileLoader(dataDir), 8, metrics)
	runner := pipeline.New(loader, catalog, pipeline.DefaultOptions(), discardLogger(), metrics, pub, exporter)

	reports, err := runner.Run(ctx, []string{"NRL"}, cycle1, cycle2)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	got := readReport(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "NRL", got.Key)
	assert.Equal(t, reports[0].RunID, got.Report.RunID)

	ssmis, ok := got.Report.Mean.Lookup(domain.Key{Platform: "SSMIS"})
	require.True(t, ok, "SSMIS satellites are grouped")
	assert.InDelta(t, -0.6, ssmis.TotImp, 1e-9)

	stored, err := exporter.Latest(ctx, "NRL")
	require.NoError(t, err)
	assert.Equal(t, reports[0].RunID, stored.RunID)
	assert.Equal(t, got.Report.Summary.Len(), stored.Summary.Len())
}
