package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

var (
	day1 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
)

// Two 00Z cycles for GMAO. After grouping, AMSUA has impacts -2.0 and -2.0
// and Radiosonde -1.7 and -1.0.
const (
	gmaoDay1 = `AMSUA_N18   tb  5   10.0  10.0 -999.0 -1.0  0.1 0.2
AMSUA_N18   tb  5   11.0  11.0 -999.0 -0.5  0.1 0.2
AMSUA_N19   tb  6   12.0  12.0 -999.0 -0.5  0.1 0.2
RAOB        t   0   13.0  13.0  500.0 -2.0  0.1 0.2
Radiosonde  t   0   14.0  14.0  850.0  0.3  0.1 0.2
`
	gmaoDay2 = `AMSUA_N18   tb  5   10.0  10.0 -999.0 -2.0  0.1 0.2
Radiosonde  t   0   14.0  14.0  850.0 -1.0  0.1 0.2
`
	nrlDay1 = `SSMIS_F17   tb  3   20.0 -20.0 -999.0 -0.4  0.1 0.2
Ship        ps  0   30.0 -30.0 1000.0  0.0  0.1 0.2
`
)

// memoryLoader serves ASCII impact files from memory.
type memoryLoader struct {
	mu    sync.Mutex
	files map[string]string
	calls int
}

func newMemoryLoader(files map[string]string) *memoryLoader {
	return &memoryLoader{files: files}
}

func (m *memoryLoader) Load(_ context.Context, center string, date time.Time) (domain.Table, error) {
	m.mu.Lock()
	m.calls++
	body, ok := m.files[source.CyclePath(center, date)]
	m.mu.Unlock()
	if !ok {
		return domain.Table{}, fmt.Errorf("%s: %w", center, source.ErrNotFound)
	}
	return domain.ReadASCII(strings.NewReader(body), date)
}

func defaultFiles() map[string]string {
	return map[string]string{
		source.CyclePath("GMAO", day1): gmaoDay1,
		source.CyclePath("GMAO", day2): gmaoDay2,
		source.CyclePath("NRL", day1):  nrlDay1,
	}
}

type recordingSink struct {
	mu      sync.Mutex
	reports []domain.Report
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, r domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, r)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func embeddedCatalog(t *testing.T) *taxonomy.Catalog {
	t.Helper()
	cat, err := taxonomy.Embedded()
	require.NoError(t, err)
	return cat
}

// metricValue reads the current value of a counter or gauge.
func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	switch {
	case m.Counter != nil:
		return m.GetCounter().GetValue()
	case m.Gauge != nil:
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric is neither a counter nor a gauge")
	return 0
}
