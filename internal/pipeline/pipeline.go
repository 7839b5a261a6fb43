package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/observability"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

// ErrNoData means none of the requested cycles had an impact file.
var ErrNoData = errors.New("no impact data for the requested cycles")

// Loader reads one center's impact table for a cycle. A missing cycle is
// reported with an error wrapping source.ErrNotFound.
type Loader interface {
	Load(ctx context.Context, center string, date time.Time) (domain.Table, error)
}

// Sink receives every finished report.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report domain.Report) error
}

// Options controls the aggregation applied to each center. Grouping folds
// raw platform identifiers into canonical platforms.
type Options struct {
	Filter    domain.Filter
	Threshold float64
	Grouping  bool
}

// DefaultOptions selects the 00Z cycle and groups platforms.
func DefaultOptions() Options {
	return Options{
		Filter:    domain.Filter{Cycles: []int{0}},
		Threshold: domain.DefaultThreshold,
		Grouping:  true,
	}
}

// Runner aggregates impact files into one report per center.
type Runner struct {
	loader  Loader
	catalog *taxonomy.Catalog
	sinks   []Sink
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	reports map[string]domain.Report
	ready   atomic.Bool
}

// New creates a Runner. Sinks may be empty.
func New(loader Loader, catalog *taxonomy.Catalog, opts Options, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Runner {
	return &Runner{
		loader:  loader,
		catalog: catalog,
		sinks:   sinks,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		reports: make(map[string]domain.Report),
	}
}

// CheckReadiness returns nil once at least one center report is available,
// or an error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no center report has been produced yet")
	}
	return nil
}

// Report returns the latest report for center.
func (r *Runner) Report(center string) (domain.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[center]
	return rep, ok
}

// Reports returns the latest report of every center, ordered by center.
func (r *Runner) Reports() []domain.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep)
	}
	slices.SortFunc(out, func(a, b domain.Report) int { return cmp.Compare(a.Center, b.Center) })
	return out
}

// Run processes centers one at a time over the cycles between start and end.
// A failing center is logged and skipped; the returned error joins every
// center failure.
func (r *Runner) Run(ctx context.Context, centers []string, start, end time.Time) ([]domain.Report, error) {
	dates, err := CycleDates(start, end, r.opts.Filter.Cycles)
	if err != nil {
		return nil, err
	}

	r.logger.Info("pipeline started",
		"centers", len(centers),
		"cycles", len(dates),
		"start", start.UTC().Format(source.CycleFormat),
		"end", end.UTC().Format(source.CycleFormat),
	)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	var (
		reports []domain.Report
		errs    []error
	)
	for _, center := range centers {
		if ctx.Err() != nil {
			r.logger.Info("pipeline stopping", "reason", ctx.Err())
			errs = append(errs, ctx.Err())
			break
		}
		rep, err := r.RunCenter(ctx, center, dates)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", center, err))
			continue
		}
		reports = append(reports, rep)
	}

	r.logger.Info("pipeline finished", "reports", len(reports), "failed", len(errs))
	return reports, errors.Join(errs...)
}

// RunCenter aggregates one center over dates and hands the report to every
// sink. The report is kept for Report even when a sink fails.
func (r *Runner) RunCenter(ctx context.Context, center string, dates []time.Time) (domain.Report, error) {
	logger := r.logger.With("center", center)

	table, err := r.load(ctx, logger, center, dates)
	if err != nil {
		r.countOutcome(err)
		logger.Error("load failed", "error", err)
		return domain.Report{}, err
	}

	rep, err := r.aggregate(center, table)
	if err != nil {
		r.metrics.CentersProcessed.WithLabelValues("error").Inc()
		logger.Error("aggregation failed", "error", err)
		return domain.Report{}, err
	}
	rep.Cycles = slices.Clone(r.opts.Filter.Cycles)
	if len(dates) > 0 {
		rep.Start, rep.End = dates[0], dates[len(dates)-1]
	}

	r.mu.Lock()
	r.reports[center] = rep
	r.mu.Unlock()
	r.ready.Store(true)
	r.metrics.SummaryRows.WithLabelValues(center).Set(float64(rep.Summary.Len()))

	if err := r.publish(ctx, logger, rep); err != nil {
		r.metrics.CentersProcessed.WithLabelValues("error").Inc()
		return rep, err
	}

	r.metrics.CentersProcessed.WithLabelValues("success").Inc()
	logger.Info("center processed",
		"run_id", rep.RunID,
		"records", table.Len(),
		"platforms", rep.Summary.Len(),
	)
	return rep, nil
}

// BinCenter loads a center's cycles and bins them on a lat/lon(/pressure)
// grid after applying the runner's filter.
func (r *Runner) BinCenter(ctx context.Context, center string, dates []time.Time, opts domain.BinOptions) (domain.BinnedTable, error) {
	table, err := r.load(ctx, r.logger.With("center", center), center, dates)
	if err != nil {
		return domain.BinnedTable{}, err
	}
	selected, err := domain.SelectChecked(table, r.opts.Filter)
	if err != nil {
		return domain.BinnedTable{}, err
	}

	done := r.stage("bin")
	defer done()
	return domain.BinTable(selected, opts)
}

// BinRange bins a center over the runner's cycles between start and end.
func (r *Runner) BinRange(ctx context.Context, center string, start, end time.Time, opts domain.BinOptions) (domain.BinnedTable, error) {
	dates, err := CycleDates(start, end, r.opts.Filter.Cycles)
	if err != nil {
		return domain.BinnedTable{}, err
	}
	return r.BinCenter(ctx, center, dates, opts)
}

// load reads every available cycle. Missing cycles are skipped; a malformed
// file fails the whole center.
func (r *Runner) load(ctx context.Context, logger *slog.Logger, center string, dates []time.Time) (domain.Table, error) {
	done := r.stage("load")
	defer done()

	var tables []domain.Table
	for _, date := range dates {
		t, err := r.loader.Load(ctx, center, date)
		switch {
		case errors.Is(err, source.ErrNotFound):
			logger.Warn("cycle missing, skipping", "cycle", date.UTC().Format(source.CycleFormat))
			continue
		case errors.Is(err, domain.ErrParse):
			r.metrics.ParseErrors.Inc()
			return domain.Table{}, err
		case err != nil:
			return domain.Table{}, err
		}
		r.metrics.RecordsParsed.Add(float64(t.Len()))
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return domain.Table{}, ErrNoData
	}
	return tables[0].Concat(tables[1:]...), nil
}

// aggregate runs select, bulk, accumulate, group, time-average and summary.
func (r *Runner) aggregate(center string, table domain.Table) (domain.Report, error) {
	selected, err := domain.SelectChecked(table, r.opts.Filter)
	if err != nil {
		return domain.Report{}, err
	}

	done := r.stage("bulk")
	bulk := domain.BulkStats(selected, r.opts.Threshold)
	done()

	done = r.stage("accum")
	accum := domain.AccumBulkStats(bulk)
	done()

	if r.opts.Grouping {
		done = r.stage("group")
		accum = domain.GroupBulkStats(accum, r.catalog.ForCenter(center, r.logger))
		done()
	}

	done = r.stage("tavg")
	mean, std, err := domain.TimeAverage(accum, domain.LevelPlatform)
	done()
	if err != nil {
		return domain.Report{}, err
	}

	done = r.stage("summary")
	rep := domain.NewReport(uuid.NewString(), center, mean, std)
	done()
	return rep, nil
}

func (r *Runner) publish(ctx context.Context, logger *slog.Logger, rep domain.Report) error {
	if len(r.sinks) == 0 {
		return nil
	}
	done := r.stage("publish")
	defer done()

	var errs []error
	for _, s := range r.sinks {
		if err := s.Publish(ctx, rep); err != nil {
			logger.Error("publish failed", "sink", s.Name(), "run_id", rep.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// stage starts a timer for one aggregation stage.
func (r *Runner) stage(name string) func() {
	start := time.Now()
	return func() {
		r.metrics.AggregationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

func (r *Runner) countOutcome(err error) {
	outcome := "error"
	if errors.Is(err, ErrNoData) {
		outcome = "empty"
	}
	r.metrics.CentersProcessed.WithLabelValues(outcome).Inc()
}
