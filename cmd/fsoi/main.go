// Command fsoi aggregates forecast sensitivity observation impact files into
// per-center summary reports and optionally serves them over HTTP.
//
// Usage:
//
//	go run ./cmd/fsoi -start 2020010100 -end 2020013100 [-centers GMAO,NRL] [-serve]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	httpadapter "github.com/couchcryptid/fsoi-stats/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fsoi-stats/internal/adapter/kafka"
	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/adapter/sqlite"
	"github.com/couchcryptid/fsoi-stats/internal/config"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/observability"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

func main() {
	startFlag := flag.String("start", "", "first cycle, YYYYMMDDHH (required)")
	endFlag := flag.String("end", "", "last cycle, YYYYMMDDHH (defaults to -start)")
	centersFlag := flag.String("centers", "", "comma-separated centers (overrides FSOI_CENTERS)")
	serve := flag.Bool("serve", false, "keep serving reports over HTTP after the run")
	quiet := flag.Bool("quiet", false, "do not print summary tables")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	start, end, err := cycleRange(*startFlag, *endFlag)
	if err != nil {
		logger.Error("invalid cycle range", "error", err)
		flag.Usage()
		os.Exit(2)
	}
	centers := cfg.Centers
	if *centersFlag != "" {
		centers = nil
		for _, c := range strings.Split(*centersFlag, ",") {
			if c = strings.TrimSpace(c); c != "" {
				centers = append(centers, c)
			}
		}
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("failed to load platform taxonomy", "error", err)
		os.Exit(1)
	}

	var loader source.Loader
	if cfg.DataURL != "" {
		loader = source.NewHTTPLoader(cfg.DataURL, cfg.HTTPTimeout, logger)
		logger.Info("reading impact files over http", "url", cfg.DataURL, "timeout", cfg.HTTPTimeout)
	} else {
		loader = source.NewFileLoader(cfg.DataDir)
		logger.Info("reading impact files from disk", "dir", cfg.DataDir)
	}
	loader = source.NewCachedLoader(loader, cfg.CacheSize, metrics)

	// Sinks are feature-flagged via FSOI_EXPORT_PATH and KAFKA_BROKERS.
	var (
		sinks   []pipeline.Sink
		closers []io.Closer
	)
	if cfg.ExportPath != "" {
		exporter, err := sqlite.NewExporter(cfg.ExportPath)
		if err != nil {
			logger.Error("failed to open sqlite export", "path", cfg.ExportPath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, exporter)
		closers = append(closers, exporter)
		logger.Info("sqlite export enabled", "path", cfg.ExportPath)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		closers = append(closers, publisher)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSummaryTopic)
	}

	opts := pipeline.Options{
		Filter:    cfg.Filter(),
		Threshold: cfg.Threshold,
		Grouping:  cfg.PlatformGrouping,
	}
	runner := pipeline.New(loader, catalog, opts, logger, metrics, sinks...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if *serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	reports, runErr := runner.Run(ctx, centers, start, end)
	if runErr != nil {
		logger.Error("pipeline finished with errors", "error", runErr)
	}
	if !*quiet {
		for _, rep := range reports {
			printSummary(os.Stdout, rep)
		}
	}

	if srv != nil {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}
	logger.Info("shutdown complete")

	if runErr != nil && len(reports) == 0 {
		os.Exit(1)
	}
}

func cycleRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" {
		return time.Time{}, time.Time{}, errors.New("-start is required")
	}
	start, err := pipeline.ParseCycle(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endStr == "" {
		return start, start, nil
	}
	end, err := pipeline.ParseCycle(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// loadCatalog prefers FSOI_TAXONOMY_PATH over the built-in platform lists.
func loadCatalog(cfg *config.Config) (*taxonomy.Catalog, error) {
	if cfg.TaxonomyPath != "" {
		return taxonomy.LoadFile(cfg.TaxonomyPath)
	}
	return taxonomy.Embedded()
}

func printSummary(w io.Writer, rep domain.Report) {
	fmt.Fprintf(w, "\n%s  run %s  %s to %s\n", rep.Center, rep.RunID,
		rep.Start.Format(source.CycleFormat), rep.End.Format(source.CycleFormat))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Platform\tTotImp\tObCnt\tImpPerOb\tFracBenObs\tFracNeuObs\tFracImp\t")
	for _, r := range rep.Summary.Rows() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Platform,
			formatFloat(r.TotImp, 3),
			humanize.Comma(int64(r.ObCnt)),
			formatFloat(r.ImpPerOb, 6),
			formatFloat(r.FracBenObs, 1),
			formatFloat(r.FracNeuObs, 1),
			formatFloat(r.FracImp, 1),
		)
	}
	tw.Flush() //nolint:errcheck // console output
}

func formatFloat(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(v, digits)
}
