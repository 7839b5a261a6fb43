// Command validate checks the aggregation invariants against a directory of
// impact files: every file parses, each aggregation stage conserves impact
// and observation counts, time averages stay within the per-cycle range, and
// the summary ratios are consistent.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data-dir data/mock \
//	  -centers GMAO,NRL \
//	  -start 2020010100 -end 2020010700
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// centerData is one center's loaded cycles and the stages derived from them.
type centerData struct {
	center  string
	records int
	impact  float64
	bulk    domain.BulkTable
	accum   domain.BulkTable
	grouped domain.BulkTable
	mean    domain.BulkTable
	std     domain.BulkTable
	summary domain.SummaryTable
}

func main() {
	dataDir := flag.String("data-dir", "", "directory of <center>/<YYYYMMDDHH>.txt impact files")
	centersFlag := flag.String("centers", "GMAO,NRL,MET,MeteoFr,JMA_adj,JMA_ens,EMC", "comma-separated centers")
	startFlag := flag.String("start", "", "first cycle, YYYYMMDDHH")
	endFlag := flag.String("end", "", "last cycle, YYYYMMDDHH (defaults to -start)")
	cyclesFlag := flag.String("cycles", "0", "comma-separated cycle hours")
	threshold := flag.Float64("threshold", domain.DefaultThreshold, "neutral impact threshold")
	flag.Parse()

	if *dataDir == "" || *startFlag == "" {
		flag.Usage()
		os.Exit(1)
	}

	dates, cycles, err := cycleDates(*startFlag, *endFlag, *cyclesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if code := run(*dataDir, strings.Split(*centersFlag, ","), dates, cycles, *threshold); code != 0 {
		os.Exit(code)
	}
}

func cycleDates(startStr, endStr, cyclesStr string) ([]time.Time, []int, error) {
	start, err := pipeline.ParseCycle(startStr)
	if err != nil {
		return nil, nil, err
	}
	end := start
	if endStr != "" {
		if end, err = pipeline.ParseCycle(endStr); err != nil {
			return nil, nil, err
		}
	}
	var cycles []int
	for _, s := range strings.Split(cyclesStr, ",") {
		var h int
		if _, err := fmt.Sscan(strings.TrimSpace(s), &h); err != nil {
			return nil, nil, fmt.Errorf("invalid cycle %q", s)
		}
		cycles = append(cycles, h)
	}
	dates, err := pipeline.CycleDates(start, end, cycles)
	return dates, cycles, err
}

func run(dataDir string, centers []string, dates []time.Time, cycles []int, threshold float64) int {
	fmt.Println("=== FSOI Aggregation Validation ===")
	fmt.Println()

	catalog, err := taxonomy.Embedded()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load taxonomy: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loader := source.NewFileLoader(dataDir)
	filter := domain.Filter{Cycles: cycles}

	// ── Load and aggregate ──
	parsing := &phase{name: "Impact files parse"}
	var data []centerData
	missing := 0
	for _, center := range centers {
		center = strings.TrimSpace(center)
		cd, n := loadCenter(loader, parsing, center, dates, filter, threshold)
		missing += n
		if cd.records == 0 {
			continue
		}
		cd.grouped = domain.GroupBulkStats(cd.accum, catalog.ForCenter(center, logger))
		cd.mean, cd.std, err = domain.TimeAverage(cd.grouped, domain.LevelPlatform)
		if err != nil {
			parsing.errorf("%s: time average: %v", center, err)
			continue
		}
		cd.summary = domain.SummaryMetrics(cd.mean)
		data = append(data, cd)
	}

	// ── Run validation phases ──
	phases := []*phase{
		parsing,
		validateBulkConservation(data),
		validateStageConservation(data),
		validateTimeAverage(data),
		validateSummary(data),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	records := 0
	for _, cd := range data {
		records += cd.records
	}
	fmt.Printf("Centers: %d with data, %d cycles requested, %d files missing, %d records\n",
		len(data), len(dates), missing, records)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadCenter reads and bulks every cycle of center, returning the number of
// missing files.
func loadCenter(loader *source.FileLoader, p *phase, center string, dates []time.Time, filter domain.Filter, threshold float64) (centerData, int) {
	cd := centerData{center: center}
	var (
		tables  []domain.Table
		missing int
	)
	for _, date := range dates {
		t, err := loader.Load(context.Background(), center, date)
		switch {
		case errors.Is(err, source.ErrNotFound):
			missing++
			continue
		case err != nil:
			p.errorf("%s %s: %v", center, date.Format(source.CycleFormat), err)
			continue
		}
		tables = append(tables, domain.Select(t, filter))
	}
	if len(tables) == 0 {
		return cd, missing
	}

	all := tables[0].Concat(tables[1:]...)
	cd.records = all.Len()
	for _, r := range all.Records() {
		cd.impact += r.Impact
	}
	cd.bulk = domain.BulkStats(all, threshold)
	cd.accum = domain.AccumBulkStats(cd.bulk)
	return cd, missing
}

// ── Phase 2: bulk statistics ──

func validateBulkConservation(data []centerData) *phase {
	p := &phase{name: "Bulk statistics conserve records"}
	for _, cd := range data {
		tot := cd.bulk.Totals()
		if tot.ObCnt != cd.records {
			p.errorf("%s: ObCnt %d != %d records", cd.center, tot.ObCnt, cd.records)
		}
		if !near(tot.TotImp, cd.impact) {
			p.errorf("%s: TotImp %g != summed impact %g", cd.center, tot.TotImp, cd.impact)
		}
		for _, r := range cd.bulk.Rows() {
			if r.ObCntBen+r.ObCntNeu > r.ObCnt {
				p.errorf("%s %s/%s/%d: beneficial %d + neutral %d exceed %d observations",
					cd.center, r.Platform, r.ObType, r.Channel, r.ObCntBen, r.ObCntNeu, r.ObCnt)
			}
		}
	}
	return p
}

// ── Phase 3: accumulation and grouping ──

func validateStageConservation(data []centerData) *phase {
	p := &phase{name: "Accumulation and grouping conserve totals"}
	for _, cd := range data {
		want := cd.bulk.Totals()
		for name, b := range map[string]domain.BulkTable{"accum": cd.accum, "group": cd.grouped} {
			got := b.Totals()
			if got.ObCnt != want.ObCnt || got.ObCntBen != want.ObCntBen || got.ObCntNeu != want.ObCntNeu {
				p.errorf("%s %s: counts %d/%d/%d != bulk %d/%d/%d", cd.center, name,
					got.ObCnt, got.ObCntBen, got.ObCntNeu, want.ObCnt, want.ObCntBen, want.ObCntNeu)
			}
			if !near(got.TotImp, want.TotImp) {
				p.errorf("%s %s: TotImp %g != bulk %g", cd.center, name, got.TotImp, want.TotImp)
			}
		}
		if cd.grouped.Len() > cd.accum.Len() {
			p.errorf("%s: grouping produced more rows (%d) than accumulation (%d)", cd.center, cd.grouped.Len(), cd.accum.Len())
		}
	}
	return p
}

// ── Phase 4: time average ──

func validateTimeAverage(data []centerData) *phase {
	p := &phase{name: "Time average within cycle range"}
	for _, cd := range data {
		lo := map[string]float64{}
		hi := map[string]float64{}
		for _, r := range cd.grouped.Rows() {
			if v, ok := lo[r.Platform]; !ok || r.TotImp < v {
				lo[r.Platform] = r.TotImp
			}
			if v, ok := hi[r.Platform]; !ok || r.TotImp > v {
				hi[r.Platform] = r.TotImp
			}
		}
		for _, r := range cd.mean.Rows() {
			if !r.DateTime.IsZero() {
				p.errorf("%s %s: mean row keeps a cycle time", cd.center, r.Platform)
			}
			if r.TotImp < lo[r.Platform]-tolerance || r.TotImp > hi[r.Platform]+tolerance {
				p.errorf("%s %s: mean %g outside [%g, %g]", cd.center, r.Platform, r.TotImp, lo[r.Platform], hi[r.Platform])
			}
		}
		for _, r := range cd.std.Rows() {
			if r.TotImp < 0 || math.IsNaN(r.TotImp) {
				p.errorf("%s %s: standard deviation %g", cd.center, r.Platform, r.TotImp)
			}
		}
	}
	return p
}

// ── Phase 5: summary metrics ──

func validateSummary(data []centerData) *phase {
	p := &phase{name: "Summary ratios consistent"}
	for _, cd := range data {
		var frac float64
		for _, r := range cd.summary.Rows() {
			if isFinite(r.FracImp) {
				frac += r.FracImp
			}
			if isFinite(r.ImpPerOb) && !near(r.ImpPerOb*float64(r.ObCnt), r.TotImp) {
				p.errorf("%s %s: ImpPerOb x ObCnt %g != TotImp %g", cd.center, r.Platform, r.ImpPerOb*float64(r.ObCnt), r.TotImp)
			}
			for col, v := range map[string]float64{domain.ColFracBenObs: r.FracBenObs, domain.ColFracNeuObs: r.FracNeuObs} {
				if isFinite(v) && (v < -tolerance || v > 100+tolerance) {
					p.errorf("%s %s: %s %g outside [0, 100]", cd.center, r.Platform, col, v)
				}
			}
		}
		if cd.mean.Totals().TotImp != 0 && !near(frac, 100) {
			p.errorf("%s: FracImp sums to %g, want 100", cd.center, frac)
		}
	}
	return p
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
