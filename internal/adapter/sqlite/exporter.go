// Package sqlite archives center reports in a SQLite database so summaries
// can be compared across runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// Exporter writes reports to SQLite. It implements pipeline.Sink.
type Exporter struct {
	db *sql.DB
}

// NewExporter opens (or creates) the database at path.
func NewExporter(path string) (*Exporter, error) {
	if path == "" {
		return nil, errors.New("sqlite export: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite export: ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite export: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite export: schema: %w", err)
	}
	return &Exporter{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    center TEXT NOT NULL,
    cycles TEXT,
    start_at INTEGER,
    end_at INTEGER,
    generated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_center ON runs(center, generated_at);
CREATE TABLE IF NOT EXISTS summary_rows (
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    platform TEXT NOT NULL,
    obtype TEXT,
    channel INTEGER,
    tot_imp REAL,
    tot_imp_std REAL,
    ob_cnt INTEGER,
    imp_per_ob REAL,
    frac_ben_obs REAL,
    frac_neu_obs REAL,
    frac_imp REAL
);`
	_, err := db.Exec(schema)
	return err
}

// Name identifies the sink in logs.
func (e *Exporter) Name() string { return "sqlite" }

// Publish stores the report and its summary rows in one transaction.
// Non-finite ratios are stored as NULL.
func (e *Exporter) Publish(ctx context.Context, report domain.Report) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite export: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (run_id, center, cycles, start_at, end_at, generated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Center,
		joinInts(report.Cycles),
		unixOrNull(report.Start),
		unixOrNull(report.End),
		report.GeneratedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite export: insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO summary_rows (
    run_id, platform, obtype, channel, tot_imp, tot_imp_std, ob_cnt,
    imp_per_ob, frac_ben_obs, frac_neu_obs, frac_imp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite export: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Summary.Rows() {
		var std sql.NullFloat64
		if sd, ok := report.Std.Lookup(r.Key); ok {
			std = nullFloat(sd.TotImp)
		}
		_, err := stmt.ExecContext(ctx,
			report.RunID,
			r.Platform,
			r.ObType,
			r.Channel,
			nullFloat(r.TotImp),
			std,
			r.ObCnt,
			nullFloat(r.ImpPerOb),
			nullFloat(r.FracBenObs),
			nullFloat(r.FracNeuObs),
			nullFloat(r.FracImp),
		)
		if err != nil {
			return fmt.Errorf("sqlite export: insert %s row: %w", r.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite export: commit: %w", err)
	}
	return nil
}

// StoredRun is a run read back from the archive.
type StoredRun struct {
	RunID       string
	Center      string
	Cycles      []int
	GeneratedAt time.Time
	Summary     domain.SummaryTable
}

// Latest returns the most recent run stored for center.
func (e *Exporter) Latest(ctx context.Context, center string) (StoredRun, error) {
	var (
		run       StoredRun
		cycles    sql.NullString
		generated int64
	)
	err := e.db.QueryRowContext(ctx, `
SELECT run_id, center, cycles, generated_at FROM runs
WHERE center = ? ORDER BY generated_at DESC, rowid DESC LIMIT 1`, center).
		Scan(&run.RunID, &run.Center, &cycles, &generated)
	if err != nil {
		return StoredRun{}, fmt.Errorf("sqlite export: latest %s run: %w", center, err)
	}
	run.GeneratedAt = time.Unix(generated, 0).UTC()
	if run.Cycles, err = splitInts(cycles.String); err != nil {
		return StoredRun{}, fmt.Errorf("sqlite export: run %s cycles: %w", run.RunID, err)
	}

	rows, err := e.db.QueryContext(ctx, `
SELECT platform, obtype, channel, tot_imp, ob_cnt, imp_per_ob, frac_ben_obs, frac_neu_obs, frac_imp
FROM summary_rows WHERE run_id = ? ORDER BY rowid`, run.RunID)
	if err != nil {
		return StoredRun{}, fmt.Errorf("sqlite export: query rows: %w", err)
	}
	defer rows.Close()

	var out []domain.SummaryRow
	for rows.Next() {
		var r domain.SummaryRow
		var obtype sql.NullString
		var tot, perOb, fracBen, fracNeu, fracImp sql.NullFloat64
		if err := rows.Scan(&r.Platform, &obtype, &r.Channel, &tot, &r.ObCnt, &perOb, &fracBen, &fracNeu, &fracImp); err != nil {
			return StoredRun{}, fmt.Errorf("sqlite export: scan row: %w", err)
		}
		r.ObType = obtype.String
		r.TotImp = floatOrNaN(tot)
		r.ImpPerOb = floatOrNaN(perOb)
		r.FracBenObs = floatOrNaN(fracBen)
		r.FracNeuObs = floatOrNaN(fracNeu)
		r.FracImp = floatOrNaN(fracImp)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return StoredRun{}, fmt.Errorf("sqlite export: read rows: %w", err)
	}
	run.Summary = domain.NewSummaryTable(out...)
	return run, nil
}

func (e *Exporter) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func unixOrNull(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
