package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/fsoi-stats/internal/chart"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

// Service is the read side of the aggregation pipeline.
type Service interface {
	sharedobs.ReadinessChecker
	Report(center string) (domain.Report, bool)
	Reports() []domain.Report
	BinRange(ctx context.Context, center string, start, end time.Time, opts domain.BinOptions) (domain.BinnedTable, error)
}

// Server exposes health, readiness, metrics and the summary endpoints.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the following routes:
//
//	GET /healthz, /readyz, /metrics
//	GET /summary                 latest report of every center
//	GET /summary/{center}        latest report of one center
//	GET /chart/{center}?qty=     bar chart data for one center
//	GET /compare?qty=&kind=      one quantity across centers
//	GET /bins/{center}?start=&end=&dlat=&dlon=&dpres=
func NewServer(addr string, svc Service, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /summary", s.handleReports)
	mux.HandleFunc("GET /summary/{center}", s.handleReport)
	mux.HandleFunc("GET /chart/{center}", s.handleChart)
	mux.HandleFunc("GET /compare", s.handleCompare)
	mux.HandleFunc("GET /bins/{center}", s.handleBins)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Reports())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := []chart.Option{
		chart.WithCenter(rep.Center),
		chart.WithDomain(q.Get("domain")),
		chart.WithCycles(rep.Cycles...),
		chart.WithFinite(true),
	}
	if v := q.Get("log"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, &domain.UsageError{Op: "chart", Msg: "log must be a boolean"})
			return
		}
		opts = append(opts, chart.WithLogScale(on))
	}
	if q.Has("cmin") || q.Has("cmax") {
		cmin, err1 := strconv.ParseFloat(q.Get("cmin"), 64)
		cmax, err2 := strconv.ParseFloat(q.Get("cmax"), 64)
		if err := errors.Join(err1, err2); err != nil {
			s.writeError(w, &domain.UsageError{Op: "chart", Msg: "cmin and cmax must both be numbers"})
			return
		}
		opts = append(opts, chart.WithColorRange(cmin, cmax))
	}

	o, err := chart.NewOptions(quantity(q.Get("qty")), opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	plot, err := chart.Summary(rep.Summary, rep.Std, o)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var platforms []string
	if kind := q.Get("kind"); kind != "" {
		var err error
		if platforms, err = taxonomy.RefPlatforms(kind); err != nil {
			s.writeError(w, err)
			return
		}
	}

	reports := s.svc.Reports()
	if names := q.Get("centers"); names != "" {
		reports = pick(reports, strings.Split(names, ","))
	}

	c, err := pipeline.CompareTable(reports, string(quantity(q.Get("qty"))), platforms)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := pipeline.ParseCycle(q.Get("start"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	end := start
	if v := q.Get("end"); v != "" {
		if end, err = pipeline.ParseCycle(v); err != nil {
			s.writeError(w, err)
			return
		}
	}

	opts := domain.DefaultBinOptions()
	if opts.DLat, err = floatParam(q.Get("dlat"), opts.DLat); err != nil {
		s.writeError(w, err)
		return
	}
	if opts.DLon, err = floatParam(q.Get("dlon"), opts.DLon); err != nil {
		s.writeError(w, err)
		return
	}
	if v := q.Get("dpres"); v != "" {
		dpres, err := floatParam(v, 0)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts.DPres = &dpres
	}

	binned, err := s.svc.BinRange(r.Context(), r.PathValue("center"), start, end, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binned.Rows())
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) (domain.Report, bool) {
	center := r.PathValue("center")
	rep, ok := s.svc.Report(center)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report for center " + center})
	}
	return rep, ok
}

// writeError maps usage errors to 400 and missing data to 404.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUsage):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoData):
		status = http.StatusNotFound
	default:
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// quantity defaults to total impact.
func quantity(s string) chart.Quantity {
	if s == "" {
		return chart.TotImp
	}
	return chart.Quantity(s)
}

func floatParam(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &domain.UsageError{Op: "bins", Msg: "invalid number " + strconv.Quote(s)}
	}
	return v, nil
}

// pick keeps the reports of the named centers, in the order named.
func pick(reports []domain.Report, names []string) []domain.Report {
	byCenter := make(map[string]domain.Report, len(reports))
	for _, rep := range reports {
		byCenter[rep.Center] = rep
	}
	var out []domain.Report
	for _, n := range names {
		if rep, ok := byCenter[strings.TrimSpace(n)]; ok {
			out = append(out, rep)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
