package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// HTTPLoader fetches impact files from a mirror laid out like the local
// archive: <baseURL>/<center>/<YYYYMMDDHH>.txt.
type HTTPLoader struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewHTTPLoader creates a loader for baseURL.
func NewHTTPLoader(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPLoader {
	return &HTTPLoader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Load downloads and parses one center's cycle file.
func (l *HTTPLoader) Load(ctx context.Context, center string, date time.Time) (domain.Table, error) {
	u := l.baseURL + "/" + CyclePath(center, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Table{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.Table{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Table{}, fmt.Errorf("%s %s: %w", center, date.UTC().Format(CycleFormat), ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Table{}, fmt.Errorf("fetch %s: status %d: %s", u, resp.StatusCode, body)
	}

	t, err := domain.ReadASCII(resp.Body, date)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%s: %w", u, err)
	}
	l.logger.Debug("impact file fetched",
		"center", center,
		"cycle", date.UTC().Format(CycleFormat),
		"records", t.Len(),
		"duration", time.Since(start),
	)
	return t, nil
}
