package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Centers          []string
	DataDir          string
	Cycles           []int
	Threshold        float64
	PlatformGrouping bool
	TaxonomyPath     string
	ExportPath       string

	// Remote impact files, used instead of DataDir when DataURL is set.
	DataURL     string
	HTTPTimeout time.Duration
	CacheSize   int

	KafkaBrokers      []string
	KafkaSummaryTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

const defaultCenters = "GMAO,NRL,MET,MeteoFr,JMA_adj,JMA_ens,EMC"

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cycles, err := parseCycles(sharedcfg.EnvOrDefault("FSOI_CYCLES", "0"))
	if err != nil {
		return nil, err
	}

	threshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FSOI_THRESHOLD", "1e-10"), 64)
	if err != nil || threshold < 0 {
		return nil, errors.New("invalid FSOI_THRESHOLD")
	}

	grouping, err := strconv.ParseBool(sharedcfg.EnvOrDefault("FSOI_PLATFORM_GROUPING", "true"))
	if err != nil {
		return nil, errors.New("invalid FSOI_PLATFORM_GROUPING")
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FSOI_HTTP_TIMEOUT", "30s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid FSOI_HTTP_TIMEOUT")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("FSOI_CACHE_SIZE", "64"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid FSOI_CACHE_SIZE")
	}

	cfg := &Config{
		Centers:          splitList(sharedcfg.EnvOrDefault("FSOI_CENTERS", defaultCenters)),
		DataDir:          sharedcfg.EnvOrDefault("FSOI_DATA_DIR", "data"),
		Cycles:           cycles,
		Threshold:        threshold,
		PlatformGrouping: grouping,
		TaxonomyPath:     os.Getenv("FSOI_TAXONOMY_PATH"),
		ExportPath:       os.Getenv("FSOI_EXPORT_PATH"),

		DataURL:     strings.TrimRight(os.Getenv("FSOI_DATA_URL"), "/"),
		HTTPTimeout: httpTimeout,
		CacheSize:   cacheSize,

		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "fsoi-summary"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if len(cfg.Centers) == 0 {
		return nil, errors.New("FSOI_CENTERS is required")
	}
	if cfg.DataDir == "" && cfg.DataURL == "" {
		return nil, errors.New("FSOI_DATA_DIR or FSOI_DATA_URL is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Filter returns the selector applied to every loaded table.
func (c *Config) Filter() domain.Filter {
	return domain.Filter{Cycles: c.Cycles}
}

// parseBrokers leaves publishing disabled when KAFKA_BROKERS is unset.
func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCycles(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, errors.New("FSOI_CYCLES is required")
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 23 {
			return nil, fmt.Errorf("invalid FSOI_CYCLES entry %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
