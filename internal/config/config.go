// Package config assembles runtime configuration from the environment and
// an optional thresholds file. Binaries call godotenv.Load first so a local
// .env behaves like real environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/billscan/internal/detect"
	"github.com/dvloznov/billscan/internal/statement"
)

// Config is everything the binaries need to wire their dependencies.
type Config struct {
	// Gemini classification. An empty APIKey disables the AI path and the
	// controller runs rules only.
	GeminiAPIKey        string
	GeminiModel         string
	ClassifyTimeout     time.Duration
	ClassifyBatchSize   int
	ClassifyConcurrency int

	// Detector thresholds, optionally overridden from ThresholdsPath.
	Detect         detect.Config
	ThresholdsPath string

	// Currency code stamped on parsed transactions; statements in scope
	// carry no currency column of their own.
	Currency string

	// BigQuery persistence. Empty ProjectID disables the sink.
	BigQueryProject string
	BigQueryDataset string

	// GCS statement fetching for the worker.
	GCSBucket string

	// Notion export. Empty token disables it.
	NotionToken    string
	NotionDatabase string

	// HTTP API.
	ListenAddr string
}

// FromEnv reads configuration from the environment, applying defaults for
// everything optional.
func FromEnv() (Config, error) {
	cfg := Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		ClassifyTimeout:     45 * time.Second,
		ClassifyBatchSize:   envIntOr("CLASSIFY_BATCH_SIZE", 100),
		ClassifyConcurrency: envIntOr("CLASSIFY_CONCURRENCY", 2),
		Detect:              detect.DefaultConfig(),
		ThresholdsPath:      os.Getenv("DETECT_THRESHOLDS_FILE"),
		Currency:            envOr("STATEMENT_CURRENCY", statement.DefaultCurrency),
		BigQueryProject:     os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset:     envOr("BIGQUERY_DATASET", "billscan"),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		NotionToken:         os.Getenv("NOTION_TOKEN"),
		NotionDatabase:      os.Getenv("NOTION_DATABASE_ID"),
		ListenAddr:          envOr("LISTEN_ADDR", ":8080"),
	}

	if v := os.Getenv("CLASSIFY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: CLASSIFY_TIMEOUT: %w", err)
		}
		cfg.ClassifyTimeout = d
	}

	if cfg.ThresholdsPath != "" {
		det, err := LoadThresholds(cfg.ThresholdsPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Detect = det
	}
	return cfg, nil
}

// thresholdsFile is the YAML shape of a detector thresholds override.
// Omitted fields keep their defaults.
type thresholdsFile struct {
	DescriptorSimilarity   float64 `yaml:"descriptor_similarity"`
	AmountTolerance        float64 `yaml:"amount_tolerance"`
	IntervalCVCutoff       float64 `yaml:"interval_cv_cutoff"`
	IntervalMatchTolerance float64 `yaml:"interval_match_tolerance"`
}

// LoadThresholds reads detector thresholds from a YAML file.
func LoadThresholds(path string) (detect.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return detect.Config{}, fmt.Errorf("config: reading thresholds file: %w", err)
	}
	return ParseThresholds(raw)
}

// ParseThresholds decodes detector thresholds from YAML bytes.
func ParseThresholds(raw []byte) (detect.Config, error) {
	var f thresholdsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return detect.Config{}, fmt.Errorf("config: parsing thresholds: %w", err)
	}
	cfg := detect.Config{
		DescriptorSimilarity:   f.DescriptorSimilarity,
		AmountTolerance:        f.AmountTolerance,
		IntervalCVCutoff:       f.IntervalCVCutoff,
		IntervalMatchTolerance: f.IntervalMatchTolerance,
	}
	d := detect.DefaultConfig()
	if cfg.DescriptorSimilarity < 0 || cfg.DescriptorSimilarity > 1 {
		return detect.Config{}, fmt.Errorf("config: descriptor_similarity %v out of [0,1]", cfg.DescriptorSimilarity)
	}
	if cfg.AmountTolerance < 0 || cfg.IntervalCVCutoff < 0 || cfg.IntervalMatchTolerance < 0 {
		return detect.Config{}, fmt.Errorf("config: thresholds must not be negative")
	}
	if cfg.DescriptorSimilarity == 0 {
		cfg.DescriptorSimilarity = d.DescriptorSimilarity
	}
	if cfg.AmountTolerance == 0 {
		cfg.AmountTolerance = d.AmountTolerance
	}
	if cfg.IntervalCVCutoff == 0 {
		cfg.IntervalCVCutoff = d.IntervalCVCutoff
	}
	if cfg.IntervalMatchTolerance == 0 {
		cfg.IntervalMatchTolerance = d.IntervalMatchTolerance
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
