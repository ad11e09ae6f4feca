// Package config holds all application configuration for the catalog core,
// loaded from struct defaults, an optional YAML file, and environment
// variables (in that precedence order, environment winning).
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: sensible built-in values for every field.
//  2. Config File: optional config.yaml for persistent settings.
//  3. Environment Variables: CATALOG_-prefixed overrides.
package config

import "time"

// Config is the root configuration object. It is immutable after Load()
// and safe for concurrent read access.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Scan     ScanConfig     `koanf:"scan"`
	Job      JobConfig      `koanf:"job"`
	Semantic SemanticConfig `koanf:"semantic"`
	Face     FaceConfig     `koanf:"face"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the embedded catalog database file.
type DatabaseConfig struct {
	// Path to the catalog database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`
	// AutoInit runs the full schema-creation script on first open.
	AutoInit bool `koanf:"auto_init"`
	// BusyTimeout bounds how long a write waits on a locked database (§5).
	BusyTimeout time.Duration `koanf:"busy_timeout"`
	// PoolSize is the per-process connection pool capacity (LRU-evicted).
	PoolSize int `koanf:"pool_size"`
}

// ScanConfig configures the Indexer's filesystem walk and hashing pool.
type ScanConfig struct {
	PhotoExtensions []string `koanf:"photo_extensions"`
	VideoExtensions []string `koanf:"video_extensions"`
	// HashWorkers bounds the concurrent file-hashing goroutines.
	HashWorkers int `koanf:"hash_workers"`
	// CommitBatchSize is how many upserts are grouped per folder/batch.
	CommitBatchSize int `koanf:"commit_batch_size"`
	// ExtractorTimeout is the per-file wall clock for FeatureExtractor calls (§5).
	ExtractorTimeout time.Duration `koanf:"extractor_timeout"`
	// MaxMetadataFailures is the retry ceiling before a row is marked failed.
	MaxMetadataFailures int `koanf:"max_metadata_failures"`
}

// JobConfig configures the background job queue worker loop.
type JobConfig struct {
	PollInterval  time.Duration `koanf:"poll_interval"`
	WorkerCount   int           `koanf:"worker_count"`
	SweepOnStart  bool          `koanf:"sweep_on_start"`
	BatchCheckSize int          `koanf:"batch_check_size"`
}

// SemanticConfig configures embedding storage and relevance feedback defaults.
type SemanticConfig struct {
	DefaultModel string  `koanf:"default_model"`
	RocchioAlpha float64 `koanf:"rocchio_alpha"`
	RocchioBeta  float64 `koanf:"rocchio_beta"`
	RocchioGamma float64 `koanf:"rocchio_gamma"`
	MaxBruteForceVectors int `koanf:"max_brute_force_vectors"`
}

// FaceConfig configures face-cluster merge-suggestion defaults (§4.6).
type FaceConfig struct {
	SuggestThreshold float64 `koanf:"suggest_threshold"`
	SuggestMinCount  int     `koanf:"suggest_min_count"`
	SuggestMaxPairs  int     `koanf:"suggest_max_pairs"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config populated with sensible defaults; these are
// the first layer loaded by Load(), then overridden by file and env.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./catalog.db",
			AutoInit:    true,
			BusyTimeout: 10 * time.Second,
			PoolSize:    8,
		},
		Scan: ScanConfig{
			PhotoExtensions:     []string{".jpg", ".jpeg", ".png", ".bmp", ".webp", ".heic", ".tif", ".tiff"},
			VideoExtensions:     []string{".mp4", ".mov", ".m4v", ".avi", ".mkv"},
			HashWorkers:         4,
			CommitBatchSize:     200,
			ExtractorTimeout:    6 * time.Second,
			MaxMetadataFailures: 3,
		},
		Job: JobConfig{
			PollInterval:   2 * time.Second,
			WorkerCount:    4,
			SweepOnStart:   true,
			BatchCheckSize: 50,
		},
		Semantic: SemanticConfig{
			DefaultModel:         "clip-vit-b32",
			RocchioAlpha:         1.0,
			RocchioBeta:          0.75,
			RocchioGamma:         0.25,
			MaxBruteForceVectors: 100000,
		},
		Face: FaceConfig{
			SuggestThreshold: 0.45,
			SuggestMinCount:  3,
			SuggestMaxPairs:  50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
