// Package sviconfig loads and validates the fetcher's JSON config
// file, following cc-backend's internal/config pattern: validate
// against an embedded JSON Schema first, then decode strictly.
package sviconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// QueryConfig is one configured keyword/region/category to fetch.
type QueryConfig struct {
	Keyword  string `json:"keyword"`
	Geo      string `json:"geo"`
	Category int    `json:"category"`
}

// SQLiteExport configures the SQLite export sink.
type SQLiteExport struct {
	Path  string `json:"path"`
	Table string `json:"table"`
}

// S3Export configures the S3-compatible export sink.
type S3Export struct {
	Endpoint     string `json:"endpoint"`
	Bucket       string `json:"bucket"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	Region       string `json:"region"`
	UsePathStyle bool   `json:"usePathStyle"`
}

// Export groups every configured output sink. Any combination of
// fields may be set; each populated sink is driven independently.
type Export struct {
	CSVPath  string        `json:"csvPath"`
	JSONPath string        `json:"jsonPath"`
	SQLite   *SQLiteExport `json:"sqlite,omitempty"`
	S3       *S3Export     `json:"s3,omitempty"`
}

// Serve configures the optional metrics/health HTTP server.
type Serve struct {
	Addr string `json:"addr"`
}

// Config is the fetcher's top-level JSON configuration.
type Config struct {
	Language        string        `json:"language"`
	Timezone        int           `json:"timezone"`
	TimeoutSeconds  float64       `json:"timeoutSeconds"`
	Granularity     string        `json:"granularity"`
	Category        int           `json:"category"`
	DelaySeconds    float64       `json:"delaySeconds"`
	ForceTruncation bool          `json:"forceTruncation"`
	// WatchIntervalSeconds is the cadence the `watch`/`serve`
	// subcommands re-run a fetch at; unrelated to DelaySeconds, which
	// only paces tournament probes within a single fetch.
	WatchIntervalSeconds float64 `json:"watchIntervalSeconds"`
	Queries         []QueryConfig `json:"queries"`
	Export          Export        `json:"export"`
	Serve           Serve         `json:"serve"`
}

// Default returns the fetcher's baseline configuration, mirroring the
// defaults gsvi's GoogleConnection/SVSeries constructors apply when
// the caller doesn't override them.
func Default() Config {
	return Config{
		Language:             "en-US",
		Timezone:             0,
		TimeoutSeconds:       5,
		Granularity:          "DAY",
		Category:             0,
		DelaySeconds:         10,
		WatchIntervalSeconds: 3600,
		Serve:                Serve{Addr: ":8090"},
	}
}

// Load reads, schema-validates, and strictly decodes the config file
// at path. Unknown fields are rejected the way cc-backend's
// internal/config.Init does.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("SVICONFIG/LOAD > read %s: %w", path, err)
	}

	if err := Validate(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("SVICONFIG/LOAD > validate %s: %w", path, err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("SVICONFIG/LOAD > decode %s: %w", path, err)
	}
	if len(cfg.Queries) < 1 {
		return nil, fmt.Errorf("SVICONFIG/LOAD > at least one query is required")
	}
	return &cfg, nil
}
