// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "slr-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 (0 = default).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// EstimatorKind selects the result-count estimator.
type EstimatorKind string

const (
	EstimatorService  EstimatorKind = "service"
	EstimatorOpenAlex EstimatorKind = "openalex"
)

// AuthoringConfig holds settings for the external query-authoring service.
type AuthoringConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the root URL of the service (e.g. "http://localhost:8000").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as a bearer token when set. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Estimator selects where result-count estimates come from.
	Estimator EstimatorKind `json:"estimator" yaml:"estimator" mapstructure:"estimator"`

	// OpenAlexEmail is sent as mailto for OpenAlex polite-pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// CollectTick is the pause between collection progress updates (default 50ms).
	CollectTick time.Duration `json:"collect_tick" yaml:"collect_tick" mapstructure:"collect_tick"`
}

// StoreBackend identifies the persistence backend of the query store.
type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
)

// StoreConfig holds settings for the query store.
type StoreConfig struct {
	// Backend selects file or sqlite persistence.
	Backend StoreBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Path is the JSON file (file backend) or database file (sqlite backend).
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// FunnelConfig holds the placeholder rates used to derive funnel metrics.
type FunnelConfig struct {
	// DuplicateRate is the share of the total volume counted as duplicates (default 0.10).
	DuplicateRate float64 `json:"duplicate_rate" yaml:"duplicate_rate" mapstructure:"duplicate_rate"`

	// FullMatchRate is the share of deduplicated records that match every criterion (default 0.18).
	FullMatchRate float64 `json:"full_match_rate" yaml:"full_match_rate" mapstructure:"full_match_rate"`
}

// ScreeningConfig holds settings for the document screening simulator.
type ScreeningConfig struct {
	// Delay is the simulated analysis time (default 3s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// Seed makes the simulator reproducible when non-zero.
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default "127.0.0.1:8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RequestTimeout bounds each request (default 60s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// AppConfig groups all component configurations.
type AppConfig struct {
	Authoring AuthoringConfig `json:"authoring" yaml:"authoring" mapstructure:"authoring"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Funnel    FunnelConfig    `json:"funnel" yaml:"funnel" mapstructure:"funnel"`
	Screening ScreeningConfig `json:"screening" yaml:"screening" mapstructure:"screening"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Debug     bool            `json:"debug" yaml:"debug" mapstructure:"debug"`
}
