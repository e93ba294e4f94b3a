package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/aqualyx/geoanalyze/internal/compute"
	"github.com/aqualyx/geoanalyze/internal/ingest"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultGRPCPort          = 50051
	DefaultHTTPPort          = 8080
	DefaultBatchTTL          = time.Hour
	DefaultMaxUploadBytes    = 10 << 20
	DefaultBroadcastInterval = 5 * time.Second
)

// Config is the top-level configuration parsed from config.yaml.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
}

// AnalysisConfig holds the ingestion schema and index parameters. It is the
// part of the file that Watch hot-reloads.
type AnalysisConfig struct {
	// RequiredColumns must all be present in an upload header.
	RequiredColumns []string `yaml:"required_columns"`

	// NumericColumns are extra non-metal columns that must parse as numbers.
	NumericColumns []string `yaml:"numeric_columns"`

	// Delimiter is a single character; defaults to ",".
	Delimiter string `yaml:"delimiter"`

	HPI   IndexConfig `yaml:"hpi"`
	HEI   IndexConfig `yaml:"hei"`
	CD    CDConfig    `yaml:"cd"`
	Bands BandsConfig `yaml:"bands"`

	// ExtremeMetals selects the metals reported as highest/lowest per batch.
	ExtremeMetals []string `yaml:"extreme_metals"`
}

// IndexConfig is a weighted metal sum times a scale.
type IndexConfig struct {
	Scale   float64            `yaml:"scale"`
	Weights map[string]float64 `yaml:"weights"`
}

// CDConfig holds the background reference concentration per metal.
type CDConfig struct {
	References map[string]float64 `yaml:"references"`
}

// BandsConfig maps HPI to a category. Equal values reproduce the
// single-threshold rule where only HPI == threshold is Moderate.
type BandsConfig struct {
	SafeBelow   float64 `yaml:"safe_below"`
	UnsafeAbove float64 `yaml:"unsafe_above"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port of the gRPC health endpoint (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	Auth AuthConfig `yaml:"auth"`

	// Batches controls in-memory batch retention and upload limits.
	Batches BatchesConfig `yaml:"batches"`

	// BroadcastInterval is how often WebSocket clients receive a snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// BatchesConfig controls analysed batch retention.
type BatchesConfig struct {
	// TTL is how long a batch stays available after upload. Default: 1h.
	TTL time.Duration `yaml:"ttl"`

	// MaxUploadBytes caps the request body of an upload. Default: 10 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "unsafe_count > 0", "max_hpi >= 150",
	// "unsafe_pct > 25".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// yaml.v3 merges into non-nil maps, so the weight tables are cleared
	// and refilled afterwards only when the file leaves them out.
	cfg.Analysis.HPI.Weights = nil
	cfg.Analysis.HEI.Weights = nil
	cfg.Analysis.CD.References = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	fillTables(&cfg.Analysis)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with default values only.
func Default() *Config {
	p := compute.DefaultParams()
	s := ingest.DefaultSchema()

	a := AnalysisConfig{
		RequiredColumns: s.Required,
		Delimiter:       string(s.Delimiter),
		HPI:             IndexConfig{Scale: p.HPIScale},
		HEI:             IndexConfig{Scale: p.HEIScale},
		Bands:           BandsConfig{SafeBelow: p.Bands.SafeBelow, UnsafeAbove: p.Bands.UnsafeAbove},
		ExtremeMetals:   metalNames(p.ExtremeMetals),
	}
	fillTables(&a)

	return &Config{
		Analysis: a,
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			GRPCPort:          DefaultGRPCPort,
			BroadcastInterval: DefaultBroadcastInterval,
			Batches: BatchesConfig{
				TTL:            DefaultBatchTTL,
				MaxUploadBytes: DefaultMaxUploadBytes,
			},
		},
	}
}

func fillTables(a *AnalysisConfig) {
	p := compute.DefaultParams()
	if a.HPI.Weights == nil {
		a.HPI.Weights = metalTable(p.HPIWeights)
	}
	if a.HEI.Weights == nil {
		a.HEI.Weights = metalTable(p.HEIWeights)
	}
	if a.CD.References == nil {
		a.CD.References = metalTable(p.References)
	}
}

// validDelimiter reports whether d is usable as a CSV field separator: not a
// quote, a line break or the Unicode replacement character.
func validDelimiter(d string) bool {
	r, _ := utf8.DecodeRuneInString(d)
	switch r {
	case 0, '"', '\r', '\n', utf8.RuneError:
		return false
	}
	return utf8.ValidRune(r)
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	a := cfg.Analysis
	if utf8.RuneCountInString(a.Delimiter) != 1 {
		return fmt.Errorf("analysis.delimiter %q must be a single character", a.Delimiter)
	}
	if !validDelimiter(a.Delimiter) {
		return fmt.Errorf("analysis.delimiter %q cannot separate CSV fields", a.Delimiter)
	}
	for _, tbl := range []struct {
		name string
		m    map[string]float64
	}{
		{"analysis.hpi.weights", a.HPI.Weights},
		{"analysis.hei.weights", a.HEI.Weights},
		{"analysis.cd.references", a.CD.References},
	} {
		for k, v := range tbl.m {
			if !types.IsMetal(k) {
				return fmt.Errorf("%s: unknown metal %q", tbl.name, k)
			}
			if v < 0 {
				return fmt.Errorf("%s.%s must not be negative", tbl.name, k)
			}
		}
	}
	for _, k := range a.ExtremeMetals {
		if !types.IsMetal(k) {
			return fmt.Errorf("analysis.extreme_metals: unknown metal %q", k)
		}
	}
	if a.HPI.Scale <= 0 || a.HEI.Scale <= 0 {
		return fmt.Errorf("analysis index scales must be positive")
	}
	if a.Bands.SafeBelow > a.Bands.UnsafeAbove {
		return fmt.Errorf("analysis.bands.safe_below %v exceeds unsafe_above %v",
			a.Bands.SafeBelow, a.Bands.UnsafeAbove)
	}

	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Batches.TTL < 0 {
		return fmt.Errorf("server.batches.ttl must not be negative")
	}
	if s.Batches.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.batches.max_upload_bytes must be positive")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	for _, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks: type %q unknown: want slack|teams|http", w.Type)
		}
	}
	return nil
}

// Params converts the analysis section into compute parameters.
func (a AnalysisConfig) Params() compute.Params {
	return compute.Params{
		HPIWeights:    metalMap(a.HPI.Weights),
		HPIScale:      a.HPI.Scale,
		HEIWeights:    metalMap(a.HEI.Weights),
		HEIScale:      a.HEI.Scale,
		References:    metalMap(a.CD.References),
		Bands:         compute.Bands{SafeBelow: a.Bands.SafeBelow, UnsafeAbove: a.Bands.UnsafeAbove},
		ExtremeMetals: metalList(a.ExtremeMetals),
	}
}

// Schema converts the analysis section into an ingest schema.
func (a AnalysisConfig) Schema() ingest.Schema {
	r, _ := utf8.DecodeRuneInString(a.Delimiter)
	return ingest.Schema{
		Required:  a.RequiredColumns,
		Numeric:   a.NumericColumns,
		Delimiter: r,
	}
}

func metalMap(m map[string]float64) map[types.Metal]float64 {
	out := make(map[types.Metal]float64, len(m))
	for k, v := range m {
		out[types.Metal(k)] = v
	}
	return out
}

func metalTable(m map[types.Metal]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func metalList(names []string) []types.Metal {
	out := make([]types.Metal, len(names))
	for i, n := range names {
		out[i] = types.Metal(n)
	}
	return out
}

func metalNames(ms []types.Metal) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
