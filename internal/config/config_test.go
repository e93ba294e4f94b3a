package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aqualyx/geoanalyze/internal/compute"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "server: {}\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", cfg.Server.GRPCPort, DefaultGRPCPort)
	}
	if cfg.Server.Batches.TTL != DefaultBatchTTL {
		t.Errorf("batches.ttl: got %v, want %v", cfg.Server.Batches.TTL, DefaultBatchTTL)
	}
	if cfg.Server.Batches.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("max_upload_bytes: got %d", cfg.Server.Batches.MaxUploadBytes)
	}

	got := cfg.Analysis.Params()
	want := compute.DefaultParams()
	if got.HPIWeights[types.Cadmium] != want.HPIWeights[types.Cadmium] || len(got.HPIWeights) != 4 {
		t.Errorf("HPI weights: got %v", got.HPIWeights)
	}
	if got.Bands != want.Bands {
		t.Errorf("bands: got %+v, want %+v", got.Bands, want.Bands)
	}
	if len(got.ExtremeMetals) != 4 {
		t.Errorf("extreme metals: got %v", got.ExtremeMetals)
	}
	if s := cfg.Analysis.Schema(); s.Delimiter != ',' || len(s.Required) != 7 {
		t.Errorf("schema: got %+v", s)
	}
}

func TestLoad_FullAnalysis(t *testing.T) {
	p := writeConfig(t, `analysis:
  required_columns: [Sample_ID, Lead]
  numeric_columns: [pH]
  delimiter: ";"
  hpi:
    scale: 1
    weights: {Lead: 1}
  cd:
    references: {Lead: 0.01}
  bands: {safe_below: 25, unsafe_above: 49}
  extreme_metals: [Lead, Uranium]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	params := cfg.Analysis.Params()
	if len(params.HPIWeights) != 1 || params.HPIWeights[types.Lead] != 1 {
		t.Errorf("HPI weights should replace defaults, got %v", params.HPIWeights)
	}
	if params.HPIScale != 1 {
		t.Errorf("HPI scale: got %v, want 1", params.HPIScale)
	}
	// hei left out, so the default table applies.
	if params.HEIWeights[types.Mercury] != 4 {
		t.Errorf("HEI weights: got %v", params.HEIWeights)
	}
	if params.Bands.SafeBelow != 25 || params.Bands.UnsafeAbove != 49 {
		t.Errorf("bands: got %+v", params.Bands)
	}
	s := cfg.Analysis.Schema()
	if s.Delimiter != ';' || len(s.Required) != 2 || s.Numeric[0] != "pH" {
		t.Errorf("schema: got %+v", s)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  grpc_port: 9090
  broadcast_interval: 2s
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-geo-key
  batches:
    ttl: 10m
    max_upload_bytes: 2048
  alerts:
    rules:
      - name: unsafe-wells
        condition: "unsafe_count > 0"
        severity: critical
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 || s.GRPCPort != 9090 {
		t.Errorf("ports: got %d/%d", s.HTTPPort, s.GRPCPort)
	}
	if s.Auth.EffectiveHeader() != "x-geo-key" {
		t.Errorf("header: got %q, want x-geo-key", s.Auth.EffectiveHeader())
	}
	if s.Batches.TTL != 10*time.Minute || s.Batches.MaxUploadBytes != 2048 {
		t.Errorf("batches: got %+v", s.Batches)
	}
	if s.BroadcastInterval != 2*time.Second {
		t.Errorf("broadcast_interval: got %v", s.BroadcastInterval)
	}
	if len(s.Alerts.Rules) != 1 || s.Alerts.Rules[0].Severity != "critical" {
		t.Errorf("rules: got %+v", s.Alerts.Rules)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_GEO_KEY", "supersecret")
	t.Setenv("TEST_HOOK", "http://hooks.example/x")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_GEO_KEY
  alerts:
    webhooks:
      - type: http
        url_env: TEST_HOOK
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if u := cfg.Server.Alerts.Webhooks[0].URL(); u != "http://hooks.example/x" {
		t.Errorf("URL(): got %q", u)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"negative ttl", "server:\n  batches:\n    ttl: -1m\n"},
		{"unknown webhook", "server:\n  alerts:\n    webhooks:\n      - type: pager\n"},
		{"unknown metal weight", "analysis:\n  hpi:\n    weights: {Zinc: 1}\n"},
		{"negative reference", "analysis:\n  cd:\n    references: {Lead: -1}\n"},
		{"inverted bands", "analysis:\n  bands: {safe_below: 50, unsafe_above: 25}\n"},
		{"long delimiter", "analysis:\n  delimiter: \";;\"\n"},
		{"quote delimiter", "analysis:\n  delimiter: '\"'\n"},
		{"newline delimiter", "analysis:\n  delimiter: \"\\n\"\n"},
		{"carriage return delimiter", "analysis:\n  delimiter: \"\\r\"\n"},
		{"unknown extreme metal", "analysis:\n  extreme_metals: [Gold]\n"},
		{"zero scale", "analysis:\n  hpi:\n    scale: 0\n"},
		{"bad yaml", "analysis: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "analysis:\n  bands: {safe_below: 100, unsafe_above: 100}\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go func() { _ = Watch(ctx, p, func(c *Config) { got <- c }) }()

	updated := []byte("analysis:\n  bands: {safe_below: 25, unsafe_above: 49}\n")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.Analysis.Bands.SafeBelow != 25 {
				t.Errorf("reloaded bands: got %+v", c.Analysis.Bands)
			}
			return
		case <-tick.C:
			// The watcher may not be registered yet, so keep writing.
			if err := os.WriteFile(p, updated, 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
		case <-deadline:
			t.Fatal("no reload within 5s")
		}
	}
}
