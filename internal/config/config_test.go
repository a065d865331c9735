package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if !cfg.Realtime.Enabled {
		t.Error("realtime detection must default to enabled")
	}
	if cfg.Realtime.Threshold != 0.85 {
		t.Errorf("default threshold = %v, want 0.85", cfg.Realtime.Threshold)
	}
	if cfg.Realtime.BufferSize != 1000 {
		t.Errorf("default buffer size = %d, want 1000", cfg.Realtime.BufferSize)
	}
	if cfg.Alerts.Cooldown != "60s" {
		t.Errorf("default cooldown = %q, want 60s", cfg.Alerts.Cooldown)
	}
	if len(cfg.Alerts.Methods) != 2 {
		t.Errorf("default methods = %v, want console and log", cfg.Alerts.Methods)
	}
	if cfg.Synthetic.InjectRate != 0 {
		t.Errorf("synthetic injection must default to off, got %v", cfg.Synthetic.InjectRate)
	}
}

func TestLoadConfigLayersOverDefaults(t *testing.T) {
	content := `
realtime:
  threshold: 0.7
capture:
  filter: "tcp or udp"
synthetic:
  inject_rate: 0.2
  delay: 50ms
alerts:
  methods: ["console", "webhook"]
threat_intel:
  enabled: true
  abuseipdb:
    enabled: true
    api_key: "k"
persistence:
  enabled: true
  clickhouse:
    host: "ch.local"
    port: 9000
    database: "netsentry"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Realtime.Threshold != 0.7 {
		t.Errorf("threshold = %v, want 0.7", cfg.Realtime.Threshold)
	}
	if cfg.Capture.Filter != "tcp or udp" {
		t.Errorf("filter = %q", cfg.Capture.Filter)
	}
	if cfg.Synthetic.InjectRate != 0.2 {
		t.Errorf("inject_rate = %v, want 0.2", cfg.Synthetic.InjectRate)
	}
	if len(cfg.Alerts.Methods) != 2 || cfg.Alerts.Methods[1] != "webhook" {
		t.Errorf("methods = %v", cfg.Alerts.Methods)
	}
	if !cfg.ThreatIntel.AbuseIPDB.Enabled || cfg.ThreatIntel.AbuseIPDB.APIKey != "k" {
		t.Errorf("abuseipdb config = %+v", cfg.ThreatIntel.AbuseIPDB)
	}
	if cfg.Persistence.ClickHouse.Host != "ch.local" {
		t.Errorf("clickhouse host = %q", cfg.Persistence.ClickHouse.Host)
	}

	// Untouched sections keep their defaults.
	if cfg.Realtime.BufferSize != 1000 {
		t.Errorf("buffer size lost its default: %d", cfg.Realtime.BufferSize)
	}
	if cfg.API.ListenAddr != ":8089" {
		t.Errorf("api listen addr lost its default: %q", cfg.API.ListenAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("realtime: [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		in   string
		def  time.Duration
		want time.Duration
	}{
		{"30s", time.Minute, 30 * time.Second},
		{"", time.Minute, time.Minute},
		{"garbage", 5 * time.Second, 5 * time.Second},
		{"1h30m", 0, 90 * time.Minute},
	}
	for _, tc := range cases {
		if got := Duration(tc.in, tc.def); got != tc.want {
			t.Errorf("Duration(%q, %v) = %v, want %v", tc.in, tc.def, got, tc.want)
		}
	}
}
