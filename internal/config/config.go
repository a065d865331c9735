package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RealtimeConfig controls the detection pipeline itself.
type RealtimeConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BufferSize int     `yaml:"buffer_size"`
	Threshold  float64 `yaml:"threshold"`
}

// CaptureConfig controls the live capture source and its health supervision.
type CaptureConfig struct {
	Filter        string `yaml:"filter"`
	SnapshotLen   int32  `yaml:"snapshot_len"`
	Promiscuous   bool   `yaml:"promiscuous"`
	ProbeInterval string `yaml:"probe_interval"`
	WaitTimeout   string `yaml:"wait_timeout"`
}

// SyntheticConfig controls the bounded synthetic traffic generator used when
// live capture is unavailable.
type SyntheticConfig struct {
	InjectRate float64 `yaml:"inject_rate"`
	Delay      string  `yaml:"delay"`
}

// AlertsConfig controls the alert pipeline.
type AlertsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Cooldown   string   `yaml:"cooldown"`
	Methods    []string `yaml:"methods"`
	RecentSize int      `yaml:"recent_size"`
	MaxHistory int      `yaml:"max_history"`
}

// SMTPConfig holds the email notification channel settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// WebhookConfig holds the webhook notification channel settings.
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// NATSConfig holds the NATS alert fan-out settings.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ProviderConfig holds per-provider threat intelligence settings.
type ProviderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Timeout    string `yaml:"timeout"`
}

// ThreatIntelConfig holds the threat enrichment client settings.
type ThreatIntelConfig struct {
	Enabled    bool           `yaml:"enabled"`
	CacheTTL   string         `yaml:"cache_ttl"`
	CacheSize  int            `yaml:"cache_size"`
	AbuseIPDB  ProviderConfig `yaml:"abuseipdb"`
	VirusTotal ProviderConfig `yaml:"virustotal"`
}

// ClickHouseConfig holds connection details for the detection sink.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PersistenceConfig controls durable detection logging.
type PersistenceConfig struct {
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Realtime    RealtimeConfig    `yaml:"realtime"`
	Capture     CaptureConfig     `yaml:"capture"`
	Synthetic   SyntheticConfig   `yaml:"synthetic"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	NATS        NATSConfig        `yaml:"nats"`
	ThreatIntel ThreatIntelConfig `yaml:"threat_intel"`
	Persistence PersistenceConfig `yaml:"persistence"`
	API         APIConfig         `yaml:"api"`
}

// Default returns a configuration with the documented defaults applied.
func Default() *Config {
	return &Config{
		Realtime: RealtimeConfig{
			Enabled:    true,
			BufferSize: 1000,
			Threshold:  0.85,
		},
		Capture: CaptureConfig{
			SnapshotLen:   1600,
			Promiscuous:   true,
			ProbeInterval: "5s",
			WaitTimeout:   "5m",
		},
		Alerts: AlertsConfig{
			Enabled:    true,
			Cooldown:   "60s",
			Methods:    []string{"console", "log"},
			RecentSize: 1000,
			MaxHistory: 10000,
		},
		ThreatIntel: ThreatIntelConfig{
			CacheTTL:  "1h",
			CacheSize: 4096,
		},
		API: APIConfig{
			ListenAddr: ":8089",
		},
	}
}

// LoadConfig reads the configuration from a YAML file, layered over the
// defaults, and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return cfg, nil
}

// Duration parses a duration field, falling back to def when the field is
// empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
