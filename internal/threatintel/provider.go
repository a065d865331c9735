package threatintel

import (
	"context"
	"time"
)

// Record is a per-IP reputation result from a single provider.
type Record struct {
	Provider string  `json:"provider"`
	IP       string  `json:"ip"`
	Score    float64 `json:"score"` // 0-100
	Country  string  `json:"country,omitempty"`
	// Malicious and Suspicious are raw engine verdict counts. Only
	// VirusTotal populates them; other providers leave them zero.
	Malicious  int               `json:"malicious,omitempty"`
	Suspicious int               `json:"suspicious,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Provider looks up the reputation of a single IP address. Implementations
// memoize results per IP with a TTL so repeated lookups of hot talkers do not
// hammer the upstream API.
type Provider interface {
	Name() string
	LookupIP(ctx context.Context, ip string) (*Record, error)
}
