package threatintel

import (
	"NetSentry/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const virusTotalBaseURL = "https://www.virustotal.com/api/v3"

// VirusTotal queries the VirusTotal v3 IP address endpoint for reputation.
type VirusTotal struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *expirable.LRU[string, *Record]
}

// NewVirusTotal creates a VirusTotal provider with a TTL-bounded result cache.
func NewVirusTotal(cfg config.ProviderConfig, cacheSize int, cacheTTL time.Duration) *VirusTotal {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = virusTotalBaseURL
	}
	return &VirusTotal{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.Duration(cfg.Timeout, 10*time.Second)},
		cache:   expirable.NewLRU[string, *Record](cacheSize, nil, cacheTTL),
	}
}

// Name implements Provider.
func (p *VirusTotal) Name() string { return "virustotal" }

type virusTotalResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
			Reputation int    `json:"reputation"`
			Country    string `json:"country"`
			ASOwner    string `json:"as_owner"`
		} `json:"attributes"`
	} `json:"data"`
}

// LookupIP implements Provider. The malicious/suspicious verdict counts are
// normalized onto the shared 0-100 scale.
func (p *VirusTotal) LookupIP(ctx context.Context, ip string) (*Record, error) {
	if rec, ok := p.cache.Get(ip); ok {
		return rec, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/ip_addresses/"+ip, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("virustotal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("virustotal API error: HTTP %d", resp.StatusCode)
	}

	var body virusTotalResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("virustotal decode failed: %w", err)
	}

	stats := body.Data.Attributes.LastAnalysisStats
	score := float64(stats.Malicious*10 + stats.Suspicious*5)
	if score > 100 {
		score = 100
	}

	rec := &Record{
		Provider:   p.Name(),
		IP:         ip,
		Score:      score,
		Country:    body.Data.Attributes.Country,
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		FetchedAt:  time.Now(),
		Details: map[string]string{
			"malicious":  strconv.Itoa(stats.Malicious),
			"suspicious": strconv.Itoa(stats.Suspicious),
			"harmless":   strconv.Itoa(stats.Harmless),
			"reputation": strconv.Itoa(body.Data.Attributes.Reputation),
			"as_owner":   body.Data.Attributes.ASOwner,
		},
	}
	p.cache.Add(ip, rec)
	return rec, nil
}
