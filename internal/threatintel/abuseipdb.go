package threatintel

import (
	"NetSentry/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const abuseIPDBBaseURL = "https://api.abuseipdb.com/api/v2"

// AbuseIPDB queries the AbuseIPDB v2 check endpoint for IP reputation.
type AbuseIPDB struct {
	apiKey     string
	baseURL    string
	maxAgeDays int
	client     *http.Client
	cache      *expirable.LRU[string, *Record]
}

// NewAbuseIPDB creates an AbuseIPDB provider with a TTL-bounded result cache.
func NewAbuseIPDB(cfg config.ProviderConfig, cacheSize int, cacheTTL time.Duration) *AbuseIPDB {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = abuseIPDBBaseURL
	}
	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 90
	}
	return &AbuseIPDB{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxAgeDays: maxAge,
		client:     &http.Client{Timeout: config.Duration(cfg.Timeout, 10*time.Second)},
		cache:      expirable.NewLRU[string, *Record](cacheSize, nil, cacheTTL),
	}
}

// Name implements Provider.
func (p *AbuseIPDB) Name() string { return "abuseipdb" }

type abuseIPDBResponse struct {
	Data struct {
		AbuseConfidenceScore float64 `json:"abuseConfidenceScore"`
		CountryCode          string  `json:"countryCode"`
		UsageType            string  `json:"usageType"`
		ISP                  string  `json:"isp"`
		Domain               string  `json:"domain"`
		TotalReports         int     `json:"totalReports"`
	} `json:"data"`
}

// LookupIP implements Provider, serving from cache when the entry is fresh.
func (p *AbuseIPDB) LookupIP(ctx context.Context, ip string) (*Record, error) {
	if rec, ok := p.cache.Get(ip); ok {
		return rec, nil
	}

	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", strconv.Itoa(p.maxAgeDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/check?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("abuseipdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("abuseipdb API error: HTTP %d", resp.StatusCode)
	}

	var body abuseIPDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("abuseipdb decode failed: %w", err)
	}

	rec := &Record{
		Provider:  p.Name(),
		IP:        ip,
		Score:     body.Data.AbuseConfidenceScore,
		Country:   body.Data.CountryCode,
		FetchedAt: time.Now(),
		Details: map[string]string{
			"usage_type":    body.Data.UsageType,
			"isp":           body.Data.ISP,
			"domain":        body.Data.Domain,
			"total_reports": strconv.Itoa(body.Data.TotalReports),
		},
	}
	p.cache.Add(ip, rec)
	return rec, nil
}
