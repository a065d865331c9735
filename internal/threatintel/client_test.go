package threatintel

import (
	"NetSentry/internal/config"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func abuseIPDBServer(t *testing.T, score float64, hits *int32) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Key") == "" {
			http.Error(w, "missing API key", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("ipAddress") == "" {
			http.Error(w, "missing ipAddress", http.StatusBadRequest)
			return
		}
		mu.Lock()
		*hits++
		mu.Unlock()
		fmt.Fprintf(w, `{"data":{"abuseConfidenceScore":%v,"countryCode":"CN","isp":"Test ISP","totalReports":42}}`, score)
	}))
}

func virusTotalServer(t *testing.T, malicious, suspicious int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") == "" {
			http.Error(w, "missing API key", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"data":{"attributes":{"last_analysis_stats":{"malicious":%d,"suspicious":%d,"harmless":50},"country":"RU"}}}`,
			malicious, suspicious)
	}))
}

func providerConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{Enabled: true, APIKey: "test-key", BaseURL: url, Timeout: "2s"}
}

func TestAbuseIPDBLookup(t *testing.T) {
	var hits int32
	srv := abuseIPDBServer(t, 85, &hits)
	defer srv.Close()

	p := NewAbuseIPDB(providerConfig(srv.URL), 16, time.Minute)
	rec, err := p.LookupIP(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("LookupIP failed: %v", err)
	}
	if rec.Score != 85 {
		t.Errorf("Score = %v, want 85", rec.Score)
	}
	if rec.Country != "CN" {
		t.Errorf("Country = %q, want CN", rec.Country)
	}
	if rec.Provider != "abuseipdb" {
		t.Errorf("Provider = %q", rec.Provider)
	}
}

func TestAbuseIPDBCachesLookups(t *testing.T) {
	var hits int32
	srv := abuseIPDBServer(t, 40, &hits)
	defer srv.Close()

	p := NewAbuseIPDB(providerConfig(srv.URL), 16, time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := p.LookupIP(context.Background(), "1.2.3.4"); err != nil {
			t.Fatalf("lookup %d failed: %v", i, err)
		}
	}
	if hits != 1 {
		t.Errorf("API hit %d times for a cached IP, want 1", hits)
	}

	if _, err := p.LookupIP(context.Background(), "5.6.7.8"); err != nil {
		t.Fatalf("second IP lookup failed: %v", err)
	}
	if hits != 2 {
		t.Errorf("API hit %d times across two IPs, want 2", hits)
	}
}

func TestVirusTotalScoreNormalization(t *testing.T) {
	cases := []struct {
		malicious, suspicious int
		want                  float64
	}{
		{0, 0, 0},
		{3, 2, 40},
		{8, 4, 100},
		{20, 0, 100}, // clamped
	}
	for _, tc := range cases {
		srv := virusTotalServer(t, tc.malicious, tc.suspicious)
		p := NewVirusTotal(providerConfig(srv.URL), 16, time.Minute)
		rec, err := p.LookupIP(context.Background(), "9.9.9.9")
		srv.Close()
		if err != nil {
			t.Fatalf("LookupIP(malicious=%d) failed: %v", tc.malicious, err)
		}
		if rec.Score != tc.want {
			t.Errorf("malicious=%d suspicious=%d: Score = %v, want %v",
				tc.malicious, tc.suspicious, rec.Score, tc.want)
		}
	}
}

func TestProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewAbuseIPDB(providerConfig(srv.URL), 16, time.Minute)
	if _, err := p.LookupIP(context.Background(), "1.2.3.4"); err == nil {
		t.Error("expected an error for HTTP 429")
	}
}

func TestClientEnrichBlendsEndpoints(t *testing.T) {
	var hits int32
	srv := abuseIPDBServer(t, 80, &hits)
	defer srv.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:   true,
		CacheTTL:  "1m",
		CacheSize: 16,
		AbuseIPDB: providerConfig(srv.URL),
	})
	if !client.Enabled() {
		t.Fatal("client with a keyed provider must be enabled")
	}

	// src scores 80 at full weight, dst scores 80 at half weight: mean 60.
	e := client.Enrich(context.Background(), "1.1.1.1", "2.2.2.2")
	if e.ThreatScore != 60 {
		t.Errorf("ThreatScore = %v, want 60", e.ThreatScore)
	}
	if len(e.Src) != 1 || len(e.Dst) != 1 {
		t.Errorf("records: src=%d dst=%d, want 1 each", len(e.Src), len(e.Dst))
	}
}

func TestClientEnrichSrcOnly(t *testing.T) {
	var hits int32
	srv := abuseIPDBServer(t, 70, &hits)
	defer srv.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:   true,
		CacheTTL:  "1m",
		CacheSize: 16,
		AbuseIPDB: providerConfig(srv.URL),
	})
	e := client.Enrich(context.Background(), "1.1.1.1", "")
	if e.ThreatScore != 70 {
		t.Errorf("ThreatScore = %v, want 70", e.ThreatScore)
	}
}

func TestClientEnrichIgnoresCleanVirusTotal(t *testing.T) {
	var hits int32
	abuse := abuseIPDBServer(t, 80, &hits)
	defer abuse.Close()
	clean := virusTotalServer(t, 0, 0)
	defer clean.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:    true,
		CacheTTL:   "1m",
		CacheSize:  16,
		AbuseIPDB:  providerConfig(abuse.URL),
		VirusTotal: providerConfig(clean.URL),
	})

	// A VirusTotal record with zero verdicts carries no signal and must not
	// average a confident AbuseIPDB score down.
	e := client.Enrich(context.Background(), "1.1.1.1", "")
	if e.ThreatScore != 80 {
		t.Errorf("ThreatScore = %v, want 80 with the clean record excluded", e.ThreatScore)
	}
	if len(e.Src) != 2 {
		t.Errorf("src records = %d, want 2 (clean record still reported)", len(e.Src))
	}
}

func TestClientEnrichVirusTotalVerdictsBlend(t *testing.T) {
	vt := virusTotalServer(t, 3, 2)
	defer vt.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:    true,
		CacheTTL:   "1m",
		CacheSize:  16,
		VirusTotal: providerConfig(vt.URL),
	})

	// Source side uses the normalized malicious*10 + suspicious*5 score.
	e := client.Enrich(context.Background(), "1.1.1.1", "")
	if e.ThreatScore != 40 {
		t.Errorf("src ThreatScore = %v, want 40", e.ThreatScore)
	}

	// Destination side counts only malicious verdicts at malicious*5, half
	// weight: min(100, 3*5) * 0.5 = 7.5.
	e = client.Enrich(context.Background(), "", "2.2.2.2")
	if e.ThreatScore != 7.5 {
		t.Errorf("dst ThreatScore = %v, want 7.5", e.ThreatScore)
	}
}

func TestClientEnrichDstSuspiciousOnlySkipped(t *testing.T) {
	vt := virusTotalServer(t, 0, 4)
	defer vt.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:    true,
		CacheTTL:   "1m",
		CacheSize:  16,
		VirusTotal: providerConfig(vt.URL),
	})

	// Suspicious-only verdicts count for the source endpoint but not the
	// destination.
	e := client.Enrich(context.Background(), "", "2.2.2.2")
	if e.ThreatScore != 0 {
		t.Errorf("dst ThreatScore = %v, want 0 without malicious verdicts", e.ThreatScore)
	}
	e = client.Enrich(context.Background(), "1.1.1.1", "")
	if e.ThreatScore != 20 {
		t.Errorf("src ThreatScore = %v, want 20", e.ThreatScore)
	}
}

func TestClientDisabledOrUnkeyed(t *testing.T) {
	disabled := NewClient(config.ThreatIntelConfig{Enabled: false})
	if disabled.Enabled() {
		t.Error("disabled config produced providers")
	}
	if e := disabled.Enrich(context.Background(), "1.1.1.1", "2.2.2.2"); e.ThreatScore != 0 {
		t.Errorf("disabled client ThreatScore = %v, want 0", e.ThreatScore)
	}

	unkeyed := NewClient(config.ThreatIntelConfig{
		Enabled:   true,
		AbuseIPDB: config.ProviderConfig{Enabled: true}, // no API key
	})
	if unkeyed.Enabled() {
		t.Error("provider without an API key must be skipped")
	}
}

func TestClientSkipsFailingProvider(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()
	var hits int32
	working := abuseIPDBServer(t, 90, &hits)
	defer working.Close()

	client := NewClient(config.ThreatIntelConfig{
		Enabled:    true,
		CacheTTL:   "1m",
		CacheSize:  16,
		AbuseIPDB:  providerConfig(working.URL),
		VirusTotal: providerConfig(failing.URL),
	})

	// VirusTotal fails; the AbuseIPDB score must still come through.
	e := client.Enrich(context.Background(), "1.1.1.1", "")
	if e.ThreatScore != 90 {
		t.Errorf("ThreatScore = %v, want 90 from the surviving provider", e.ThreatScore)
	}
	if len(e.Src) != 1 {
		t.Errorf("src records = %d, want 1", len(e.Src))
	}
}
