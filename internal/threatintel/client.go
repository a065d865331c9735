package threatintel

import (
	"NetSentry/internal/config"
	"context"
	"log"
)

// Enrichment carries the blended 0-100 threat score and the per-provider
// records that produced it.
type Enrichment struct {
	ThreatScore float64   `json:"threat_score"`
	Src         []*Record `json:"src,omitempty"`
	Dst         []*Record `json:"dst,omitempty"`
}

// Client aggregates reputation lookups across the configured providers.
// With no providers configured every enrichment yields score 0 and makes no
// network call.
type Client struct {
	providers []Provider
}

// NewClient builds a client from configuration. Providers without an API key
// are skipped.
func NewClient(cfg config.ThreatIntelConfig) *Client {
	c := &Client{}
	if !cfg.Enabled {
		return c
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cacheTTL := config.Duration(cfg.CacheTTL, 0)

	if cfg.AbuseIPDB.Enabled && cfg.AbuseIPDB.APIKey != "" {
		c.providers = append(c.providers, NewAbuseIPDB(cfg.AbuseIPDB, cacheSize, cacheTTL))
		log.Println("AbuseIPDB provider initialized")
	}
	if cfg.VirusTotal.Enabled && cfg.VirusTotal.APIKey != "" {
		c.providers = append(c.providers, NewVirusTotal(cfg.VirusTotal, cacheSize, cacheTTL))
		log.Println("VirusTotal provider initialized")
	}
	return c
}

// Enabled reports whether any provider is configured.
func (c *Client) Enabled() bool { return len(c.providers) > 0 }

// Enrich looks up both endpoints of a detection across all providers and
// blends the results into a single 0-100 threat score. Source reputation
// carries full weight, destination reputation half. VirusTotal records with
// no malicious or suspicious verdicts are left out of the blend so a clean
// lookup cannot drag down a confident AbuseIPDB score; on the destination
// side only malicious verdicts count, at a shallower malicious*5 scale.
// Individual provider failures are logged and skipped; enrichment is
// best-effort.
func (c *Client) Enrich(ctx context.Context, srcIP, dstIP string) *Enrichment {
	e := &Enrichment{}
	if len(c.providers) == 0 {
		return e
	}

	var scores []float64
	if srcIP != "" {
		e.Src = c.lookupAll(ctx, srcIP)
		for _, rec := range e.Src {
			if rec.Provider == "virustotal" && rec.Malicious+rec.Suspicious == 0 {
				continue
			}
			scores = append(scores, rec.Score)
		}
	}
	if dstIP != "" {
		e.Dst = c.lookupAll(ctx, dstIP)
		for _, rec := range e.Dst {
			if rec.Provider == "virustotal" {
				if rec.Malicious == 0 {
					continue
				}
				s := float64(rec.Malicious * 5)
				if s > 100 {
					s = 100
				}
				scores = append(scores, s*0.5)
				continue
			}
			scores = append(scores, rec.Score*0.5)
		}
	}

	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		e.ThreatScore = sum / float64(len(scores))
	}
	return e
}

func (c *Client) lookupAll(ctx context.Context, ip string) []*Record {
	var records []*Record
	for _, p := range c.providers {
		rec, err := p.LookupIP(ctx, ip)
		if err != nil {
			log.Printf("Threat intel provider %s lookup failed for %s: %v", p.Name(), ip, err)
			continue
		}
		records = append(records, rec)
	}
	return records
}
