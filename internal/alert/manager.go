package alert

import (
	"NetSentry/internal/config"
	"NetSentry/internal/model"
	"NetSentry/internal/threatintel"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// SeverityFor blends the model anomaly score with the 0-100 threat
// reputation score and maps the result onto a severity level. A sufficiently
// bad reputation forces the severity up regardless of the blend.
func SeverityFor(anomalyScore, threatScore float64) model.Severity {
	combined := anomalyScore*0.6 + threatScore/100*0.4
	switch {
	case combined >= 0.9 || threatScore >= 75:
		return model.SeverityHigh
	case combined >= 0.7 || threatScore >= 50:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// Statistics is a point-in-time summary of the manager's alert counters.
type Statistics struct {
	TotalAlerts    uint64 `json:"total_alerts"`
	High           uint64 `json:"high_severity"`
	Medium         uint64 `json:"medium_severity"`
	Low            uint64 `json:"low_severity"`
	ActiveAlerts   int    `json:"active_alerts"`
	AlertsLastHour int    `json:"alerts_last_hour"`
}

// Manager turns anomalous detections into deduplicated, severity-tagged
// alerts and dispatches them across the configured notification channels.
// It exclusively owns the cooldown map and the alert history; all mutation
// is serialized behind its mutex since detectors on multiple interfaces feed
// the same manager.
type Manager struct {
	enabled    bool
	cooldown   time.Duration
	recentSize int
	maxHistory int
	intel      *threatintel.Client
	notifiers  []model.Notifier

	mu        sync.Mutex
	lastFired map[string]time.Time
	recent    []*model.Alert
	history   []*model.Alert
	seq       uint64
	total     uint64
	bySev     map[model.Severity]uint64
}

// NewManager creates an alert manager. intel may be nil, in which case every
// alert carries threat score 0.
func NewManager(cfg config.AlertsConfig, intel *threatintel.Client, notifiers []model.Notifier) *Manager {
	recentSize := cfg.RecentSize
	if recentSize <= 0 {
		recentSize = 1000
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 10000
	}
	return &Manager{
		enabled:    cfg.Enabled,
		cooldown:   config.Duration(cfg.Cooldown, 60*time.Second),
		recentSize: recentSize,
		maxHistory: maxHistory,
		intel:      intel,
		notifiers:  notifiers,
		lastFired:  make(map[string]time.Time),
		bySev:      make(map[model.Severity]uint64),
	}
}

// CreateAlert enriches the observation, computes severity, and fires a new
// alert unless an alert with the same cooldown key fired within the cooldown
// window. It returns nil when the alert was suppressed or alerting is
// disabled.
//
// The cooldown key is the rendered description, which embeds the numeric
// scores; two temporally adjacent alerts therefore rarely collide. This
// mirrors the long-standing deployed behavior and is kept deliberately.
func (m *Manager) CreateAlert(ctx context.Context, obs *model.Observation, anomalyScore float64) *model.Alert {
	if !m.enabled {
		return nil
	}

	var threatScore float64
	if m.intel != nil {
		threatScore = m.intel.Enrich(ctx, obs.SrcIP, obs.DstIP).ThreatScore
	}

	severity := SeverityFor(anomalyScore, threatScore)
	description := fmt.Sprintf("Anomaly detected with score %.4f, threat score %.1f", anomalyScore, threatScore)

	m.mu.Lock()
	now := time.Now()
	if last, ok := m.lastFired[description]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return nil
	}

	m.seq++
	alert := &model.Alert{
		ID:           fmt.Sprintf("ALERT-%s-%06d", now.Format("20060102150405"), m.seq),
		Timestamp:    now,
		Severity:     severity,
		AnomalyScore: anomalyScore,
		ThreatScore:  threatScore,
		Description:  description,
		Observation:  *obs,
		Status:       model.StatusActive,
	}

	m.recent = append(m.recent, alert)
	if len(m.recent) > m.recentSize {
		m.recent = m.recent[len(m.recent)-m.recentSize:]
	}
	m.history = append(m.history, alert)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
	m.lastFired[description] = now
	m.total++
	m.bySev[severity]++
	m.mu.Unlock()

	m.dispatch(alert)
	return alert
}

// dispatch sends the alert over every channel. A failing channel is logged
// and never blocks delivery on the others.
func (m *Manager) dispatch(alert *model.Alert) {
	for _, n := range m.notifiers {
		if err := n.Send(alert); err != nil {
			log.Printf("Error sending notification via %s: %v", n.Name(), err)
		}
	}
}

// Acknowledge marks an alert in the recent buffer as acknowledged.
func (m *Manager) Acknowledge(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.recent {
		if a.ID == id {
			a.Status = model.StatusAcknowledged
			a.AcknowledgedAt = time.Now()
			log.Printf("Alert acknowledged: %s", id)
			return true
		}
	}
	return false
}

// Resolve marks an alert in the recent buffer as resolved.
func (m *Manager) Resolve(id, note string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.recent {
		if a.ID == id {
			a.Status = model.StatusResolved
			a.ResolvedAt = time.Now()
			a.ResolutionNote = note
			log.Printf("Alert resolved: %s", id)
			return true
		}
	}
	return false
}

// ActiveAlerts returns the alerts in the recent buffer still marked active.
// The accessors return value copies taken under the lock; the canonical
// alerts keep mutating via Acknowledge/Resolve, so handing out the live
// pointers would race with callers that serialize them later.
func (m *Manager) ActiveAlerts() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Alert
	for _, a := range m.recent {
		if a.Status == model.StatusActive {
			out = append(out, *a)
		}
	}
	return out
}

// RecentAlerts returns up to n of the most recent alerts, oldest first.
func (m *Manager) RecentAlerts(n int) []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.recent) {
		n = len(m.recent)
	}
	out := make([]model.Alert, 0, n)
	for _, a := range m.recent[len(m.recent)-n:] {
		out = append(out, *a)
	}
	return out
}

// AlertsBySeverity returns the recent alerts matching a severity level.
func (m *Manager) AlertsBySeverity(sev model.Severity) []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Alert
	for _, a := range m.recent {
		if a.Severity == sev {
			out = append(out, *a)
		}
	}
	return out
}

// GetStatistics returns alert counts by severity, the active set size, and
// the count over the last rolling hour.
func (m *Manager) GetStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		TotalAlerts: m.total,
		High:        m.bySev[model.SeverityHigh],
		Medium:      m.bySev[model.SeverityMedium],
		Low:         m.bySev[model.SeverityLow],
	}
	cutoff := time.Now().Add(-time.Hour)
	for _, a := range m.recent {
		if a.Status == model.StatusActive {
			stats.ActiveAlerts++
		}
		if a.Timestamp.After(cutoff) {
			stats.AlertsLastHour++
		}
	}
	return stats
}

// ExportJSON writes the full alert history to a file.
func (m *Manager) ExportJSON(path string) error {
	m.mu.Lock()
	data, err := json.MarshalIndent(m.history, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal alert history: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write alert export: %w", err)
	}
	log.Printf("Alerts exported to %s", path)
	return nil
}
