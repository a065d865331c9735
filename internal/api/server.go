package api

import (
	"NetSentry/internal/alert"
	"NetSentry/internal/model"
	"NetSentry/internal/monitor"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// Server exposes the live detection state over HTTP. It reads from the
// monitor and the alert manager; every handler is a snapshot read so the
// capture pipelines are never blocked by slow clients.
type Server struct {
	monitor *monitor.Monitor
	alerts  *alert.Manager
	httpSrv *http.Server
}

// NewServer creates the live API server on the given listen address.
func NewServer(addr string, mon *monitor.Monitor, alerts *alert.Manager) *Server {
	s := &Server{monitor: mon, alerts: alerts}
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stats", s.handleStats).Methods("GET")
	v1.HandleFunc("/interfaces", s.handleInterfaces).Methods("GET")
	v1.HandleFunc("/interfaces/{name}", s.handleInterface).Methods("GET")
	v1.HandleFunc("/interfaces/{name}/recent", s.handleRecentDetections).Methods("GET")
	v1.HandleFunc("/interfaces/{name}/summary", s.handleAnomalySummary).Methods("GET")
	v1.HandleFunc("/alerts", s.handleAlerts).Methods("GET")
	v1.HandleFunc("/alerts/active", s.handleActiveAlerts).Methods("GET")
	v1.HandleFunc("/alerts/stats", s.handleAlertStats).Methods("GET")
	v1.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledge).Methods("POST")
	v1.HandleFunc("/alerts/{id}/resolve", s.handleResolve).Methods("POST")
	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() {
	go func() {
		log.Printf("HTTP API server starting on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP API server error: %v", err)
		}
	}()
}

// Shutdown stops the HTTP server, waiting briefly for in-flight requests.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Printf("HTTP API server shutdown error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.monitor.AggregateStatistics()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_packets":      stats.TotalPackets,
		"anomalies_detected": stats.Anomalies,
		"alerts_generated":   stats.Alerts,
		"anomaly_rate":       stats.AnomalyRate(),
		"start_time":         stats.StartTime,
		"interfaces":         stats.Interfaces,
	})
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.AggregateStatistics().Interfaces)
}

func (s *Server) handleInterface(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	state, ok := s.monitor.InterfaceStatistics(name)
	if !ok {
		http.Error(w, "unknown interface: "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRecentDetections(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	det, ok := s.monitor.Detector(name)
	if !ok {
		http.Error(w, "unknown interface: "+name, http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	results := det.RecentDetections(limit)
	if results == nil {
		results = []*model.DetectionResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleAnomalySummary(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	det, ok := s.monitor.Detector(name)
	if !ok {
		http.Error(w, "unknown interface: "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, det.AnomalySummary())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var alerts []model.Alert
	if sev := r.URL.Query().Get("severity"); sev != "" {
		alerts = s.alerts.AlertsBySeverity(model.Severity(sev))
	} else {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		alerts = s.alerts.RecentAlerts(limit)
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.alerts.ActiveAlerts()
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.GetStatistics())
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.alerts.Acknowledge(id) {
		http.Error(w, "unknown alert: "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(model.StatusAcknowledged)})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Note string `json:"note"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	if !s.alerts.Resolve(id, body.Note) {
		http.Error(w, "unknown alert: "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(model.StatusResolved)})
}
