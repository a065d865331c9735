package main

import (
	"NetSentry/internal/config"
	"NetSentry/internal/storage"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

// queryService answers historical queries against the persisted detection log.
type queryService struct {
	sink *storage.ClickHouseSink
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Persistence.Enabled {
		log.Fatalf("Persistence is disabled in the configuration. Query API cannot start.")
	}

	sink, err := storage.NewClickHouseSink(cfg.Persistence.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer sink.Close()

	svc := &queryService{sink: sink}
	httpServer := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: svc.router(),
	}

	go func() {
		log.Printf("Query API server starting on %s", cfg.API.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)

	log.Println("Server exited.")
}

func (s *queryService) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/detections/recent", s.handleRecent).Methods("GET")
	v1.HandleFunc("/detections/counts", s.handleCounts).Methods("GET")
	v1.HandleFunc("/detections/timeseries", s.handleTimeseries).Methods("GET")
	v1.HandleFunc("/detections/severity", s.handleSeverity).Methods("GET")
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *queryService) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sink.Counts(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *queryService) handleRecent(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sink.Recent(r.Context(), limitParam(r, 50))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, recs)
}

func (s *queryService) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.sink.Counts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func (s *queryService) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	points, err := s.sink.Timeseries(r.Context(), limitParam(r, 60))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, points)
}

func (s *queryService) handleSeverity(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.sink.SeverityBreakdown(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, breakdown)
}
