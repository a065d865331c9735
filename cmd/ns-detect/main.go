package main

import (
	"NetSentry/internal/alert"
	"NetSentry/internal/api"
	"NetSentry/internal/capture"
	"NetSentry/internal/config"
	"NetSentry/internal/detector"
	"NetSentry/internal/model"
	"NetSentry/internal/monitor"
	"NetSentry/internal/notification"
	"NetSentry/internal/scoring"
	"NetSentry/internal/storage"
	"NetSentry/internal/threatintel"
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	ifaceList := flag.String("iface", "", "Comma-separated list of interfaces to monitor")
	pcapPath := flag.String("pcap", "", "Replay a pcap file instead of capturing live")
	count := flag.Int("count", 0, "Stop after this many packets (0 = unbounded)")
	duration := flag.Duration("duration", 0, "Stop after this duration (0 = unbounded)")
	injectRate := flag.Float64("inject-rate", -1, "Synthetic anomaly injection rate, overrides config when >= 0")
	delay := flag.Duration("delay", 0, "Delay between synthetic packets, overrides config when > 0")
	filter := flag.String("filter", "", "BPF capture filter, overrides config when set")
	exportPath := flag.String("export", "", "Write the alert history to this JSON file on shutdown")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !flagPassed("config") {
			log.Printf("No config file at %s, using defaults", *configPath)
			cfg = config.Default()
		} else {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *injectRate >= 0 {
		cfg.Synthetic.InjectRate = *injectRate
	}
	if *delay > 0 {
		cfg.Synthetic.Delay = delay.String()
	}
	if *filter != "" {
		cfg.Capture.Filter = *filter
	}
	if !cfg.Realtime.Enabled {
		log.Fatalf("Real-time detection is disabled in the configuration")
	}

	scorer := scoring.NewAdapter(scoring.BaselineModel{}, scoring.BaselinePreprocessor{}, cfg.Realtime.Threshold)

	var intel *threatintel.Client
	if cfg.ThreatIntel.Enabled {
		intel = threatintel.NewClient(cfg.ThreatIntel)
		if !intel.Enabled() {
			log.Println("Threat intelligence enabled but no provider has an API key, enrichment disabled")
			intel = nil
		}
	}

	notifiers, natsNotifier := buildNotifiers(cfg)
	alerts := alert.NewManager(cfg.Alerts, intel, notifiers)

	var sink model.Sink = storage.NopSink{}
	var chSink *storage.ClickHouseSink
	if cfg.Persistence.Enabled {
		chSink, err = storage.NewClickHouseSink(cfg.Persistence.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse sink: %v", err)
		}
		sink = chSink
	}

	bounds := capture.Bounds{PacketCount: *count, Duration: *duration}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if *pcapPath != "" {
		runReplay(ctx, cancel, quit, cfg, *pcapPath, bounds, scorer, alerts, sink)
	} else {
		interfaces := splitInterfaces(*ifaceList)
		if len(interfaces) == 0 {
			log.Fatalf("No interfaces given: pass -iface or -pcap")
		}
		runLive(ctx, quit, cfg, interfaces, bounds, scorer, alerts, sink)
	}

	if *exportPath != "" {
		if err := alerts.ExportJSON(*exportPath); err != nil {
			log.Printf("Failed to export alerts: %v", err)
		}
	}
	if natsNotifier != nil {
		natsNotifier.Close()
	}
	if chSink != nil {
		chSink.Close()
	}
	log.Println("Detection service exited.")
}

// runLive supervises one capture session and detector per interface and
// serves the live API until a signal arrives or every session completes.
func runLive(ctx context.Context, quit <-chan os.Signal, cfg *config.Config, interfaces []string,
	bounds capture.Bounds, scorer model.Scorer, alerts *alert.Manager, sink model.Sink) {

	opts := monitor.Options{
		Scorer:        scorer,
		Alerts:        alerts,
		Sink:          sink,
		BufferSize:    cfg.Realtime.BufferSize,
		Probe:         capture.InterfaceProbe{},
		Factory:       capture.LiveFactory(cfg.Capture),
		ProbeInterval: config.Duration(cfg.Capture.ProbeInterval, 5*time.Second),
		WaitTimeout:   config.Duration(cfg.Capture.WaitTimeout, 5*time.Minute),
	}
	if cfg.Synthetic.InjectRate > 0 {
		rate := cfg.Synthetic.InjectRate
		genDelay := config.Duration(cfg.Synthetic.Delay, 0)
		threshold := cfg.Realtime.Threshold
		opts.NewGenerator = func() *capture.Generator {
			return capture.NewGenerator(rate, genDelay, threshold)
		}
	}

	mon := monitor.New(opts)

	var apiSrv *api.Server
	if cfg.API.ListenAddr != "" {
		apiSrv = api.NewServer(cfg.API.ListenAddr, mon, alerts)
		apiSrv.Start()
	}

	done := make(chan struct{})
	go func() {
		mon.StartAll(ctx, interfaces, bounds)
		close(done)
	}()

	select {
	case <-quit:
		log.Println("Shutdown signal received...")
		mon.Stop()
		<-done
	case <-done:
	}

	if apiSrv != nil {
		apiSrv.Shutdown()
	}
	printAggregate(mon.AggregateStatistics(), alerts)
}

// runReplay feeds a pcap file through a single detector. The file is read
// once; there is no session supervision since a file cannot flap.
func runReplay(ctx context.Context, cancel context.CancelFunc, quit <-chan os.Signal, cfg *config.Config,
	path string, bounds capture.Bounds, scorer model.Scorer, alerts *alert.Manager, sink model.Sink) {

	det := detector.New("pcap:"+path, scorer, alerts, sink, cfg.Realtime.BufferSize)
	stream := make(chan capture.Packet, 100)

	go func() {
		select {
		case <-quit:
			log.Println("Shutdown signal received...")
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		defer close(stream)
		n, err := capture.Replay(ctx, path, bounds, stream)
		if err != nil {
			log.Printf("Replay of %s failed after %d packets: %v", path, n, err)
			return
		}
		log.Printf("Replayed %d packets from %s", n, path)
	}()

	det.Run(ctx, stream)
	det.Stop()

	stats := det.Stats()
	log.Printf("Replay complete: %d packets, %d anomalies (%.2f%%), %d alerts",
		stats.TotalPackets, stats.Anomalies, stats.AnomalyRate(), stats.Alerts)
}

// buildNotifiers assembles the notification channels named in the alert
// configuration plus the NATS channel when enabled. The NATS notifier is
// returned separately so the caller can drain it on shutdown.
func buildNotifiers(cfg *config.Config) ([]model.Notifier, *notification.NATSNotifier) {
	var notifiers []model.Notifier
	for _, method := range cfg.Alerts.Methods {
		switch method {
		case "console":
			notifiers = append(notifiers, &notification.ConsoleNotifier{})
		case "log":
			notifiers = append(notifiers, &notification.LogNotifier{})
		case "email":
			if cfg.SMTP.Host == "" {
				log.Println("Email notification requested but smtp.host is empty, skipping")
				continue
			}
			notifiers = append(notifiers, notification.NewEmailNotifier(cfg.SMTP))
		case "webhook":
			if cfg.Webhook.URL == "" {
				log.Println("Webhook notification requested but webhook.url is empty, skipping")
				continue
			}
			notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Webhook))
		default:
			log.Printf("Unknown notification method %q, skipping", method)
		}
	}

	var natsNotifier *notification.NATSNotifier
	if cfg.NATS.Enabled {
		n, err := notification.NewNATSNotifier(cfg.NATS)
		if err != nil {
			log.Printf("Failed to connect NATS notifier: %v", err)
		} else {
			notifiers = append(notifiers, n)
			natsNotifier = n
		}
	}
	return notifiers, natsNotifier
}

func printAggregate(stats monitor.AggregateStats, alerts *alert.Manager) {
	log.Printf("Final statistics: %d packets, %d anomalies (%.2f%%), %d alerts",
		stats.TotalPackets, stats.Anomalies, stats.AnomalyRate(), stats.Alerts)
	for iface, state := range stats.Interfaces {
		log.Printf("  %s: status=%s packets=%d anomalies=%d", iface, state.Status, state.Packets, state.Anomalies)
	}
	alertStats := alerts.GetStatistics()
	log.Printf("Alerts by severity: high=%d medium=%d low=%d",
		alertStats.High, alertStats.Medium, alertStats.Low)
}

func splitInterfaces(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
