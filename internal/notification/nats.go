package notification

import (
	"NetSentry/internal/config"
	"NetSentry/internal/model"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes alerts as JSON onto a NATS subject so downstream
// consumers (SIEM forwarders, dashboards) can fan out independently.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

// NewNATSNotifier connects to the configured NATS server.
func NewNATSNotifier(cfg config.NATSConfig) (*NATSNotifier, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", url)
	return &NATSNotifier{nc: nc, subject: cfg.Subject}, nil
}

// Name implements model.Notifier.
func (n *NATSNotifier) Name() string { return "nats" }

// Send implements model.Notifier.
func (n *NATSNotifier) Send(alert *model.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return n.nc.Publish(n.subject, data)
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
