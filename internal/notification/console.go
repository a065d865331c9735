package notification

import (
	"NetSentry/internal/model"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// ConsoleNotifier prints alerts to standard output. Always available.
type ConsoleNotifier struct {
	// Out is the destination writer; defaults to os.Stdout.
	Out io.Writer
}

// Name implements model.Notifier.
func (n *ConsoleNotifier) Name() string { return "console" }

// Send implements model.Notifier.
func (n *ConsoleNotifier) Send(alert *model.Alert) error {
	out := n.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "\nALERT [%s]\n", strings.ToUpper(string(alert.Severity)))
	fmt.Fprintf(out, "ID: %s\n", alert.ID)
	fmt.Fprintf(out, "Time: %s\n", alert.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Score: %.4f\n", alert.AnomalyScore)
	fmt.Fprintf(out, "Description: %s\n", alert.Description)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	return nil
}

// LogNotifier emits alerts as structured log lines. Always available.
type LogNotifier struct{}

// Name implements model.Notifier.
func (n *LogNotifier) Name() string { return "log" }

// Send implements model.Notifier.
func (n *LogNotifier) Send(alert *model.Alert) error {
	log.Printf("ALERT id=%s severity=%s score=%.4f threat=%.1f desc=%q src=%s:%d dst=%s:%d",
		alert.ID, alert.Severity, alert.AnomalyScore, alert.ThreatScore, alert.Description,
		alert.Observation.SrcIP, alert.Observation.SrcPort,
		alert.Observation.DstIP, alert.Observation.DstPort)
	return nil
}
