package model

// Notifier defines a generic interface for delivering an alert over one
// notification channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string
	Send(alert *Alert) error
}
