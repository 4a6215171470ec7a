package mailer

import (
	"context"
	"fmt"

	provision "github.com/goliatone/go-provision"
)

// ConsoleNotifier prints mail to stdout instead of delivering it. Used
// in development when no SMTP host is configured.
type ConsoleNotifier struct{}

var _ provision.Notifier = &ConsoleNotifier{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) Send(_ context.Context, m *provision.Mail) error {
	fmt.Printf("--- MAIL ---\nFrom: %s\nTo: %s\nSubject: %s\n\n%s\n------------\n", m.From, m.To, m.Subject, m.Body)
	return nil
}
