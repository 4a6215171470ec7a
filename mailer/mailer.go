// Package mailer delivers provisioning emails over SMTP.
package mailer

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	provision "github.com/goliatone/go-provision"
	"github.com/wneessen/go-mail"
)

// Config holds SMTP connection options.
type Config interface {
	GetHost() string
	GetPort() int
	GetUsername() string
	GetPassword() string
	GetAuthType() string
	GetSSL() bool
}

// SMTPNotifier sends mail through a shared go-mail client.
type SMTPNotifier struct {
	client *mail.Client
}

var _ provision.Notifier = &SMTPNotifier{}

func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	var options []mail.Option

	if cfg.GetPort() != 0 {
		options = append(options, mail.WithPort(cfg.GetPort()))
	}

	if cfg.GetAuthType() != "" {
		options = append(options, mail.WithSMTPAuth(mail.SMTPAuthType(cfg.GetAuthType())))
	}

	if cfg.GetSSL() {
		options = append(options, mail.WithSSLPort(true))
	}

	options = append(options, mail.WithUsername(cfg.GetUsername()))
	options = append(options, mail.WithPassword(cfg.GetPassword()))

	client, err := mail.NewClient(cfg.GetHost(), options...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build SMTP client")
	}

	return &SMTPNotifier{client: client}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, m *provision.Mail) error {
	msg, err := toMessage(m)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver email")
	}

	return nil
}

func toMessage(m *provision.Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(m.From); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid sender address")
	}

	if err := msg.To(m.To); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid recipient address")
	}

	msg.Subject(m.Subject)
	msg.SetBodyString("text/plain", m.Body)

	return msg, nil
}
