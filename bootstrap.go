package provision

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// OwnerEntry drives the automatic owner registration at startup. When a
// temporary code is configured it issues a fresh temporary credential
// for the configured owner address; the owner still activates by hand
// with the mailed password. An address that already belongs to a
// provisioned owner is left alone.
type OwnerEntry struct {
	issuer *IssueTemporaryHandler
	cfg    OwnerConfig
	logger Logger
}

func NewOwnerEntry(issuer *IssueTemporaryHandler, cfg OwnerConfig, logger Logger) *OwnerEntry {
	if logger == nil {
		logger = defLogger{}
	}
	return &OwnerEntry{
		issuer: issuer,
		cfg:    cfg,
		logger: logger,
	}
}

// Run performs the startup registration. Failures are reported but are
// never fatal: a boot that cannot send mail should still serve traffic.
func (o *OwnerEntry) Run(ctx context.Context) error {
	code := o.cfg.GetTemporaryCode()
	if code == "" {
		o.logger.Info("Owner entry skipped, no temporary code configured")
		return nil
	}

	email := o.cfg.GetOwnerEmailAddress()
	if email == "" {
		o.logger.Warn("Owner entry skipped, temporary code configured without owner email")
		return nil
	}

	err := o.issuer.Execute(ctx, IssueTemporaryMessage{
		EmailAddress:  email,
		TemporaryCode: code,
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeAlreadyRegistered {
			o.logger.Info("Owner entry skipped, owner already provisioned", "email_address", email)
			return nil
		}

		o.logger.Error("Owner entry failed", "email_address", email, "error", err)
		return err
	}

	o.logger.Info("Owner entry issued temporary credential", "email_address", email)
	return nil
}
