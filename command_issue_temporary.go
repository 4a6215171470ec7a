package provision

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// IssueTemporaryMessage starts or restarts a provisioning attempt for
// an email address. Re-issuing for a pending applicant replaces the
// stored credential, which voids the previously mailed password.
type IssueTemporaryMessage struct {
	EmailAddress  string `json:"email_address"`
	TemporaryCode string `json:"temporary_code"`
}

func (e IssueTemporaryMessage) Type() string { return "provision.issue_temporary" }

type IssueTemporaryHandler struct {
	repo     RepositoryManager
	composer *EmailComposer
	notifier Notifier
	from     string
	logger   Logger
}

func NewIssueTemporaryHandler(repo RepositoryManager, composer *EmailComposer, notifier Notifier, from string, logger Logger) *IssueTemporaryHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &IssueTemporaryHandler{
		repo:     repo,
		composer: composer,
		notifier: notifier,
		from:     from,
		logger:   logger,
	}
}

func (h *IssueTemporaryHandler) Execute(ctx context.Context, event IssueTemporaryMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during temporary credential issue",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *IssueTemporaryHandler) execute(ctx context.Context, event IssueTemporaryMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		used, err := h.repo.CountUsedEmail(ctx, tx, event.EmailAddress)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email usage")
		}
		if used > 0 {
			return ErrAlreadyRegistered.Clone().WithMetadata(map[string]any{
				"email_address": event.EmailAddress,
			})
		}

		hashed, plainTemporary, err := HashTemporary(event.TemporaryCode)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build temporary credential")
		}

		applicant, err := h.repo.Applicants().FindOneOrNewTx(ctx, tx, event.EmailAddress)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load applicant")
		}

		now := time.Now()
		applicant.Password = hashed
		applicant.AppliedAt = &now

		mail, err := h.composer.ComposeOwner(ctx, h.from, event.EmailAddress, plainTemporary)
		if err != nil {
			return err
		}

		// Deliver before persisting: an undeliverable temporary password
		// must not leave a credential nobody received.
		if err := h.notifier.Send(ctx, mail); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "could not deliver temporary password").
				WithTextCode(TextCodeDeliveryFailed)
		}

		if _, err := h.repo.Applicants().SaveTx(ctx, tx, applicant); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not persist applicant")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "temporary credential issue transaction failed")
	}

	h.logger.Info("Issued temporary credential", "email_address", event.EmailAddress)
	return nil
}
