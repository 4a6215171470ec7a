package provision

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ActivateAccountMessage finalizes provisioning: it proves possession of
// the mailed temporary password plus knowledge of the operator code, and
// atomically converts the pending Applicant into an Individual and an
// Account. The applicant row is consumed in the same transaction.
type ActivateAccountMessage struct {
	EmailAddress      string `json:"email_address"`
	TemporaryCode     string `json:"temporary_code"`
	TemporaryPassword string `json:"temporary_password"`
	Password          string `json:"password"`
}

func (e ActivateAccountMessage) Type() string { return "provision.activate_account" }

type ActivateAccountHandler struct {
	repo     RepositoryManager
	composer *EmailComposer
	notifier Notifier
	from     string
	logger   Logger
}

func NewActivateAccountHandler(repo RepositoryManager, composer *EmailComposer, notifier Notifier, from string, logger Logger) *ActivateAccountHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &ActivateAccountHandler{
		repo:     repo,
		composer: composer,
		notifier: notifier,
		from:     from,
		logger:   logger,
	}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
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

		applicant, err := h.repo.Applicants().GetByEmailTx(ctx, tx, event.EmailAddress)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrApplicantNotFound.Clone().WithMetadata(map[string]any{
					"email_address": event.EmailAddress,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load applicant")
		}

		if err := CompareTemporary(event.TemporaryCode, event.TemporaryPassword, applicant.Password); err != nil {
			return ErrInvalidActivationProof.Clone().WithMetadata(map[string]any{
				"email_address": event.EmailAddress,
			})
		}

		individual := &Individual{
			EmailAddress: applicant.EmailAddress,
			AppliedAt:    applicant.AppliedAt,
		}

		if individual, err = h.repo.Individuals().CreateTx(ctx, tx, individual); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create individual")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account := &Account{
			LoginID:      applicant.EmailAddress,
			Password:     hash,
			IndividualID: &individual.ID,
		}

		if _, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		if err := h.repo.Applicants().DeleteByEmailTx(ctx, tx, applicant.EmailAddress); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not consume applicant")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	h.logger.Info("Activated account", "email_address", event.EmailAddress)

	// The account exists at this point. A missing template is still
	// reported so the operator fixes the seed data, but delivery
	// problems only get logged; the courtesy mail carries no secrets.
	mail, err := h.composer.ComposeActivation(ctx, h.from, event.EmailAddress)
	if err != nil {
		return err
	}

	if err := h.notifier.Send(ctx, mail); err != nil {
		h.logger.Error("Activation mail delivery failed", "email_address", event.EmailAddress, "error", err)
	}

	return nil
}
