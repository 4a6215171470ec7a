package provision

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// EmailComposer renders provisioning mails from the seeded template
// rows. A missing template surfaces as ErrTemplateMissing; the issue
// stage treats that as fail closed, activation reports it without
// rolling back.
type EmailComposer struct {
	templates Templates
}

func NewEmailComposer(templates Templates) *EmailComposer {
	return &EmailComposer{templates: templates}
}

// ComposeOwner renders the temporary registration mail carrying the
// plaintext temporary password.
func (c *EmailComposer) ComposeOwner(ctx context.Context, from, to, plainTemporary string) (*Mail, error) {
	tpl, err := c.find(ctx, TemplateCodeOwner)
	if err != nil {
		return nil, err
	}

	return &Mail{
		From:    from,
		To:      to,
		Subject: tpl.Subject,
		Body:    strings.ReplaceAll(tpl.Body, TemporaryPasswordPlaceholder, plainTemporary),
	}, nil
}

// ComposeActivation renders the registration-complete courtesy mail.
func (c *EmailComposer) ComposeActivation(ctx context.Context, from, to string) (*Mail, error) {
	tpl, err := c.find(ctx, TemplateCodeActivation)
	if err != nil {
		return nil, err
	}

	return &Mail{
		From:    from,
		To:      to,
		Subject: tpl.Subject,
		Body:    tpl.Body,
	}, nil
}

func (c *EmailComposer) find(ctx context.Context, code string) (*EmailTemplate, error) {
	tpl, err := c.templates.GetByCode(ctx, code)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTemplateMissing.Clone().WithMetadata(map[string]any{
				"code": code,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email template")
	}

	return tpl, nil
}
