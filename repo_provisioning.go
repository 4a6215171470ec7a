package provision

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type applicants struct {
	repository.Repository[*Applicant]
	db *bun.DB
}

var _ Applicants = (*applicants)(nil)

func NewApplicantsRepository(db *bun.DB) Applicants {
	repo := repository.NewRepository[*Applicant](db, repository.ModelHandlers[*Applicant]{
		NewRecord: func() *Applicant { return &Applicant{} },
		GetID: func(a *Applicant) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Applicant, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email_address"
		},
	})

	return &applicants{Repository: repo, db: db}
}

func (a *applicants) GetByEmailTx(ctx context.Context, tx bun.IDB, emailAddress string) (*Applicant, error) {
	return a.Repository.GetByIdentifierTx(ctx, tx, emailAddress)
}

// FindOneOrNewTx returns the stored applicant for the address or, when
// none exists, an unsaved record carrying the address. Mirrors the
// find-or-create semantics of re-issuing a temporary credential.
func (a *applicants) FindOneOrNewTx(ctx context.Context, tx bun.IDB, emailAddress string) (*Applicant, error) {
	record, err := a.GetByEmailTx(ctx, tx, emailAddress)
	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return &Applicant{EmailAddress: emailAddress}, nil
}

func (a *applicants) SaveTx(ctx context.Context, tx bun.IDB, record *Applicant) (*Applicant, error) {
	if record.ID == uuid.Nil {
		return a.Repository.CreateTx(ctx, tx, record)
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (a *applicants) DeleteByEmailTx(ctx context.Context, tx bun.IDB, emailAddress string) error {
	res, err := tx.NewDelete().
		Model((*Applicant)(nil)).
		Where("email_address = ?", emailAddress).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"email_address": emailAddress,
			})
	}

	return nil
}

type individuals struct {
	repository.Repository[*Individual]
	db *bun.DB
}

var _ Individuals = (*individuals)(nil)

func NewIndividualsRepository(db *bun.DB) Individuals {
	repo := repository.NewRepository[*Individual](db, repository.ModelHandlers[*Individual]{
		NewRecord: func() *Individual { return &Individual{} },
		GetID: func(i *Individual) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Individual, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email_address"
		},
	})

	return &individuals{Repository: repo, db: db}
}

func (i *individuals) GetByID(ctx context.Context, id string) (*Individual, error) {
	return i.Repository.GetByID(ctx, id)
}

func (i *individuals) CreateTx(ctx context.Context, tx bun.IDB, record *Individual) (*Individual, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return i.Repository.CreateTx(ctx, tx, record)
}

type sessions struct {
	repository.Repository[*AccountSession]
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*AccountSession](db, repository.ModelHandlers[*AccountSession]{
		NewRecord: func() *AccountSession { return &AccountSession{} },
		GetID: func(s *AccountSession) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *AccountSession, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{Repository: repo, db: db}
}

func (s *sessions) GetByID(ctx context.Context, id string) (*AccountSession, error) {
	return s.Repository.GetByID(ctx, id)
}

func (s *sessions) Create(ctx context.Context, record *AccountSession) (*AccountSession, error) {
	return s.Repository.Create(ctx, record)
}

type templates struct {
	repository.Repository[*EmailTemplate]
	db *bun.DB
}

var _ Templates = (*templates)(nil)

func NewTemplatesRepository(db *bun.DB) Templates {
	repo := repository.NewRepository[*EmailTemplate](db, repository.ModelHandlers[*EmailTemplate]{
		NewRecord: func() *EmailTemplate { return &EmailTemplate{} },
		GetID: func(t *EmailTemplate) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *EmailTemplate, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &templates{Repository: repo, db: db}
}

func (t *templates) GetByCode(ctx context.Context, code string) (*EmailTemplate, error) {
	return t.Repository.GetByIdentifier(ctx, code)
}
