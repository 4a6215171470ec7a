package provision

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Applicants is the store for pending owner registrations
type Applicants interface {
	GetByEmailTx(ctx context.Context, tx bun.IDB, emailAddress string) (*Applicant, error)
	FindOneOrNewTx(ctx context.Context, tx bun.IDB, emailAddress string) (*Applicant, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Applicant) (*Applicant, error)
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, emailAddress string) error
}

// Accounts is the store for permanent login records
type Accounts interface {
	GetByLoginID(ctx context.Context, loginID string) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
}

// Individuals is the store for profile records
type Individuals interface {
	GetByID(ctx context.Context, id string) (*Individual, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Individual) (*Individual, error)
}

// Sessions is the store for login sessions
type Sessions interface {
	GetByID(ctx context.Context, id string) (*AccountSession, error)
	Create(ctx context.Context, record *AccountSession) (*AccountSession, error)
}

// Templates exposes the seeded, read-only email templates
type Templates interface {
	GetByCode(ctx context.Context, code string) (*EmailTemplate, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Applicants() Applicants
	Accounts() Accounts
	Individuals() Individuals
	Sessions() Sessions
	Templates() Templates
	CountUsedEmail(ctx context.Context, tx bun.IDB, emailAddress string) (int, error)
}

// An email address is "used" iff it backs an Individual or an Account.
// This union is the single source of truth for "the owner is already
// registered"; every provisioning stage re-checks it right before
// mutating state.
var usedEmailSQL = `SELECT COUNT(*) AS counter FROM (
	SELECT email_address FROM individuals WHERE email_address = ?
	UNION ALL
	SELECT login_id FROM accounts WHERE login_id = ?
) A`

type mngr struct {
	db          *bun.DB
	applicants  Applicants
	accounts    Accounts
	individuals Individuals
	sessions    Sessions
	templates   Templates
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		applicants:  NewApplicantsRepository(db),
		accounts:    NewAccountsRepository(db),
		individuals: NewIndividualsRepository(db),
		sessions:    NewSessionsRepository(db),
		templates:   NewTemplatesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.applicants == nil {
		return errors.New("repository applicants should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.individuals == nil {
		return errors.New("repository individuals should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.templates == nil {
		return errors.New("repository templates should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Applicants() Applicants {
	return m.applicants
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Individuals() Individuals {
	return m.individuals
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

func (m mngr) Templates() Templates {
	return m.templates
}

func (m mngr) CountUsedEmail(ctx context.Context, tx bun.IDB, emailAddress string) (int, error) {
	idb := tx
	if idb == nil {
		idb = m.db
	}

	var counter int
	if err := idb.NewRaw(usedEmailSQL, emailAddress, emailAddress).Scan(ctx, &counter); err != nil {
		return 0, err
	}

	return counter, nil
}
