package provision

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Applicant is the pending owner registration. At most one live row per
// email address; consumed (deleted) on successful activation.
type Applicant struct {
	bun.BaseModel `bun:"table:applicants,alias:apl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmailAddress  string     `bun:"email_address,notnull,unique" json:"email_address,omitempty"`
	Password      string     `bun:"password,notnull" json:"-"`
	AppliedAt     *time.Time `bun:"applied_at,nullzero,default:current_timestamp" json:"applied_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Individual is the profile record created by activation.
type Individual struct {
	bun.BaseModel `bun:"table:individuals,alias:ind"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmailAddress  string     `bun:"email_address,notnull,unique" json:"email_address,omitempty"`
	AppliedAt     *time.Time `bun:"applied_at,nullzero" json:"applied_at,omitempty"`
	JoinedAt      *time.Time `bun:"joined_at,nullzero,default:current_timestamp" json:"joined_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Account is the permanent login record. The login id is the email
// address claimed during provisioning.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	LoginID       string      `bun:"login_id,notnull,unique" json:"login_id,omitempty"`
	Password      string      `bun:"password,notnull" json:"-"`
	IndividualID  *uuid.UUID  `bun:"individual_id,notnull,type:uuid" json:"individual_id,omitempty"`
	Individual    *Individual `bun:"rel:has-one,join:individual_id=id" json:"individual,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AccountSession records one login. The id doubles as the session token
// handed to the cookie; individual_id is deliberately not unique so the
// same person can hold sessions from several devices.
type AccountSession struct {
	bun.BaseModel `bun:"table:account_sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IPAddress     string     `bun:"ip_address,notnull" json:"ip_address,omitempty"`
	IndividualID  *uuid.UUID `bun:"individual_id,notnull,type:uuid" json:"individual_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

const (
	// TemplateCodeOwner is the temporary registration mail sent on issue
	TemplateCodeOwner = "owner"
	// TemplateCodeActivation is the courtesy mail sent after activation
	TemplateCodeActivation = "activation"
)

// EmailAddressMaxLength caps email addresses and login ids, matching
// the email_address and login_id column widths.
const EmailAddressMaxLength = 255

// TemporaryPasswordPlaceholder is the single substitution marker the
// seeded template bodies carry.
const TemporaryPasswordPlaceholder = ":temporaryPassword"

// EmailTemplate is a seeded, read-only mail template row.
type EmailTemplate struct {
	bun.BaseModel `bun:"table:email_templates,alias:tpl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull,unique" json:"code,omitempty"`
	Subject       string     `bun:"subject,notnull" json:"subject,omitempty"`
	Body          string     `bun:"body,notnull" json:"body,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
