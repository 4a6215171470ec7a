package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds the attributes carried by an authenticated session token
type Session interface {
	GetSubjectID() string
	GetSubjectUUID() (uuid.UUID, error)
	GetSessionToken() string
	GetIssuer() string
	GetIssuedAt() *time.Time
}

// Authenticator holds methods to deal with session authentication
type Authenticator interface {
	Login(ctx context.Context, loginID, password, clientAddr string) (string, error)
	SessionFromToken(token string) (Session, error)
	SubjectFromSession(ctx context.Context, session Session) (*Individual, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

// OwnerConfig describes the configured owner identity and the operator
// chosen temporary code driving the automatic startup registration.
type OwnerConfig interface {
	GetOwnerEmailAddress() string
	GetTemporaryCode() string
}

// Mail is a composed email ready for delivery.
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Notifier delivers composed emails. Implementations live outside the
// core; see the mailer subpackage for the SMTP client.
type Notifier interface {
	Send(ctx context.Context, mail *Mail) error
}

// TokenService signs and validates session cookie tokens
type TokenService interface {
	SignClaims(claims *SessionClaims) (string, error)
	Validate(token string) (*SessionClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PROVISION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] PROVISION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PROVISION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PROVISION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
