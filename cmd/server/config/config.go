// Package config holds the server configuration tree loaded through
// go-config. Section getters satisfy the interfaces the provisioning
// core and the persistence layer expect.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type BaseConfig struct {
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Mailer      Mailer      `json:"mailer" koanf:"mailer"`
	Owner       Owner       `json:"owner" koanf:"owner"`
}

func (a BaseConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Auth),
		validation.Field(&a.Owner),
	)
}

func (a *BaseConfig) GetServer() *Server           { return &a.Server }
func (a *BaseConfig) GetAuth() *Auth               { return &a.Auth }
func (a *BaseConfig) GetPersistence() *Persistence { return &a.Persistence }
func (a *BaseConfig) GetMailer() *Mailer           { return &a.Mailer }
func (a *BaseConfig) GetOwner() *Owner             { return &a.Owner }

type Server struct {
	Address string `json:"address" koanf:"address"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":9000"
	}
	return s.Address
}

type Auth struct {
	SigningKey      string   `json:"signing_key" koanf:"signing_key"`
	ContextKey      string   `json:"context_key" koanf:"context_key"`
	TokenExpiration int      `json:"token_expiration" koanf:"token_expiration"`
	Issuer          string   `json:"issuer" koanf:"issuer"`
	Audience        []string `json:"audience" koanf:"audience"`
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
	)
}

func (a Auth) GetSigningKey() string { return a.SigningKey }

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "username"
	}
	return a.ContextKey
}

func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a Auth) GetIssuer() string     { return a.Issuer }
func (a Auth) GetAudience() []string { return a.Audience }

type Persistence struct {
	Debug                 bool   `json:"debug" koanf:"debug"`
	Driver                string `json:"driver" koanf:"driver"`
	Server                string `json:"server" koanf:"server"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
	OtelIdentifier        string `json:"otel_identifier" koanf:"otel_identifier"`
}

func (p Persistence) GetDebug() bool { return p.Debug }

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetServer() string { return p.Server }

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetOtelIdentifier() string { return p.OtelIdentifier }

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Mailer struct {
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	AuthType string `json:"auth_type" koanf:"auth_type"`
	SSL      bool   `json:"ssl" koanf:"ssl"`
	From     string `json:"from" koanf:"from"`
}

func (m Mailer) GetHost() string     { return m.Host }
func (m Mailer) GetPort() int        { return m.Port }
func (m Mailer) GetUsername() string { return m.Username }
func (m Mailer) GetPassword() string { return m.Password }
func (m Mailer) GetAuthType() string { return m.AuthType }
func (m Mailer) GetSSL() bool        { return m.SSL }

func (m Mailer) GetFrom() string {
	if m.From == "" {
		return "noreply@localhost"
	}
	return m.From
}

// Owner drives the startup registration. TemporaryCode empty means the
// automatic entry is disabled.
type Owner struct {
	EmailAddress  string `json:"email_address" koanf:"email_address"`
	TemporaryCode string `json:"temporary_code" koanf:"temporary_code"`
}

func (o Owner) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.EmailAddress, is.Email),
		validation.Field(&o.TemporaryCode, validation.Length(0, 16)),
	)
}

func (o Owner) GetOwnerEmailAddress() string { return o.EmailAddress }
func (o Owner) GetTemporaryCode() string     { return o.TemporaryCode }
