package provision

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type Auther struct {
	repo            RepositoryManager
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        []string
	logger          Logger
	tokenService    TokenService
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:            repo,
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithTokenService overrides the token service, mostly for tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	s.tokenService = ts
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the login id and password, records an AccountSession
// for the client address, and returns a signed session token. Unknown
// login ids and wrong passwords fail with the same error so callers
// cannot tell them apart.
func (s *Auther) Login(ctx context.Context, loginID, password, clientAddr string) (string, error) {
	account, err := s.repo.Accounts().GetByLoginID(ctx, loginID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Error("Login account not found", "login_id", loginID)
			return "", ErrMismatchedHashAndPassword
		}
		s.logger.Error("Login account lookup error", "error", err)
		return "", err
	}

	if err := ComparePasswordAndHash(password, account.Password); err != nil {
		s.logger.Error("Login password mismatch", "login_id", loginID)
		return "", err
	}

	if account.IndividualID == nil {
		s.logger.Error("Login account has no individual", "login_id", loginID)
		return "", ErrMismatchedHashAndPassword
	}

	record := &AccountSession{
		ID:           uuid.New(),
		IPAddress:    clientAddr,
		IndividualID: account.IndividualID,
	}

	if _, err := s.repo.Sessions().Create(ctx, record); err != nil {
		s.logger.Error("Login session record error", "error", err)
		return "", err
	}

	return s.generateToken(*account.IndividualID, record.ID)
}

// SessionFromToken verifies a raw session token and returns the session
// it carries. No storage lookup happens here.
func (s Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// SubjectFromSession loads the Individual a session belongs to.
func (s *Auther) SubjectFromSession(ctx context.Context, session Session) (*Individual, error) {
	individual, err := s.repo.Individuals().GetByID(ctx, session.GetSubjectID())
	if err != nil {
		s.logger.Error("SubjectFromSession lookup error", "error", err)
		return nil, err
	}

	return individual, nil
}

func (s *Auther) generateToken(individualID, sessionID uuid.UUID) (string, error) {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   individualID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenExpiration) * time.Hour)),
		},
		SID: sessionID.String(),
	}

	return s.tokenService.SignClaims(claims)
}
