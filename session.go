package provision

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the in-memory view of a verified session cookie.
// Everything needed per request lives in the token itself.
type SessionObject struct {
	SubjectID      string     `json:"subject_id,omitempty"`
	SessionToken   string     `json:"session_token,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetSubjectID() string {
	return s.SubjectID
}

func (s *SessionObject) GetSubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(s.SubjectID)
}

func (s *SessionObject) GetSessionToken() string {
	return s.SessionToken
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"subject=%s sid=%s aud=%v iss=%s iat=%s",
		s.SubjectID,
		s.SessionToken,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromClaims creates a SessionObject from verified session claims
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	session := &SessionObject{
		SubjectID:    claims.Subject,
		SessionToken: claims.SID,
		Issuer:       claims.Issuer,
		Audience:     claims.Audience,
	}

	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		session.IssuedAt = &issuedAt
	}

	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		session.ExpirationDate = &expiresAt
	}

	return session, nil
}
