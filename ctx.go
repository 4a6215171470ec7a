package provision

import (
	"context"

	"github.com/goliatone/go-router"
)

var subjectCtxKey = &contextKey{"subject"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSubject sets the Individual in the given context
func WithSubject(r context.Context, subject *Individual) context.Context {
	return context.WithValue(r, subjectCtxKey, subject)
}

// SubjectFromContext finds the subject from the context.
func SubjectFromContext(ctx context.Context) (*Individual, bool) {
	raw, ok := ctx.Value(subjectCtxKey).(*Individual)
	return raw, ok
}

// WithSession sets the Session in the given context
func WithSession(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the Session from the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// RouterSubject extracts the attached Individual from the router context
func RouterSubject(ctx router.Context, key string) (*Individual, bool) {
	if key == "" {
		key = SubjectLocalsKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	subject, ok := raw.(*Individual)
	return subject, ok
}
