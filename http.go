package provision

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// AccessPolicy declares how the gate treats a registered route.
type AccessPolicy int

const (
	// PolicyRequiresAuth rejects requests without a verified session.
	PolicyRequiresAuth AccessPolicy = iota
	// PolicyNoAuth lets the request through; a verified session is
	// still attached when one is present.
	PolicyNoAuth
)

// SubjectLocalsKey is the router locals key the gate attaches the
// resolved Individual under.
const SubjectLocalsKey = "subject"

// SessionLocalsKey is the router locals key for the verified session.
const SessionLocalsKey = "session"

// RouteAuthenticator is the authentication gate. Every registered
// route carries an explicit AccessPolicy; routes nobody registered are
// treated as requiring authentication, so new endpoints are protected
// before anyone remembers to annotate them. The one structural
// exception is the login group: the registered login entry points must
// stay reachable without a session, and an unregistered path under the
// login prefix is a wiring mistake reported as a server error rather
// than a silent pass or deny.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	cookieDuration   time.Duration
	policies         map[string]AccessPolicy
	loginBypass      map[string]bool
	loginPrefix      string
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
		policies:       map[string]AccessPolicy{},
		loginBypass:    map[string]bool{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// RegisterPolicy records the access policy for a route. Call it once
// per route at registration time, before the server starts serving.
func (a *RouteAuthenticator) RegisterPolicy(method router.HTTPMethod, path string, policy AccessPolicy) {
	a.policies[policyKey(string(method), path)] = policy
}

// RegisterLoginEntry marks a route under the login group as reachable
// without a session. It also sets the login prefix on first use.
func (a *RouteAuthenticator) RegisterLoginEntry(method router.HTTPMethod, path string) {
	if a.loginPrefix == "" {
		a.loginPrefix = loginGroupPrefix(path)
	}
	a.loginBypass[policyKey(string(method), path)] = true
	a.policies[policyKey(string(method), path)] = PolicyNoAuth
}

// Gate returns the middleware enforcing the registered policies.
func (a *RouteAuthenticator) Gate() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			key := policyKey(ctx.Method(), ctx.Path())

			if a.loginBypass[key] {
				a.attachSubject(ctx)
				return hf(ctx)
			}

			if a.loginPrefix != "" && strings.HasPrefix(ctx.Path(), a.loginPrefix) {
				if _, ok := a.policies[key]; !ok {
					err := errors.New(
						fmt.Sprintf("route %s %s is under the login group but was never registered", ctx.Method(), ctx.Path()),
						errors.CategoryInternal,
					).WithCode(errors.CodeInternal)
					return a.ErrorHandler(ctx, err)
				}
			}

			policy, ok := a.policies[key]
			if !ok {
				policy = PolicyRequiresAuth
			}

			attached := a.attachSubject(ctx)

			if policy == PolicyNoAuth {
				return hf(ctx)
			}

			if !attached {
				return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
			}

			return hf(ctx)
		}
	}
}

// attachSubject reads the session cookie and, when it verifies,
// attaches the session and its Individual to both router locals and
// the request context. Returns true when a subject is attached.
func (a *RouteAuthenticator) attachSubject(ctx router.Context) bool {
	raw := ctx.Cookies(a.cfg.GetContextKey())
	if raw == "" {
		return false
	}

	session, err := a.auth.SessionFromToken(raw)
	if err != nil {
		a.Logger.Info("Gate session verification failed", "error", err, "path", ctx.Path())
		return false
	}

	subject, err := a.auth.SubjectFromSession(ctx.Context(), session)
	if err != nil {
		a.Logger.Info("Gate subject resolution failed", "error", err, "path", ctx.Path())
		return false
	}

	ctx.Locals(SessionLocalsKey, session)
	ctx.Locals(SubjectLocalsKey, subject)
	ctx.SetContext(WithSubject(WithSession(ctx.Context(), session), subject))

	return true
}

// SetCookieToken writes the session cookie after a successful login.
func (a *RouteAuthenticator) SetCookieToken(c router.Context, val string) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearCookie expires the session cookie.
func (a *RouteAuthenticator) ClearCookie(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication required",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.Status(http.StatusUnauthorized).Render("unauthorized", router.ViewContext{
		"path": c.Path(),
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Error(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.Status(code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

func policyKey(method, path string) string {
	return method + " " + path
}

// loginGroupPrefix derives the group prefix from the first registered
// login entry, so "/login/attempt" and "/login" both map to "/login".
func loginGroupPrefix(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if idx := strings.Index(trimmed[1:], "/"); idx >= 0 {
		return trimmed[:idx+1]
	}
	return trimmed
}

// ResponseTime reports request handling time in an X-Response-Time
// header, in milliseconds.
func ResponseTime() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			start := time.Now()
			err := hf(ctx)
			elapsed := time.Since(start).Milliseconds()
			ctx.SetHeader("X-Response-Time", fmt.Sprintf("%dms", elapsed))
			return err
		}
	}
}
