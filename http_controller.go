package provision

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// Outcome messages stay deliberately vague: neither stage reveals
// whether an email address is pending, registered, or unknown.
const (
	msgCannotIssue    = "Registration could not start with the submitted values"
	msgCannotActivate = "Activation failed with the submitted values"
	msgCannotLogin    = "Cannot authenticate with the submitted credentials"
)

type ProvisionControllerRoutes struct {
	Home       string
	Owner      string
	Activation string
	Login      string
	Logout     string
	Applicant  string
}

type ProvisionControllerViews struct {
	Home         string
	Owner        string
	Activation   string
	Login        string
	Unauthorized string
}

type ProvisionController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *ProvisionControllerRoutes
	Views        *ProvisionControllerViews
	Auther       Authenticator
	Gate         *RouteAuthenticator
	Owner        OwnerConfig
	Issuer       *IssueTemporaryHandler
	Activator    *ActivateAccountHandler
	ErrorHandler router.ErrorHandler
}

type ProvisionControllerOption func(*ProvisionController) *ProvisionController

func WithControllerLogger(logger Logger) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Auther = auther
		return c
	}
}

func WithControllerGate(gate *RouteAuthenticator) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Gate = gate
		return c
	}
}

func WithControllerOwner(owner OwnerConfig) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Owner = owner
		return c
	}
}

func WithControllerHandlers(issuer *IssueTemporaryHandler, activator *ActivateAccountHandler) ProvisionControllerOption {
	return func(c *ProvisionController) *ProvisionController {
		c.Issuer = issuer
		c.Activator = activator
		return c
	}
}

func NewProvisionController(opts ...ProvisionControllerOption) *ProvisionController {
	c := &ProvisionController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ProvisionControllerRoutes{
			Home:       "/",
			Owner:      "/owner",
			Activation: "/activation",
			Login:      "/login",
			Logout:     "/logout",
			Applicant:  "/applicant",
		},
		Views: &ProvisionControllerViews{
			Home:         "home",
			Owner:        "owner",
			Activation:   "activation",
			Login:        "login",
			Unauthorized: "unauthorized",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in provision controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in provision controller...")
	}

	if c.Gate == nil {
		panic("Missing RouteAuthenticator in provision controller...")
	}

	if c.Owner == nil {
		panic("Missing OwnerConfig in provision controller...")
	}

	if c.Issuer == nil || c.Activator == nil {
		panic("Missing workflow handlers in provision controller...")
	}

	return c
}

// RegisterProvisionRoutes wires every route and its access policy in
// one place so the gate's registry always mirrors the routing table.
func RegisterProvisionRoutes[T any](app router.Router[T], opts ...ProvisionControllerOption) *ProvisionController {
	c := NewProvisionController(opts...)

	app.Get(c.Routes.Home, c.HomeShow).SetName("home.get")
	c.Gate.RegisterPolicy(router.GET, c.Routes.Home, PolicyRequiresAuth)

	app.Get(c.Routes.Owner, c.OwnerShow).SetName("owner.get")
	app.Post(c.Routes.Owner, c.OwnerPost).SetName("owner.post")
	c.Gate.RegisterPolicy(router.GET, c.Routes.Owner, PolicyNoAuth)
	c.Gate.RegisterPolicy(router.POST, c.Routes.Owner, PolicyNoAuth)

	app.Get(c.Routes.Activation, c.ActivationShow).SetName("activation.get")
	app.Post(c.Routes.Activation, c.ActivationPost).SetName("activation.post")
	c.Gate.RegisterPolicy(router.GET, c.Routes.Activation, PolicyNoAuth)
	c.Gate.RegisterPolicy(router.POST, c.Routes.Activation, PolicyNoAuth)

	app.Get(c.Routes.Login, c.LoginShow).SetName("sign-in.get")
	app.Post(c.Routes.Login, c.LoginPost).SetName("sign-in.post")
	c.Gate.RegisterLoginEntry(router.GET, c.Routes.Login)
	c.Gate.RegisterLoginEntry(router.POST, c.Routes.Login)

	app.Get(c.Routes.Logout, c.LogOut).SetName("sign-out.get")
	app.Post(c.Routes.Logout, c.LogOut).SetName("sign-out.post")
	c.Gate.RegisterPolicy(router.GET, c.Routes.Logout, PolicyRequiresAuth)
	c.Gate.RegisterPolicy(router.POST, c.Routes.Logout, PolicyRequiresAuth)

	app.Get(c.Routes.Applicant, c.ApplicantShow).SetName("applicant.get")
	app.Post(c.Routes.Applicant, c.ApplicantShow).SetName("applicant.post")
	c.Gate.RegisterPolicy(router.GET, c.Routes.Applicant, PolicyNoAuth)
	c.Gate.RegisterPolicy(router.POST, c.Routes.Applicant, PolicyNoAuth)

	return c
}

func (a *ProvisionController) HomeShow(ctx router.Context) error {
	subject, _ := RouterSubject(ctx, "")
	return ctx.Render(a.Views.Home, router.ViewContext{
		"subject": subject,
	})
}

func (a *ProvisionController) OwnerShow(ctx router.Context) error {
	// The bootstrap page disappears for good once the configured owner
	// address backs an Individual or an Account.
	used, err := a.Repo.CountUsedEmail(ctx.Context(), nil, a.Owner.GetOwnerEmailAddress())
	if err != nil {
		a.Logger.Error("owner uniqueness check: ", "error", err)
		return a.renderServerError(ctx, err)
	}

	if used > 0 {
		return ctx.Status(http.StatusGone).Render(a.Views.Owner, router.ViewContext{
			"record": nil,
			"errors": map[string]string{"registration": msgCannotIssue},
		})
	}

	return ctx.Render(a.Views.Owner, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// OwnerPayload is the form submitted to start provisioning.
type OwnerPayload struct {
	EmailAddress  string `form:"emailAddress" json:"emailAddress"`
	TemporaryCode string `form:"temporaryCode" json:"temporaryCode"`
}

// Validate will run validation rules
func (r OwnerPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.EmailAddress,
			validation.Required,
			validation.Length(1, EmailAddressMaxLength),
			is.Email,
		),
		validation.Field(
			&r.TemporaryCode,
			validation.Required,
			validation.Length(1, TemporaryCodeMaxLength),
		),
	)
}

func (a *ProvisionController) OwnerPost(ctx router.Context) error {
	payload := new(OwnerPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("owner parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Owner, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("owner validate payload: ", "error", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Owner, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	msg := IssueTemporaryMessage{
		EmailAddress:  payload.EmailAddress,
		TemporaryCode: payload.TemporaryCode,
	}

	if err := a.Issuer.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("owner issue error: ", "error", err)

		status := http.StatusBadRequest
		if textCode(err) == TextCodeAlreadyRegistered {
			// The owner page is gone for good once the address is taken.
			status = http.StatusGone
		} else if isInternal(err) {
			return a.renderServerError(ctx, err)
		}

		return ctx.Status(status).Render(a.Views.Owner, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": msgCannotIssue},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Check the inbox for the temporary password",
	}).Redirect(a.Routes.Activation, fiber.StatusSeeOther)
}

func (a *ProvisionController) ActivationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Activation, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ActivationPayload is the form closing the provisioning loop.
type ActivationPayload struct {
	EmailAddress      string `form:"emailAddress" json:"emailAddress"`
	TemporaryCode     string `form:"temporaryCode" json:"temporaryCode"`
	TemporaryPassword string `form:"temporaryPassword" json:"temporaryPassword"`
	Password          string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ActivationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.EmailAddress,
			validation.Required,
			validation.Length(1, EmailAddressMaxLength),
			is.Email,
		),
		validation.Field(
			&r.TemporaryCode,
			validation.Required,
			validation.Length(1, TemporaryCodeMaxLength),
		),
		validation.Field(
			&r.TemporaryPassword,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
	)
}

func (a *ProvisionController) ActivationPost(ctx router.Context) error {
	payload := new(ActivationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("activation parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Activation, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("activation validate payload: ", "error", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Activation, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	msg := ActivateAccountMessage{
		EmailAddress:      payload.EmailAddress,
		TemporaryCode:     payload.TemporaryCode,
		TemporaryPassword: payload.TemporaryPassword,
		Password:          payload.Password,
	}

	if err := a.Activator.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("activation error: ", "error", err)

		// Missing applicant, bad proof, and taken address all collapse
		// into the same message. The status still distinguishes a
		// re-submission of an already activated address.
		status := http.StatusBadRequest
		if textCode(err) == TextCodeAlreadyRegistered {
			status = http.StatusConflict
		} else if isInternal(err) {
			return a.renderServerError(ctx, err)
		}

		return ctx.Status(status).Render(a.Views.Activation, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"activation": msgCannotActivate},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account activated, sign in with the new password",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *ProvisionController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginPayload is the sign-in form.
type LoginPayload struct {
	LoginID  string `form:"loginId" json:"loginId"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.LoginID,
			validation.Required,
			validation.Length(1, EmailAddressMaxLength),
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *ProvisionController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	token, err := a.Auther.Login(ctx.Context(), payload.LoginID, payload.Password, ctx.IP())
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Login, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"authentication": msgCannotLogin},
		})
	}

	a.Gate.SetCookieToken(ctx, token)

	return ctx.Redirect(a.Routes.Home, router.StatusSeeOther)
}

func (a *ProvisionController) LogOut(ctx router.Context) error {
	a.Gate.ClearCookie(ctx)
	return ctx.Redirect(a.Routes.Home, router.StatusSeeOther)
}

// ApplicantShow is a stub: applicant listing is owner-only territory
// that never shipped, so both verbs answer forbidden.
func (a *ProvisionController) ApplicantShow(ctx router.Context) error {
	return ctx.Status(http.StatusForbidden).Render(a.Views.Unauthorized, router.ViewContext{
		"path": ctx.Path(),
	})
}

func (a *ProvisionController) renderServerError(ctx router.Context, err error) error {
	return ctx.Status(http.StatusInternalServerError).Render("errors/500", router.ViewContext{
		"message": "Something went wrong, try again later",
	})
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

func isInternal(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryInternal ||
			richErr.Category == goerrors.CategoryOperation
	}
	return true
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for the views.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["payload"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
