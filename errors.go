package provision

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeAlreadyRegistered  = "ALREADY_REGISTERED"
	TextCodeApplicantNotFound  = "APPLICANT_NOT_FOUND"
	TextCodeInvalidProof       = "INVALID_ACTIVATION_PROOF"
	TextCodeTemplateMissing    = "TEMPLATE_MISSING"
	TextCodeDeliveryFailed     = "DELIVERY_FAILED"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
)

// ErrAlreadyRegistered is returned when the email address already backs
// an Individual or an Account.
var ErrAlreadyRegistered = errors.New("email address is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyRegistered).
	WithCode(errors.CodeConflict)

// ErrApplicantNotFound is returned when activation finds no pending
// applicant for the submitted email address.
var ErrApplicantNotFound = errors.New("no pending applicant for email address", errors.CategoryNotFound).
	WithTextCode(TextCodeApplicantNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidActivationProof is returned when the operator code and
// temporary password do not match the stored applicant credential.
var ErrInvalidActivationProof = errors.New("activation proof does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidProof).
	WithCode(errors.CodeUnauthorized)

// ErrTemplateMissing signals an operator misconfiguration: the email
// template required by the current stage is not seeded.
var ErrTemplateMissing = errors.New("email template is not configured", errors.CategoryInternal).
	WithTextCode(TextCodeTemplateMissing).
	WithCode(errors.CodeInternal)

// ErrMismatchedHashAndPassword covers both unknown login ids and wrong
// passwords so callers cannot enumerate accounts.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindSession is the error when the request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession signals a cookie token that did not decode
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired signals an expired session token
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed signals a session token that failed parsing or
// signature verification.
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)
