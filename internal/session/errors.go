// Package session implements the auth session controller: a small state
// machine over the credential service and the profile store that tracks who
// is signed in, which profile they carry, and which app flow they should see.
package session

import (
	"errors"

	"github.com/daobinhgiang/bedtrack/internal/credential"
)

// Kind classifies a session error into a category the caller can act on.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindAccountConflict
	KindWeakPassword
	KindAccountDisabled
	KindRateLimited
	KindProfileMissing
	KindSocialFlowCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountConflict:
		return "account_conflict"
	case KindWeakPassword:
		return "weak_password"
	case KindAccountDisabled:
		return "account_disabled"
	case KindRateLimited:
		return "rate_limited"
	case KindProfileMissing:
		return "profile_missing"
	case KindSocialFlowCancelled:
		return "social_flow_cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified session failure. Message is safe to show to the
// end user.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError builds an Error with the standard message for the kind.
func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: messageFor(kind), cause: cause}
}

func messageFor(kind Kind) string {
	switch kind {
	case KindInvalidCredentials:
		return "Incorrect email or password."
	case KindAccountConflict:
		return "An account already exists for this email."
	case KindWeakPassword:
		return "Password must be at least 8 characters long."
	case KindAccountDisabled:
		return "This account has been disabled. Please contact support."
	case KindRateLimited:
		return "Too many attempts. Please wait a moment and try again."
	case KindProfileMissing:
		return "Your account is missing its profile. Please contact support."
	case KindSocialFlowCancelled:
		return "Google sign-in was cancelled."
	default:
		return "Something went wrong. Please try again."
	}
}

// classify maps a credential service failure onto a session Error. Errors
// that are already classified pass through unchanged.
func classify(err error) *Error {
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr
	}

	switch {
	case errors.Is(err, credential.ErrUserNotFound),
		errors.Is(err, credential.ErrWrongPassword),
		errors.Is(err, credential.ErrInvalidEmail):
		return newError(KindInvalidCredentials, err)
	case errors.Is(err, credential.ErrEmailInUse),
		errors.Is(err, credential.ErrAccountExistsDifferentCredential):
		return newError(KindAccountConflict, err)
	case errors.Is(err, credential.ErrWeakPassword):
		return newError(KindWeakPassword, err)
	case errors.Is(err, credential.ErrUserDisabled):
		return newError(KindAccountDisabled, err)
	case errors.Is(err, credential.ErrTooManyRequests):
		return newError(KindRateLimited, err)
	case errors.Is(err, credential.ErrSocialCancelled):
		return newError(KindSocialFlowCancelled, err)
	default:
		return newError(KindUnknown, err)
	}
}
