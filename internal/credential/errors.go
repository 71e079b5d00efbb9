package credential

import "errors"

// Failure kinds surfaced by the credential service. The session controller
// maps these onto its user-facing error taxonomy; nothing here is meant to
// be shown to a person directly.
var (
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrWeakPassword        = errors.New("password does not meet the minimum requirements")
	ErrOperationNotAllowed = errors.New("password sign-up is not enabled")

	ErrUserNotFound    = errors.New("no account for this email")
	ErrWrongPassword   = errors.New("wrong password")
	ErrUserDisabled    = errors.New("account is disabled")
	ErrTooManyRequests = errors.New("too many sign-in attempts")

	ErrSocialCancelled                  = errors.New("social sign-in was cancelled")
	ErrAccountExistsDifferentCredential = errors.New("account exists with a different credential")

	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrResetTokenUsed     = errors.New("password reset token has already been used")
	ErrResetTokenExpired  = errors.New("password reset token has expired")
	ErrInvalidResetToken  = errors.New("invalid password reset token")
)
