// Package credential implements the credential service: account creation,
// credential verification, Google sign-in, and password reset. Shared state
// lives in the Backend; each connected client gets its own Client handle
// carrying a current session and a session-change stream.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/time/rate"

	"github.com/daobinhgiang/bedtrack/internal/auth"
	"github.com/daobinhgiang/bedtrack/internal/model"
	"github.com/daobinhgiang/bedtrack/internal/provider"
	"github.com/daobinhgiang/bedtrack/internal/repository"
	"github.com/daobinhgiang/bedtrack/internal/security"
)

const (
	googleProviderName = "google"
	minPasswordLength  = 8
)

// SocialProvider is the slice of the Google provider the backend consumes.
type SocialProvider interface {
	ValidateIDToken(ctx context.Context, rawIDToken string) (*provider.UserInfo, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*provider.UserInfo, error)
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*provider.UserInfo, error)
}

// Mailer sends the password reset email. May be nil, in which case reset
// requests are recorded but no mail goes out.
type Mailer interface {
	SendHTML(to []string, subject, htmlBody string) error
}

// Config carries the backend's policy knobs.
type Config struct {
	PasswordSignupEnabled bool
	TokenIssuer           string
	ResetTokenSecret      string
	ResetTokenTTL         time.Duration
	ResetURL              string
	LoginAttemptRate      rate.Limit
	LoginAttemptBurst     int
}

// Backend holds the state shared by every client handle.
type Backend struct {
	accounts    repository.AccountRepository
	identities  repository.IdentityRepository
	resetTokens repository.ResetTokenRepository
	provider    SocialProvider
	jwtAuth     auth.JWTAuthenticator
	mailer      Mailer
	cfg         Config
	validate    *validator.Validate
	limiter     *loginLimiter
	logger      *zerolog.Logger
}

func NewBackend(
	accounts repository.AccountRepository,
	identities repository.IdentityRepository,
	resetTokens repository.ResetTokenRepository,
	socialProvider SocialProvider,
	jwtAuth auth.JWTAuthenticator,
	mailer Mailer,
	cfg Config,
	logger *zerolog.Logger,
) *Backend {
	if cfg.LoginAttemptRate == 0 {
		cfg.LoginAttemptRate = rate.Every(12 * time.Second)
	}
	if cfg.LoginAttemptBurst == 0 {
		cfg.LoginAttemptBurst = 5
	}

	return &Backend{
		accounts:    accounts,
		identities:  identities,
		resetTokens: resetTokens,
		provider:    socialProvider,
		jwtAuth:     jwtAuth,
		mailer:      mailer,
		cfg:         cfg,
		validate:    validator.New(),
		limiter:     newLoginLimiter(cfg.LoginAttemptRate, cfg.LoginAttemptBurst),
		logger:      logger,
	}
}

// NewClient creates a fresh per-client session handle.
func (b *Backend) NewClient() *Client {
	return &Client{
		backend:   b,
		listeners: make(map[int]func(*model.SessionUser)),
	}
}

func (b *Backend) createAccount(ctx context.Context, email, password string) (*model.SessionUser, error) {
	if !b.cfg.PasswordSignupEnabled {
		return nil, ErrOperationNotAllowed
	}

	if err := b.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account, err := b.accounts.CreateAccount(ctx, &model.Account{
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	b.logger.Info().Str("account_id", account.ID.Hex()).Msg("account created")

	return sessionUserFromAccount(account), nil
}

func (b *Backend) verifyCredentials(ctx context.Context, email, password string) (*model.SessionUser, error) {
	if !b.limiter.allow(email) {
		return nil, ErrTooManyRequests
	}

	account, err := b.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if account.Disabled {
		return nil, ErrUserDisabled
	}

	// Accounts created through a social provider have no password to verify.
	if account.PasswordHash == "" {
		return nil, ErrWrongPassword
	}

	if ok, err := security.VerifyPassword(password, account.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrWrongPassword
	}

	return sessionUserFromAccount(account), nil
}

// resolveSocialAccount finds or creates the account behind a verified Google
// identity. An existing email/password account with the same address is a
// conflict, not a link target.
func (b *Backend) resolveSocialAccount(ctx context.Context, info *provider.UserInfo) (*model.SessionUser, error) {
	identity, err := b.identities.GetIdentityByProvider(ctx, googleProviderName, info.Sub)
	if err == nil {
		account, err := b.accounts.GetAccount(ctx, identity.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load account for identity: %w", err)
		}
		if account.Disabled {
			return nil, ErrUserDisabled
		}

		if err := b.identities.UpdateLastLogin(ctx, identity.AccountID); err != nil {
			return nil, err
		}

		return sessionUserFromAccount(account), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if info.Email != "" {
		if _, err := b.accounts.GetAccountByEmail(ctx, info.Email); err == nil {
			return nil, ErrAccountExistsDifferentCredential
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}

	account, err := b.accounts.CreateAccount(ctx, &model.Account{
		Email:       info.Email,
		DisplayName: info.Name,
	})
	if err != nil {
		return nil, err
	}

	if _, err := b.identities.CreateIdentity(ctx, &model.Identity{
		AccountID:  account.ID.Hex(),
		Provider:   googleProviderName,
		ProviderID: info.Sub,
		Email:      info.Email,
	}); err != nil {
		return nil, err
	}

	b.logger.Info().
		Str("account_id", account.ID.Hex()).
		Str("provider", googleProviderName).
		Msg("social account created")

	return sessionUserFromAccount(account), nil
}

func sessionUserFromAccount(account *model.Account) *model.SessionUser {
	return &model.SessionUser{
		ID:          account.ID.Hex(),
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}
}
