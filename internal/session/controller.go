package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/daobinhgiang/bedtrack/internal/model"
)

// CredentialService is the slice of the credential client the controller
// consumes.
type CredentialService interface {
	CreateAccount(ctx context.Context, email, password string) (*model.SessionUser, error)
	VerifyCredentials(ctx context.Context, email, password string) (*model.SessionUser, error)
	SignOut(ctx context.Context) error
	SubscribeToSessionChanges(fn func(*model.SessionUser)) func()
	ExchangeSocialCredential(ctx context.Context, idToken, accessToken string) (*model.SessionUser, error)
	BeginSocialRedirect() string
	FinishSocialRedirect(ctx context.Context, state, code string) error
	CompleteSocialRedirect(ctx context.Context) (*model.SessionUser, error)
}

// ProfileStore reads and writes profiles keyed by user id.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	Put(ctx context.Context, profile *model.Profile) error
}

// SupportNotifier is told about accounts whose profile could not be
// persisted during signup. May be nil.
type SupportNotifier interface {
	NotifyOrphanedAccount(accountID, email string) error
}

// SignupParams carries everything needed to create an account and its
// profile in one step.
type SignupParams struct {
	Email       string
	Password    string
	Role        model.Role
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	PhoneNumber string
}

// Snapshot is a point-in-time view of the session state.
type Snapshot struct {
	User            *model.SessionUser
	Profile         *model.Profile
	Loading         bool
	Err             string
	IsAuthenticated bool
	IsPatient       bool
	IsClinician     bool
}

// Controller tracks the current session and profile for one client. The
// mutex guards field access only; overlapping operations are not serialized,
// so the last one to finish wins.
type Controller struct {
	creds          CredentialService
	profiles       ProfileStore
	support        SupportNotifier
	defaultProfile DefaultProfilePolicy
	logger         *zerolog.Logger

	mu          sync.Mutex
	user        *model.SessionUser
	profile     *model.Profile
	loading     bool
	errMsg      string
	initialized bool

	unsubscribe func()
	closeOnce   sync.Once
}

// New builds a controller and subscribes it to session changes. The
// subscription delivers the current session synchronously, so the controller
// leaves its initializing state before New returns.
func New(
	creds CredentialService,
	profiles ProfileStore,
	support SupportNotifier,
	defaultProfile DefaultProfilePolicy,
	logger *zerolog.Logger,
) *Controller {
	if defaultProfile == nil {
		defaultProfile = PatientDefaultProfile
	}

	c := &Controller{
		creds:          creds,
		profiles:       profiles,
		support:        support,
		defaultProfile: defaultProfile,
		logger:         logger,
		loading:        true,
	}

	c.unsubscribe = creds.SubscribeToSessionChanges(c.onSessionChange)

	return c
}

// Close detaches the controller from the session-change stream.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	})
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		User:            c.user,
		Profile:         c.profile,
		Loading:         c.loading,
		Err:             c.errMsg,
		IsAuthenticated: c.user != nil,
		IsPatient:       c.profile != nil && c.profile.Role == model.RolePatient,
		IsClinician:     c.profile != nil && c.profile.Role == model.RoleClinician,
	}
}

// HasRole reports whether the current profile carries the given role.
func (c *Controller) HasRole(role model.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.profile != nil && c.profile.Role == role
}

// ClearError drops the last error message without touching the rest of the
// state.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

// Login verifies a password credential and loads the matching profile. An
// account without a profile is signed back out and reported, never silently
// given one.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.begin()

	user, err := c.creds.VerifyCredentials(ctx, email, password)
	if err != nil {
		return c.fail(err)
	}

	profile, err := c.profiles.Get(ctx, user.ID)
	if err != nil {
		return c.fail(err)
	}
	if profile == nil {
		if signOutErr := c.creds.SignOut(ctx); signOutErr != nil {
			c.logger.Warn().Err(signOutErr).Str("user_id", user.ID).Msg("failed to sign out profileless user")
		}
		return c.fail(newError(KindProfileMissing, nil))
	}

	c.finish(user, profile)
	return nil
}

// Signup creates an account and persists its profile. If the profile write
// fails the account is left behind; support is notified and the user is
// signed back out.
func (c *Controller) Signup(ctx context.Context, params SignupParams) error {
	c.begin()

	if !params.Role.Valid() {
		return c.fail(&Error{Kind: KindUnknown, Message: "Unsupported account role."})
	}

	user, err := c.creds.CreateAccount(ctx, params.Email, params.Password)
	if err != nil {
		return c.fail(err)
	}

	profile := &model.Profile{
		ID:          user.ID,
		Email:       params.Email,
		Role:        params.Role,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		DateOfBirth: params.DateOfBirth,
		PhoneNumber: params.PhoneNumber,
		CreatedAt:   time.Now(),
	}

	if err := c.profiles.Put(ctx, profile); err != nil {
		c.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to persist signup profile")
		if c.support != nil {
			if notifyErr := c.support.NotifyOrphanedAccount(user.ID, params.Email); notifyErr != nil {
				c.logger.Warn().Err(notifyErr).Msg("failed to notify support of orphaned account")
			}
		}
		if signOutErr := c.creds.SignOut(ctx); signOutErr != nil {
			c.logger.Warn().Err(signOutErr).Str("user_id", user.ID).Msg("failed to sign out after profile write failure")
		}
		return c.fail(&Error{
			Kind:    KindUnknown,
			Message: "We could not finish setting up your account. Please contact support.",
			cause:   err,
		})
	}

	c.finish(user, profile)
	return nil
}

// LoginWithGoogle exchanges a Google credential obtained through the popup
// flow. First-time users get a default profile.
func (c *Controller) LoginWithGoogle(ctx context.Context, idToken, accessToken string) error {
	c.begin()

	user, err := c.creds.ExchangeSocialCredential(ctx, idToken, accessToken)
	if err != nil {
		return c.fail(err)
	}

	return c.adoptSocialUser(ctx, user)
}

// BeginGoogleRedirect returns the URL to send the client to for the
// redirect flow.
func (c *Controller) BeginGoogleRedirect() string {
	return c.creds.BeginSocialRedirect()
}

// HandleGoogleCallback consumes the provider callback and completes the
// sign-in it carries.
func (c *Controller) HandleGoogleCallback(ctx context.Context, state, code string) error {
	if err := c.creds.FinishSocialRedirect(ctx, state, code); err != nil {
		return c.fail(err)
	}
	return c.CompleteGoogleRedirect(ctx)
}

// CompleteGoogleRedirect checks for a pending redirect sign-in. No pending
// result is a silent no-op that touches neither loading nor the last error.
func (c *Controller) CompleteGoogleRedirect(ctx context.Context) error {
	user, err := c.creds.CompleteSocialRedirect(ctx)
	if err != nil {
		return c.fail(err)
	}
	if user == nil {
		return nil
	}

	c.begin()
	return c.adoptSocialUser(ctx, user)
}

// adoptSocialUser loads or creates the profile for a social sign-in and
// finishes the operation. Callers have already called begin.
func (c *Controller) adoptSocialUser(ctx context.Context, user *model.SessionUser) error {
	profile, err := c.profiles.Get(ctx, user.ID)
	if err != nil {
		return c.fail(err)
	}

	if profile == nil {
		profile = c.defaultProfile(user)
		if err := c.profiles.Put(ctx, profile); err != nil {
			if signOutErr := c.creds.SignOut(ctx); signOutErr != nil {
				c.logger.Warn().Err(signOutErr).Str("user_id", user.ID).Msg("failed to sign out after profile write failure")
			}
			return c.fail(err)
		}
	}

	c.finish(user, profile)
	return nil
}

// Logout signs the user out. Signing out while signed out succeeds.
func (c *Controller) Logout(ctx context.Context) error {
	c.begin()

	if err := c.creds.SignOut(ctx); err != nil {
		return c.fail(err)
	}

	c.finish(nil, nil)
	return nil
}

// RefreshProfile re-reads the current user's profile. While signed out it
// does nothing at all.
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()

	if user == nil {
		return nil
	}

	c.begin()

	profile, err := c.profiles.Get(ctx, user.ID)
	if err != nil {
		return c.fail(err)
	}

	c.finish(user, profile)
	return nil
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()
}

func (c *Controller) finish(user *model.SessionUser, profile *model.Profile) {
	c.mu.Lock()
	c.user = user
	c.profile = profile
	c.loading = false
	c.mu.Unlock()
}

func (c *Controller) fail(err error) error {
	sessErr := classify(err)

	c.mu.Lock()
	c.errMsg = sessErr.Message
	c.loading = false
	c.mu.Unlock()

	return sessErr
}

// onSessionChange mirrors the credential service's view of the session into
// the controller. The first notification resolves the initializing state.
func (c *Controller) onSessionChange(user *model.SessionUser) {
	if user == nil {
		c.mu.Lock()
		c.user = nil
		c.profile = nil
		if !c.initialized {
			c.initialized = true
			c.loading = false
		}
		c.mu.Unlock()
		return
	}

	profile, err := c.profiles.Get(context.Background(), user.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to load profile on session change")
		profile = nil
	}

	c.mu.Lock()
	c.user = user
	c.profile = profile
	if !c.initialized {
		c.initialized = true
		c.loading = false
	}
	c.mu.Unlock()
}
