package credential

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/daobinhgiang/bedtrack/internal/model"
)

// Client is a per-client session handle. It owns the current session user,
// the session-change listeners, and the pending redirect slot; everything
// durable is delegated to the shared Backend.
type Client struct {
	backend *Backend

	mu             sync.Mutex
	current        *model.SessionUser
	listeners      map[int]func(*model.SessionUser)
	nextListenerID int
	pending        *model.SessionUser
	redirectState  string
}

// CreateAccount registers a new email/password account and signs it in.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*model.SessionUser, error) {
	user, err := c.backend.createAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.setCurrent(user)
	return user, nil
}

// VerifyCredentials checks an email/password pair and signs the account in.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*model.SessionUser, error) {
	user, err := c.backend.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.setCurrent(user)
	return user, nil
}

// SignOut clears the current session. Signing out with no active session is
// a no-op, not an error.
func (c *Client) SignOut(ctx context.Context) error {
	c.setCurrent(nil)
	return nil
}

// SubscribeToSessionChanges registers a listener for session changes. The
// listener fires immediately with the current value, then on every change.
// The returned function removes the listener.
func (c *Client) SubscribeToSessionChanges(fn func(*model.SessionUser)) func() {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// ExchangeSocialCredential signs in with a Google ID token obtained by the
// client (the popup-style flow). The optional access token is used to fill
// in the display name for first-time accounts.
func (c *Client) ExchangeSocialCredential(ctx context.Context, idToken, accessToken string) (*model.SessionUser, error) {
	info, err := c.backend.provider.ValidateIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	if accessToken != "" && info.Name == "" {
		if full, err := c.backend.provider.FetchUserInfo(ctx, accessToken); err == nil {
			info.Name = full.Name
		}
	}

	user, err := c.backend.resolveSocialAccount(ctx, info)
	if err != nil {
		return nil, err
	}

	c.setCurrent(user)
	return user, nil
}

// BeginSocialRedirect starts the redirect-based Google flow and returns the
// authorization URL to send the client to. Session state is unchanged.
func (c *Client) BeginSocialRedirect() string {
	state := uuid.NewString()

	c.mu.Lock()
	c.redirectState = state
	c.mu.Unlock()

	return c.backend.provider.AuthCodeURL(state)
}

// FinishSocialRedirect consumes the provider callback: it checks the state
// nonce, exchanges the code, and stashes the resulting session user as the
// pending redirect result. The session itself does not change until
// CompleteSocialRedirect runs.
func (c *Client) FinishSocialRedirect(ctx context.Context, state, code string) error {
	c.mu.Lock()
	expected := c.redirectState
	c.redirectState = ""
	c.mu.Unlock()

	if state == "" || state != expected {
		return ErrSocialCancelled
	}

	info, err := c.backend.provider.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	user, err := c.backend.resolveSocialAccount(ctx, info)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending = user
	c.mu.Unlock()

	return nil
}

// CompleteSocialRedirect consumes the pending redirect result, if any, and
// signs it in. With nothing pending it returns (nil, nil).
func (c *Client) CompleteSocialRedirect(ctx context.Context) (*model.SessionUser, error) {
	c.mu.Lock()
	user := c.pending
	c.pending = nil
	c.mu.Unlock()

	if user == nil {
		return nil, nil
	}

	c.setCurrent(user)
	return user, nil
}

func (c *Client) setCurrent(user *model.SessionUser) {
	c.mu.Lock()
	c.current = user
	fns := make([]func(*model.SessionUser), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
