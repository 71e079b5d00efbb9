package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daobinhgiang/bedtrack/internal/credential"
	"github.com/daobinhgiang/bedtrack/internal/model"
)

// fakeCreds is an in-memory credential service with behavior-subject
// session-change delivery, matching the real client.
type fakeCreds struct {
	mu        sync.Mutex
	current   *model.SessionUser
	listeners map[int]func(*model.SessionUser)
	nextID    int
	pending   *model.SessionUser

	createErr   error
	verifyErr   error
	exchangeErr error
	signOutErr  error
	finishErr   error
	completeErr error

	signOutCalls int
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{listeners: make(map[int]func(*model.SessionUser))}
}

func (f *fakeCreds) setCurrent(user *model.SessionUser) {
	f.mu.Lock()
	f.current = user
	fns := make([]func(*model.SessionUser), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func (f *fakeCreds) CreateAccount(_ context.Context, email, _ string) (*model.SessionUser, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	user := &model.SessionUser{ID: "acct-" + email, Email: email}
	f.setCurrent(user)
	return user, nil
}

func (f *fakeCreds) VerifyCredentials(_ context.Context, email, _ string) (*model.SessionUser, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	user := &model.SessionUser{ID: "acct-" + email, Email: email}
	f.setCurrent(user)
	return user, nil
}

func (f *fakeCreds) SignOut(_ context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.setCurrent(nil)
	return nil
}

func (f *fakeCreds) SubscribeToSessionChanges(fn func(*model.SessionUser)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	current := f.current
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeCreds) ExchangeSocialCredential(_ context.Context, _, _ string) (*model.SessionUser, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	user := &model.SessionUser{ID: "google-1", Email: "g@example.com", DisplayName: "Grace Hopper"}
	f.setCurrent(user)
	return user, nil
}

func (f *fakeCreds) BeginSocialRedirect() string {
	return "https://accounts.google.com/o/oauth2/auth?state=test"
}

func (f *fakeCreds) FinishSocialRedirect(_ context.Context, _, _ string) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.mu.Lock()
	f.pending = &model.SessionUser{ID: "google-1", Email: "g@example.com", DisplayName: "Grace Hopper"}
	f.mu.Unlock()
	return nil
}

func (f *fakeCreds) CompleteSocialRedirect(_ context.Context) (*model.SessionUser, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	if pending == nil {
		return nil, nil
	}
	f.setCurrent(pending)
	return pending, nil
}

// fakeProfiles is an in-memory profile store.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	getErr   error
	putErr   error
	putCalls int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*model.Profile)}
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.profiles[id], nil
}

func (f *fakeProfiles) Put(_ context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	copied := *profile
	f.profiles[profile.ID] = &copied
	return nil
}

type fakeSupport struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSupport) NotifyOrphanedAccount(accountID, email string) error {
	f.mu.Lock()
	f.calls = append(f.calls, accountID)
	f.mu.Unlock()
	return nil
}

func newTestController(creds *fakeCreds, profiles *fakeProfiles) *Controller {
	logger := zerolog.Nop()
	return New(creds, profiles, nil, nil, &logger)
}

// assertInvariant checks that a snapshot never carries a profile without a
// user.
func assertInvariant(t *testing.T, c *Controller) {
	t.Helper()
	snap := c.Snapshot()
	if snap.User == nil {
		assert.Nil(t, snap.Profile, "profile must be absent when user is absent")
	}
}

func TestNewResolvesInitializing(t *testing.T) {
	c := newTestController(newFakeCreds(), newFakeProfiles())
	defer c.Close()

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, FlowUnauth, SelectFlow(snap))
	assertInvariant(t, c)
}

func TestLoginSuccess(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["acct-pat@example.com"] = &model.Profile{
		ID:    "acct-pat@example.com",
		Email: "pat@example.com",
		Role:  model.RolePatient,
	}
	c := newTestController(creds, profiles)
	defer c.Close()

	err := c.Login(context.Background(), "pat@example.com", "password123")
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsPatient)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Err)
	assert.Equal(t, FlowPatient, SelectFlow(snap))
	assertInvariant(t, c)
}

func TestLoginWrongPassword(t *testing.T) {
	creds := newFakeCreds()
	creds.verifyErr = credential.ErrWrongPassword
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	err := c.Login(context.Background(), "pat@example.com", "nope")
	require.Error(t, err)

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, KindInvalidCredentials, sessErr.Kind)

	snap := c.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
	assert.Equal(t, sessErr.Message, snap.Err)
	assertInvariant(t, c)
}

func TestLoginMissingProfileSignsBackOut(t *testing.T) {
	creds := newFakeCreds()
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	err := c.Login(context.Background(), "orphan@example.com", "password123")
	require.Error(t, err)

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, KindProfileMissing, sessErr.Kind)
	assert.Contains(t, sessErr.Message, "contact support")

	snap := c.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
	assert.Equal(t, 1, creds.signOutCalls)
	assertInvariant(t, c)
}

func TestSignupCreatesProfile(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	c := newTestController(creds, profiles)
	defer c.Close()

	err := c.Signup(context.Background(), SignupParams{
		Email:     "doc@example.com",
		Password:  "password123",
		Role:      model.RoleClinician,
		FirstName: "Dana",
		LastName:  "Reyes",
	})
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsClinician)
	assert.True(t, c.HasRole(model.RoleClinician))
	assert.False(t, c.HasRole(model.RolePatient))
	assert.Equal(t, FlowClinician, SelectFlow(snap))

	stored := profiles.profiles["acct-doc@example.com"]
	require.NotNil(t, stored)
	assert.Equal(t, "Dana", stored.FirstName)
	assert.Equal(t, model.RoleClinician, stored.Role)
	assertInvariant(t, c)
}

func TestSignupRejectsUnknownRole(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	c := newTestController(creds, profiles)
	defer c.Close()

	err := c.Signup(context.Background(), SignupParams{
		Email:    "doc@example.com",
		Password: "password123",
		Role:     model.Role("admin"),
	})
	require.Error(t, err)

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, KindUnknown, sessErr.Kind)
	assert.Equal(t, 0, profiles.putCalls)
	assert.False(t, c.Snapshot().IsAuthenticated)
	assertInvariant(t, c)
}

func TestSignupProfileWriteFailureNotifiesSupport(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.putErr = errors.New("write timeout")
	support := &fakeSupport{}
	logger := zerolog.Nop()
	c := New(creds, profiles, support, nil, &logger)
	defer c.Close()

	err := c.Signup(context.Background(), SignupParams{
		Email:    "pat@example.com",
		Password: "password123",
		Role:     model.RolePatient,
	})
	require.Error(t, err)

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, KindUnknown, sessErr.Kind)
	assert.Contains(t, sessErr.Message, "contact support")
	assert.Len(t, support.calls, 1)
	assert.False(t, c.Snapshot().IsAuthenticated)
	assertInvariant(t, c)
}

func TestLoginWithGoogleFirstTimeGetsPatientProfile(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	c := newTestController(creds, profiles)
	defer c.Close()

	err := c.LoginWithGoogle(context.Background(), "id-token", "access-token")
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsPatient)
	assert.Equal(t, 1, profiles.putCalls)

	stored := profiles.profiles["google-1"]
	require.NotNil(t, stored)
	assert.Equal(t, model.RolePatient, stored.Role)
	assert.Equal(t, "Grace", stored.FirstName)
	assert.Equal(t, "Hopper", stored.LastName)
	assertInvariant(t, c)
}

func TestLoginWithGoogleExistingProfileNotOverwritten(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["google-1"] = &model.Profile{
		ID:    "google-1",
		Email: "g@example.com",
		Role:  model.RoleClinician,
	}
	c := newTestController(creds, profiles)
	defer c.Close()

	err := c.LoginWithGoogle(context.Background(), "id-token", "access-token")
	require.NoError(t, err)

	assert.Equal(t, 0, profiles.putCalls)
	assert.True(t, c.HasRole(model.RoleClinician))
	assertInvariant(t, c)
}

func TestGoogleRedirectRoundTrip(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	c := newTestController(creds, profiles)
	defer c.Close()

	url := c.BeginGoogleRedirect()
	assert.NotEmpty(t, url)

	err := c.HandleGoogleCallback(context.Background(), "test", "auth-code")
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsPatient)
	assertInvariant(t, c)
}

func TestCompleteGoogleRedirectWithoutPendingIsSilent(t *testing.T) {
	creds := newFakeCreds()
	creds.verifyErr = credential.ErrWrongPassword
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	// Leave a visible error behind, then make sure the no-op does not
	// clear it.
	_ = c.Login(context.Background(), "pat@example.com", "nope")
	before := c.Snapshot()
	require.NotEmpty(t, before.Err)

	err := c.CompleteGoogleRedirect(context.Background())
	require.NoError(t, err)

	after := c.Snapshot()
	assert.Equal(t, before.Err, after.Err)
	assert.False(t, after.Loading)
	assert.False(t, after.IsAuthenticated)
	assertInvariant(t, c)
}

func TestHandleGoogleCallbackStateMismatch(t *testing.T) {
	creds := newFakeCreds()
	creds.finishErr = credential.ErrSocialCancelled
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	err := c.HandleGoogleCallback(context.Background(), "stale", "auth-code")
	require.Error(t, err)

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, KindSocialFlowCancelled, sessErr.Kind)
	assert.False(t, c.Snapshot().IsAuthenticated)
	assertInvariant(t, c)
}

func TestLogout(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["acct-pat@example.com"] = &model.Profile{ID: "acct-pat@example.com", Role: model.RolePatient}
	c := newTestController(creds, profiles)
	defer c.Close()

	require.NoError(t, c.Login(context.Background(), "pat@example.com", "password123"))
	require.NoError(t, c.Logout(context.Background()))

	snap := c.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
	assert.Empty(t, snap.Err)
	assert.Equal(t, FlowUnauth, SelectFlow(snap))
	assertInvariant(t, c)

	// Logging out while signed out still succeeds.
	require.NoError(t, c.Logout(context.Background()))
	assertInvariant(t, c)
}

func TestRefreshProfileWhileSignedOutIsNoOp(t *testing.T) {
	creds := newFakeCreds()
	creds.verifyErr = credential.ErrWrongPassword
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	_ = c.Login(context.Background(), "pat@example.com", "nope")
	before := c.Snapshot()

	require.NoError(t, c.RefreshProfile(context.Background()))

	after := c.Snapshot()
	assert.Equal(t, before.Err, after.Err)
	assert.Equal(t, before.Loading, after.Loading)
	assertInvariant(t, c)
}

func TestRefreshProfilePicksUpChanges(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["acct-pat@example.com"] = &model.Profile{
		ID:        "acct-pat@example.com",
		Role:      model.RolePatient,
		FirstName: "Pat",
	}
	c := newTestController(creds, profiles)
	defer c.Close()

	require.NoError(t, c.Login(context.Background(), "pat@example.com", "password123"))

	profiles.mu.Lock()
	profiles.profiles["acct-pat@example.com"].FirstName = "Patricia"
	profiles.mu.Unlock()

	require.NoError(t, c.RefreshProfile(context.Background()))
	assert.Equal(t, "Patricia", c.Snapshot().Profile.FirstName)
	assertInvariant(t, c)
}

func TestClearError(t *testing.T) {
	creds := newFakeCreds()
	creds.verifyErr = credential.ErrTooManyRequests
	c := newTestController(creds, newFakeProfiles())
	defer c.Close()

	_ = c.Login(context.Background(), "pat@example.com", "password123")
	require.NotEmpty(t, c.Snapshot().Err)

	c.ClearError()
	assert.Empty(t, c.Snapshot().Err)
}

func TestConcurrentLoginLogoutKeepsInvariant(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["acct-pat@example.com"] = &model.Profile{ID: "acct-pat@example.com", Role: model.RolePatient}
	c := newTestController(creds, profiles)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Login(context.Background(), "pat@example.com", "password123")
		}()
		go func() {
			defer wg.Done()
			_ = c.Logout(context.Background())
		}()
	}
	wg.Wait()

	// Whichever operation finished last, the snapshot must be coherent.
	snap := c.Snapshot()
	if snap.User == nil {
		assert.Nil(t, snap.Profile)
	}
	assert.False(t, snap.Loading)
}

func TestSessionChangeFromAnotherHandleIsMirrored(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	profiles.profiles["acct-pat@example.com"] = &model.Profile{ID: "acct-pat@example.com", Role: model.RolePatient}
	c := newTestController(creds, profiles)
	defer c.Close()

	creds.setCurrent(&model.SessionUser{ID: "acct-pat@example.com", Email: "pat@example.com"})
	assert.True(t, c.Snapshot().IsAuthenticated)

	creds.setCurrent(nil)
	snap := c.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
}

func TestCloseStopsMirroring(t *testing.T) {
	creds := newFakeCreds()
	c := newTestController(creds, newFakeProfiles())

	c.Close()
	creds.setCurrent(&model.SessionUser{ID: "acct-x", Email: "x@example.com"})

	assert.False(t, c.Snapshot().IsAuthenticated)
	// Closing twice is safe.
	c.Close()
}

func TestSignupStoresDateOfBirth(t *testing.T) {
	creds := newFakeCreds()
	profiles := newFakeProfiles()
	c := newTestController(creds, profiles)
	defer c.Close()

	dob := time.Date(1994, time.March, 12, 0, 0, 0, 0, time.UTC)
	err := c.Signup(context.Background(), SignupParams{
		Email:       "pat@example.com",
		Password:    "password123",
		Role:        model.RolePatient,
		DateOfBirth: &dob,
		PhoneNumber: "+15550100",
	})
	require.NoError(t, err)

	stored := profiles.profiles["acct-pat@example.com"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.DateOfBirth)
	assert.True(t, dob.Equal(*stored.DateOfBirth))
	assert.Equal(t, "+15550100", stored.PhoneNumber)
}
