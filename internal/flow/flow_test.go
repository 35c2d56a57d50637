package flow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthfirst/portal-api/internal/email"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/service/auth"
	"github.com/healthfirst/portal-api/internal/session"
	"github.com/healthfirst/portal-api/internal/upstream"
	jwtauth "github.com/healthfirst/portal-api/pkg/auth"
	"github.com/healthfirst/portal-api/pkg/validator"
)

// blockingBackend holds Login until release is closed.
type blockingBackend struct {
	auth.Backend
	started chan struct{}
	release chan struct{}
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingBackend) Login(ctx context.Context, role model.Role, email, password string) (*model.LoginResult, error) {
	close(b.started)
	<-b.release
	return &model.LoginResult{Token: "late-token", Profile: json.RawMessage(`{"firstName":"Late"}`)}, nil
}

type failingBackend struct {
	auth.Backend
	err error
}

func (b *failingBackend) Login(context.Context, model.Role, string, string) (*model.LoginResult, error) {
	return nil, b.err
}

func (b *failingBackend) RegisterProvider(context.Context, *model.ProviderRegistrationRequest) error {
	return b.err
}

func newDeps(t *testing.T, backend auth.Backend) (Deps, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, zap.NewNop())

	if backend == nil {
		issuer, err := jwtauth.NewTokenIssuer("test-secret", time.Hour)
		require.NoError(t, err)
		dir, err := auth.NewDirectory(auth.DirectoryConfig{BcryptCost: bcrypt.MinCost}, issuer,
			email.NewService(email.Config{}, zap.NewNop()), zap.NewNop())
		require.NoError(t, err)
		backend = dir
	}

	return Deps{
		Backend:   backend,
		Sessions:  sessions,
		Validator: validator.New(),
		Logger:    zap.NewNop(),
	}, sessions
}

func validProviderForm() model.ProviderRegistrationForm {
	return model.ProviderRegistrationForm{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "ada@example.com",
		PhoneNumber:       "+1 (555) 123-4567",
		LicenseNumber:     "LIC-42",
		Specialization:    "CARDIOLOGY",
		YearsOfExperience: 7,
		ClinicAddress:     model.ClinicAddress{Street: "1 Main St", City: "Pune", State: "MH", Zip: "411001"},
		Password:          "Str0ng!pass",
		ConfirmPassword:   "Str0ng!pass",
		AcceptTerms:       true,
	}
}

func TestFlow_DemoLoginReachesDashboard(t *testing.T) {
	deps, sessions := newDeps(t, nil)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)
	assert.Equal(t, ViewLogin, f.Snapshot().View)

	snap, err := f.Login(ctx, model.LoginForm{Email: auth.DemoProviderEmail, Password: auth.DemoPassword})
	require.NoError(t, err)
	assert.Equal(t, ViewDashboard, snap.View)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "Demo Provider", snap.DisplayName)
	assert.True(t, sessions.LoggedIn(ctx, "s1", model.RoleProvider))

	// A fresh flow for the same session starts on the dashboard.
	again, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)
	assert.Equal(t, ViewDashboard, again.Snapshot().View)
}

func TestFlow_WrongPasswordFails(t *testing.T) {
	deps, sessions := newDeps(t, nil)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	snap, err := f.Login(ctx, model.LoginForm{Email: auth.DemoProviderEmail, Password: "wrong1"})
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, LoginFailedMessage, failure.Message)
	assert.Equal(t, ViewLogin, snap.View)
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Equal(t, "Invalid email or password. Please try again.", snap.Error)
	assert.False(t, sessions.LoggedIn(ctx, "s1", model.RoleProvider))

	// A failed phase accepts another submission.
	snap, err = f.Login(ctx, model.LoginForm{Email: auth.DemoProviderEmail, Password: auth.DemoPassword})
	require.NoError(t, err)
	assert.Equal(t, ViewDashboard, snap.View)
	assert.Empty(t, snap.Error)
}

func TestFlow_FieldErrorsStayIdleAndClearOnEdit(t *testing.T) {
	deps, _ := newDeps(t, nil)
	f, err := New(context.Background(), model.RolePatient, "s1", deps)
	require.NoError(t, err)

	snap, err := f.Login(context.Background(), model.LoginForm{Email: "", Password: "123"})
	var fieldErrs validator.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, validator.FieldErrors{
		"email":    "Email or phone number is required",
		"password": "Password must be at least 6 characters",
	}, snap.FieldErrors)

	snap = f.EditField("email")
	assert.Equal(t, validator.FieldErrors{"password": "Password must be at least 6 characters"}, snap.FieldErrors)
}

func TestFlow_FieldErrorsKeepEarlierFailure(t *testing.T) {
	deps, _ := newDeps(t, nil)
	ctx := context.Background()
	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	_, err = f.Login(ctx, model.LoginForm{Email: auth.DemoProviderEmail, Password: "wrong1"})
	require.Error(t, err)

	snap, err := f.Login(ctx, model.LoginForm{Email: "", Password: "wrong1"})
	var fieldErrs validator.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Equal(t, LoginFailedMessage, snap.Error)
	assert.Contains(t, snap.FieldErrors, "email")
}

func TestFlow_NetworkErrorMessage(t *testing.T) {
	deps, _ := newDeps(t, &failingBackend{err: upstream.ErrNetwork})
	f, err := New(context.Background(), model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	snap, err := f.Login(context.Background(), model.LoginForm{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, upstream.ErrNetwork)
	assert.Equal(t, NetworkErrorMessage, snap.Error)
}

func TestFlow_ServerMessageWins(t *testing.T) {
	deps, _ := newDeps(t, &failingBackend{err: &upstream.APIError{StatusCode: 422, Message: "License already registered"}})
	f, err := New(context.Background(), model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	_, err = f.ShowRegistration()
	require.NoError(t, err)

	snap, err := f.RegisterProvider(context.Background(), validProviderForm())
	require.Error(t, err)
	assert.Equal(t, ViewRegistration, snap.View)
	assert.Equal(t, "License already registered", snap.Error)
}

func TestFlow_SecondSubmitWhileInFlightIsRejected(t *testing.T) {
	backend := newBlockingBackend()
	deps, _ := newDeps(t, backend)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.Login(ctx, model.LoginForm{Email: "a@b.co", Password: "secret1"})
		done <- err
	}()
	<-backend.started

	assert.Equal(t, PhaseSubmitting, f.Snapshot().Phase)
	_, err = f.Login(ctx, model.LoginForm{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(backend.release)
	require.NoError(t, <-done)
	assert.Equal(t, ViewDashboard, f.Snapshot().View)
}

func TestFlow_CloseDropsLateResult(t *testing.T) {
	backend := newBlockingBackend()
	deps, sessions := newDeps(t, backend)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.Login(ctx, model.LoginForm{Email: "a@b.co", Password: "secret1"})
		done <- err
	}()
	<-backend.started

	f.Close()
	close(backend.release)

	assert.ErrorIs(t, <-done, ErrViewReleased)
	assert.False(t, sessions.LoggedIn(ctx, "s1", model.RoleProvider))
}

func TestFlow_ViewChangeDropsLateResult(t *testing.T) {
	backend := newBlockingBackend()
	deps, sessions := newDeps(t, backend)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.Login(ctx, model.LoginForm{Email: "a@b.co", Password: "secret1"})
		done <- err
	}()
	<-backend.started

	snap, err := f.ShowRegistration()
	require.NoError(t, err)
	assert.Equal(t, ViewRegistration, snap.View)
	assert.Equal(t, PhaseIdle, snap.Phase)

	close(backend.release)
	assert.ErrorIs(t, <-done, ErrViewReleased)
	assert.Equal(t, ViewRegistration, f.Snapshot().View)
	assert.False(t, sessions.LoggedIn(ctx, "s1", model.RoleProvider))
}

func TestFlow_RegistrationReturnsToLoginWithNotice(t *testing.T) {
	deps, _ := newDeps(t, nil)
	ctx := context.Background()

	f, err := New(ctx, model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	_, err = f.RegisterProvider(ctx, validProviderForm())
	assert.ErrorIs(t, err, ErrWrongView)

	_, err = f.ShowRegistration()
	require.NoError(t, err)

	snap, err := f.RegisterProvider(ctx, validProviderForm())
	require.NoError(t, err)
	assert.Equal(t, ViewLogin, snap.View)
	assert.Equal(t, RegistrationNotice, snap.Notice)

	// The new account can log in.
	snap, err = f.Login(ctx, model.LoginForm{Email: "ada@example.com", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, ViewDashboard, snap.View)
	assert.Equal(t, "Ada Lovelace", snap.DisplayName)
	assert.Empty(t, snap.Notice)
}

func TestFlow_RegisterPatientRequiresPatientFlow(t *testing.T) {
	deps, _ := newDeps(t, nil)
	f, err := New(context.Background(), model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	_, err = f.RegisterPatient(context.Background(), model.PatientRegistrationForm{})
	assert.ErrorIs(t, err, ErrWrongView)
}

func TestFlow_ToggleViewsClearsError(t *testing.T) {
	deps, _ := newDeps(t, nil)
	f, err := New(context.Background(), model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	_, err = f.Login(context.Background(), model.LoginForm{Email: auth.DemoProviderEmail, Password: "wrong1"})
	require.Error(t, err)

	snap, err := f.ShowRegistration()
	require.NoError(t, err)
	assert.Empty(t, snap.Error)

	snap, err = f.BackToLogin()
	require.NoError(t, err)
	assert.Equal(t, ViewLogin, snap.View)
	assert.Equal(t, PhaseIdle, snap.Phase)
}

func TestFlow_Logout(t *testing.T) {
	deps, sessions := newDeps(t, nil)
	ctx := context.Background()

	f, err := New(ctx, model.RolePatient, "s1", deps)
	require.NoError(t, err)

	_, err = f.Login(ctx, model.LoginForm{Email: auth.DemoPatientEmail, Password: auth.DemoPassword})
	require.NoError(t, err)
	assert.True(t, sessions.LoggedIn(ctx, "s1", model.RolePatient))

	snap, err := f.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewLogin, snap.View)
	assert.Empty(t, snap.DisplayName)
	assert.False(t, sessions.LoggedIn(ctx, "s1", model.RolePatient))
}

func TestFlow_ClosedFlowRejectsActions(t *testing.T) {
	deps, _ := newDeps(t, nil)
	f, err := New(context.Background(), model.RoleProvider, "s1", deps)
	require.NoError(t, err)

	f.Close()
	_, err = f.Login(context.Background(), model.LoginForm{Email: auth.DemoProviderEmail, Password: auth.DemoPassword})
	assert.ErrorIs(t, err, ErrViewReleased)
	_, err = f.ShowRegistration()
	assert.ErrorIs(t, err, ErrViewReleased)
}

func TestRegistry_ReusesAndReleases(t *testing.T) {
	deps, _ := newDeps(t, nil)
	r := NewRegistry(RegistryConfig{}, deps)
	ctx := context.Background()

	_, err := r.Get(ctx, "", model.RoleProvider)
	assert.ErrorIs(t, err, ErrSessionRequired)

	a, err := r.Get(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	b, err := r.Get(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	assert.Same(t, a, b)

	p, err := r.Get(ctx, "s1", model.RolePatient)
	require.NoError(t, err)
	assert.NotSame(t, a, p)

	r.Release("s1", model.RoleProvider)
	_, err = a.ShowRegistration()
	assert.ErrorIs(t, err, ErrViewReleased)

	c, err := r.Get(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}
