package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/upstream"
	jwtauth "github.com/healthfirst/portal-api/pkg/auth"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendVerification(ctx context.Context, to, name string) error {
	args := m.Called(ctx, to, name)
	return args.Error(0)
}

func newDirectory(t *testing.T, cfg DirectoryConfig, mailer *mockMailer) *Directory {
	t.Helper()
	cfg.BcryptCost = bcrypt.MinCost

	issuer, err := jwtauth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	d, err := NewDirectory(cfg, issuer, mailer, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestDirectory_DemoLogin(t *testing.T) {
	d := newDirectory(t, DirectoryConfig{}, &mockMailer{})
	ctx := context.Background()

	res, err := d.Login(ctx, model.RoleProvider, DemoProviderEmail, DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	var p model.Profile
	require.NoError(t, json.Unmarshal(res.Profile, &p))
	assert.Equal(t, "Demo Provider", p.DisplayName(""))

	res, err = d.Login(ctx, model.RolePatient, DemoPatientEmail, DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestDirectory_RejectsWrongCredentials(t *testing.T) {
	d := newDirectory(t, DirectoryConfig{}, &mockMailer{})
	ctx := context.Background()

	cases := []struct {
		role     model.Role
		email    string
		password string
	}{
		{model.RoleProvider, DemoProviderEmail, "wrong"},
		{model.RoleProvider, "DEMO@healthfirst.com", DemoPassword},
		{model.RolePatient, DemoProviderEmail, DemoPassword},
	}

	for _, c := range cases {
		_, err := d.Login(ctx, c.role, c.email, c.password)
		var apiErr *upstream.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid email or password. Please try again.",
			upstream.MessageOr(err, "Invalid email or password. Please try again."))
	}
}

func TestDirectory_LoginDelayHonoursContext(t *testing.T) {
	d := newDirectory(t, DirectoryConfig{LoginDelay: time.Hour}, &mockMailer{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Login(ctx, model.RoleProvider, DemoProviderEmail, DemoPassword)
	assert.ErrorIs(t, err, upstream.ErrNetwork)
}

func TestDirectory_RegisterAddsAccountAndSendsMail(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("SendVerification", mock.Anything, "new@example.com", "New Patient").Return(nil).Once()

	d := newDirectory(t, DirectoryConfig{}, mailer)
	ctx := context.Background()

	req := &model.PatientRegistrationRequest{
		FirstName: "New",
		LastName:  "Patient",
		Email:     "new@example.com",
		Password:  "Str0ng!pass",
	}
	require.NoError(t, d.RegisterPatient(ctx, req))
	mailer.AssertExpectations(t)

	res, err := d.Login(ctx, model.RolePatient, "new@example.com", "Str0ng!pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	err = d.RegisterPatient(ctx, req)
	var apiErr *upstream.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestDirectory_MailFailureDoesNotFailRegistration(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("SendVerification", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	d := newDirectory(t, DirectoryConfig{}, mailer)
	err := d.RegisterProvider(context.Background(), &model.ProviderRegistrationRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "Str0ng!pass",
	})
	assert.NoError(t, err)
}

func TestDirectory_SubmitAvailability(t *testing.T) {
	d := newDirectory(t, DirectoryConfig{}, &mockMailer{})
	ctx := context.Background()

	res, err := d.Login(ctx, model.RoleProvider, DemoProviderEmail, DemoPassword)
	require.NoError(t, err)

	assert.NoError(t, d.SubmitAvailability(ctx, res.Token, model.PlaceholderDraft()))

	err = d.SubmitAvailability(ctx, "not-a-token", model.PlaceholderDraft())
	var apiErr *upstream.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
