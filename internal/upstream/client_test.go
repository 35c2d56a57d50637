package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: time.Second}, nil, zap.NewNop())
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name        string
		role        model.Role
		status      int
		body        string
		wantPath    string
		wantToken   string
		wantProfile string
		wantAPIErr  *APIError
		wantNetwork bool
	}{
		{
			name:        "token and user",
			role:        model.RoleProvider,
			status:      http.StatusOK,
			body:        `{"token":"t1","user":{"firstName":"Demo"}}`,
			wantPath:    "/api/v1/auth/login",
			wantToken:   "t1",
			wantProfile: `{"firstName":"Demo"}`,
		},
		{
			name:        "accessToken and whole body as profile",
			role:        model.RoleProvider,
			status:      http.StatusOK,
			body:        `{"accessToken":"t2","firstName":"Demo"}`,
			wantPath:    "/api/v1/auth/login",
			wantToken:   "t2",
			wantProfile: `{"accessToken":"t2","firstName":"Demo"}`,
		},
		{
			name:        "patient endpoint",
			role:        model.RolePatient,
			status:      http.StatusOK,
			body:        `{"token":"p1","user":{"id":"9"}}`,
			wantPath:    "/api/v1/patient/login",
			wantToken:   "p1",
			wantProfile: `{"id":"9"}`,
		},
		{
			name:       "server message",
			role:       model.RoleProvider,
			status:     http.StatusUnauthorized,
			body:       `{"message":"Account locked"}`,
			wantPath:   "/api/v1/auth/login",
			wantAPIErr: &APIError{StatusCode: http.StatusUnauthorized, Message: "Account locked"},
		},
		{
			name:       "no message",
			role:       model.RoleProvider,
			status:     http.StatusUnauthorized,
			body:       `{}`,
			wantPath:   "/api/v1/auth/login",
			wantAPIErr: &APIError{StatusCode: http.StatusUnauthorized},
		},
		{
			name:        "undecodable error body",
			role:        model.RoleProvider,
			status:      http.StatusInternalServerError,
			body:        `<html>oops</html>`,
			wantPath:    "/api/v1/auth/login",
			wantNetwork: true,
		},
		{
			name:        "missing token",
			role:        model.RoleProvider,
			status:      http.StatusOK,
			body:        `{"user":{}}`,
			wantPath:    "/api/v1/auth/login",
			wantNetwork: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotCreds credentials
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&gotCreds)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			res, err := client.Login(context.Background(), tt.role, "demo@healthfirst.com", "Pass@123")
			assert.Equal(t, tt.wantPath, gotPath)
			assert.Equal(t, credentials{Email: "demo@healthfirst.com", Password: "Pass@123"}, gotCreds)

			switch {
			case tt.wantAPIErr != nil:
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantAPIErr, apiErr)
			case tt.wantNetwork:
				assert.ErrorIs(t, err, ErrNetwork)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, res.Token)
				assert.JSONEq(t, tt.wantProfile, string(res.Profile))
			}
		})
	}
}

func TestMessageOr(t *testing.T) {
	assert.Equal(t, "Account locked", MessageOr(&APIError{StatusCode: 401, Message: "Account locked"}, "fallback"))
	assert.Equal(t, "fallback", MessageOr(&APIError{StatusCode: 401}, "fallback"))
	assert.Equal(t, "fallback", MessageOr(ErrNetwork, "fallback"))
}

func TestRegisterProvider_SendsPayload(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/provider/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"1"}`)
	})

	form := &model.ProviderRegistrationForm{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "ada@example.com",
		PhoneNumber:       "+15551234567",
		LicenseNumber:     "LIC-1",
		Specialization:    "CARDIOLOGY",
		YearsOfExperience: 4,
		ClinicAddress:     model.ClinicAddress{Street: "1 Main", City: "Pune", State: "MH", Zip: "411001"},
		Password:          "Str0ng!pass",
		ConfirmPassword:   "Str0ng!pass",
		AcceptTerms:       true,
	}
	require.NoError(t, client.RegisterProvider(context.Background(), form.Request()))

	assert.Equal(t, "Ada", got["firstName"])
	assert.Equal(t, float64(4), got["yearsOfExperience"])
	assert.Equal(t, "Str0ng!pass", got["confirmPassword"])
	assert.NotContains(t, got, "acceptTerms")
	assert.Equal(t, map[string]interface{}{
		"street": "1 Main", "city": "Pune", "state": "MH", "zip": "411001",
	}, got["clinicAddress"])
}

func TestSubmitAvailability_SendsBearerAndDraft(t *testing.T) {
	var got model.AvailabilityDraft
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/provider/availability", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	draft := model.PlaceholderDraft()
	require.NoError(t, client.SubmitAvailability(context.Background(), "tok", draft))
	assert.Equal(t, draft, got)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil, zap.NewNop())
	_, err := client.Login(context.Background(), model.RoleProvider, "a@b.co", "secret1")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestBreaker_OpensOnTransportFailuresOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"bad"}`)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Breaker: BreakerConfig{FailureThreshold: 2, Timeout: time.Minute},
	}, nil, zap.NewNop())

	// API errors never trip the breaker.
	for i := 0; i < 5; i++ {
		err := client.RegisterPatient(context.Background(), &model.PatientRegistrationRequest{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}

	srv.Close()
	for i := 0; i < 2; i++ {
		err := client.RegisterPatient(context.Background(), &model.PatientRegistrationRequest{})
		assert.ErrorIs(t, err, ErrNetwork)
	}

	// Open: fails fast without touching the network.
	err := client.RegisterPatient(context.Background(), &model.PatientRegistrationRequest{})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
