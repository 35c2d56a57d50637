package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestTokenTTL(t *testing.T) {
	now := time.Date(2025, 6, 19, 9, 0, 0, 0, time.UTC)

	t.Run("uses exp claim", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"exp": now.Add(90 * time.Minute).Unix()})
		ttl, err := TokenTTL(token, now, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Minute, ttl)
	})

	t.Run("falls back without exp", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"sub": "1"})
		ttl, err := TokenTTL(token, now, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, ttl)
	})

	t.Run("falls back for opaque tokens", func(t *testing.T) {
		ttl, err := TokenTTL("opaque-token", now, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, ttl)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
		_, err := TokenTTL(token, now, time.Hour)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestManager_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Hour, zap.NewNop())

	state, err := m.Load(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	assert.False(t, state.LoggedIn())
	assert.Equal(t, "Provider", m.DisplayName(ctx, "s1", model.RoleProvider))

	profile := json.RawMessage(`{"id":"7","firstName":"Demo","lastName":"Provider"}`)
	require.NoError(t, m.Save(ctx, "s1", model.RoleProvider, "tok", profile))

	state, err = m.Load(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	assert.True(t, state.LoggedIn())
	assert.Equal(t, "tok", state.Token)
	assert.JSONEq(t, string(profile), string(state.Profile))
	assert.Equal(t, "Demo Provider", m.DisplayName(ctx, "s1", model.RoleProvider))

	raw, err := store.Get(ctx, "s1:authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok", raw)
	_, err = store.Get(ctx, "s1:providerData")
	require.NoError(t, err)

	// Other sessions and roles are isolated.
	assert.False(t, m.LoggedIn(ctx, "s2", model.RoleProvider))
	assert.False(t, m.LoggedIn(ctx, "s1", model.RolePatient))

	require.NoError(t, m.Clear(ctx, "s1", model.RoleProvider))
	assert.False(t, m.LoggedIn(ctx, "s1", model.RoleProvider))
	_, err = store.Get(ctx, "s1:providerData")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_PatientKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Hour, zap.NewNop())

	require.NoError(t, m.Save(ctx, "s1", model.RolePatient, "ptok", nil))

	raw, err := store.Get(ctx, "s1:patientAuthToken")
	require.NoError(t, err)
	assert.Equal(t, "ptok", raw)

	raw, err = store.Get(ctx, "s1:patientData")
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	assert.Equal(t, "Patient", m.DisplayName(ctx, "s1", model.RolePatient))
}

func TestManager_TokenWithoutProfileIsLoggedIn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Hour, zap.NewNop())

	require.NoError(t, store.Set(ctx, "s1:authToken", "tok", 0))
	require.NoError(t, store.Set(ctx, "s1:providerData", "not json", 0))

	state, err := m.Load(ctx, "s1", model.RoleProvider)
	require.NoError(t, err)
	assert.True(t, state.LoggedIn())
	assert.Nil(t, state.Profile)
	assert.Equal(t, "Provider", m.DisplayName(ctx, "s1", model.RoleProvider))
}

func TestManager_SaveRejectsExpiredToken(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Hour, zap.NewNop())
	token := signed(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})

	err := m.Save(context.Background(), "s1", model.RoleProvider, token, nil)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.False(t, m.LoggedIn(context.Background(), "s1", model.RoleProvider))
}
