package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
)

var ErrTokenExpired = errors.New("token already expired")

// Keys are the storage names used for one role. They match what the web
// client historically kept in local storage.
type Keys struct {
	Token   string
	Profile string
}

func KeysFor(role model.Role) Keys {
	if role == model.RolePatient {
		return Keys{Token: "patientAuthToken", Profile: "patientData"}
	}
	return Keys{Token: "authToken", Profile: "providerData"}
}

// State is what an authenticated view reads back on startup.
type State struct {
	Token   string          `json:"-"`
	Profile json.RawMessage `json:"profile,omitempty"`
}

func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Manager scopes store keys per portal session and role.
type Manager struct {
	store      Store
	defaultTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewManager(store Store, defaultTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger,
	}
}

func scoped(sessionID, name string) string {
	return sessionID + ":" + name
}

// Load reads the token and cached profile. A missing entry is an empty state,
// not an error. A token without its profile is still a logged-in state.
func (m *Manager) Load(ctx context.Context, sessionID string, role model.Role) (State, error) {
	keys := KeysFor(role)

	token, err := m.store.Get(ctx, scoped(sessionID, keys.Token))
	if errors.Is(err, ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	state := State{Token: token}
	profile, err := m.store.Get(ctx, scoped(sessionID, keys.Profile))
	switch {
	case err == nil:
		if json.Valid([]byte(profile)) {
			state.Profile = json.RawMessage(profile)
		} else {
			m.logger.Warn("discarding malformed cached profile",
				zap.String("session_id", sessionID),
				zap.String("role", string(role)),
			)
		}
	case !errors.Is(err, ErrNotFound):
		return State{}, err
	}
	return state, nil
}

// Save persists a successful login. The entry lives as long as the token when
// the token carries an exp claim.
func (m *Manager) Save(ctx context.Context, sessionID string, role model.Role, token string, profile json.RawMessage) error {
	ttl, err := TokenTTL(token, m.now(), m.defaultTTL)
	if err != nil {
		return err
	}

	if len(profile) == 0 {
		profile = json.RawMessage("{}")
	}

	keys := KeysFor(role)
	if err := m.store.Set(ctx, scoped(sessionID, keys.Token), token, ttl); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := m.store.Set(ctx, scoped(sessionID, keys.Profile), string(profile), ttl); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	m.logger.Debug("session saved",
		zap.String("session_id", sessionID),
		zap.String("role", string(role)),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Clear is logout: both keys go together.
func (m *Manager) Clear(ctx context.Context, sessionID string, role model.Role) error {
	keys := KeysFor(role)
	return m.store.Delete(ctx, scoped(sessionID, keys.Token), scoped(sessionID, keys.Profile))
}

func (m *Manager) LoggedIn(ctx context.Context, sessionID string, role model.Role) bool {
	state, err := m.Load(ctx, sessionID, role)
	return err == nil && state.LoggedIn()
}

// DisplayName returns "First Last" from the cached profile, or the role name.
func (m *Manager) DisplayName(ctx context.Context, sessionID string, role model.Role) string {
	fallback := "Provider"
	if role == model.RolePatient {
		fallback = "Patient"
	}

	state, err := m.Load(ctx, sessionID, role)
	if err != nil || len(state.Profile) == 0 {
		return fallback
	}

	var p model.Profile
	if err := json.Unmarshal(state.Profile, &p); err != nil {
		return fallback
	}
	return p.DisplayName(fallback)
}

// TokenTTL derives the entry lifetime from a JWT exp claim. Opaque tokens and
// tokens without exp get the fallback.
func TokenTTL(token string, now time.Time, fallback time.Duration) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback, nil
	}

	ttl := exp.Sub(now)
	if ttl <= 0 {
		return 0, ErrTokenExpired
	}
	return ttl, nil
}
