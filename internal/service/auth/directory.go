package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/email"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/upstream"
	jwtauth "github.com/healthfirst/portal-api/pkg/auth"
	"github.com/healthfirst/portal-api/pkg/security"
)

const (
	DemoProviderEmail = "demo@healthfirst.com"
	DemoPatientEmail  = "patient@thinkitive.com"
	DemoPassword      = "Pass@123"
)

type DirectoryConfig struct {
	LoginDelay    time.Duration `mapstructure:"login_delay"`
	RegisterDelay time.Duration `mapstructure:"register_delay"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

type account struct {
	role         model.Role
	passwordHash string
	profile      model.Profile
}

// Directory is an in-process stand-in for the Health First API. It answers
// the same way the API does, after an artificial delay.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]account

	cfg    DirectoryConfig
	hasher security.PasswordHasher
	tokens *jwtauth.TokenIssuer
	mailer email.Service
	logger *zap.Logger
}

func NewDirectory(cfg DirectoryConfig, tokens *jwtauth.TokenIssuer, mailer email.Service, logger *zap.Logger) (*Directory, error) {
	d := &Directory{
		accounts: make(map[string]account),
		cfg:      cfg,
		hasher:   security.NewBcryptHasher(cfg.BcryptCost),
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
	}

	seed := []struct {
		role    model.Role
		profile model.Profile
	}{
		{model.RoleProvider, model.Profile{ID: "1", FirstName: "Demo", LastName: "Provider", Email: DemoProviderEmail}},
		{model.RolePatient, model.Profile{ID: "2", FirstName: "Demo", LastName: "Patient", Email: DemoPatientEmail}},
	}
	for _, s := range seed {
		if err := d.add(s.role, s.profile, DemoPassword); err != nil {
			return nil, fmt.Errorf("failed to seed demo account: %w", err)
		}
	}
	return d, nil
}

func accountKey(role model.Role, email string) string {
	return string(role) + "|" + email
}

func (d *Directory) add(role model.Role, profile model.Profile, password string) error {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := accountKey(role, profile.Email)
	if _, exists := d.accounts[key]; exists {
		return &upstream.APIError{StatusCode: http.StatusConflict, Message: "An account with this email already exists"}
	}
	d.accounts[key] = account{role: role, passwordHash: hash, profile: profile}
	return nil
}

// wait blocks for the configured delay or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Login matches the identifier exactly as typed.
func (d *Directory) Login(ctx context.Context, role model.Role, email, password string) (*model.LoginResult, error) {
	if err := wait(ctx, d.cfg.LoginDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrNetwork, err)
	}

	d.mu.RLock()
	acct, ok := d.accounts[accountKey(role, email)]
	d.mu.RUnlock()

	if !ok || !d.hasher.Matches(acct.passwordHash, password) {
		d.logger.Info("simulated login rejected", zap.String("role", string(role)), zap.String("email", email))
		return nil, &upstream.APIError{StatusCode: http.StatusUnauthorized}
	}

	token, err := d.tokens.Issue(acct.profile.ID, acct.profile.Email, string(role))
	if err != nil {
		return nil, err
	}
	profile, err := json.Marshal(acct.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}

	d.logger.Info("simulated login accepted", zap.String("role", string(role)), zap.String("email", email))
	return &model.LoginResult{Token: token, Profile: profile}, nil
}

func (d *Directory) RegisterProvider(ctx context.Context, req *model.ProviderRegistrationRequest) error {
	d.logger.Info("provider registration received",
		zap.String("email", req.Email),
		zap.String("specialization", req.Specialization),
		zap.Int("years_of_experience", req.YearsOfExperience),
		zap.String("license_number", req.LicenseNumber),
	)
	return d.register(ctx, model.RoleProvider, req.FirstName, req.LastName, req.Email, req.Password)
}

func (d *Directory) RegisterPatient(ctx context.Context, req *model.PatientRegistrationRequest) error {
	d.logger.Info("patient registration received",
		zap.String("email", req.Email),
		zap.String("gender", req.Gender),
		zap.Bool("emergency_contact", req.EmergencyContactName != ""),
	)
	return d.register(ctx, model.RolePatient, req.FirstName, req.LastName, req.Email, req.Password)
}

func (d *Directory) register(ctx context.Context, role model.Role, first, last, emailAddr, password string) error {
	if err := wait(ctx, d.cfg.RegisterDelay); err != nil {
		return fmt.Errorf("%w: %v", upstream.ErrNetwork, err)
	}

	profile := model.Profile{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Email:     emailAddr,
	}
	if err := d.add(role, profile, password); err != nil {
		return err
	}

	// The account exists either way; a mail failure is only logged.
	if err := d.mailer.SendVerification(ctx, emailAddr, profile.DisplayName("")); err != nil {
		d.logger.Warn("verification email failed", zap.String("email", emailAddr), zap.Error(err))
	}
	return nil
}

// SubmitAvailability accepts any draft carrying a token this directory issued.
func (d *Directory) SubmitAvailability(ctx context.Context, token string, draft model.AvailabilityDraft) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", upstream.ErrNetwork, err)
	}

	claims, err := d.tokens.Validate(token)
	if err != nil {
		return &upstream.APIError{StatusCode: http.StatusUnauthorized, Message: "Session expired. Please log in again."}
	}

	d.logger.Info("availability submitted",
		zap.String("provider", claims.Subject),
		zap.String("clinician", draft.ClinicianName),
		zap.String("timezone", draft.Timezone),
		zap.Int("date_ranges", len(draft.DateRanges)),
		zap.Int("weekly_slots", len(draft.WeeklySlots)),
		zap.Int("blocked_intervals", len(draft.BlockedIntervals)),
	)
	return nil
}
