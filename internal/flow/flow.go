package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/service/auth"
	"github.com/healthfirst/portal-api/internal/session"
	"github.com/healthfirst/portal-api/internal/upstream"
	"github.com/healthfirst/portal-api/pkg/metrics"
	"github.com/healthfirst/portal-api/pkg/validator"
)

// Deps are shared by every flow.
type Deps struct {
	Backend   auth.Backend
	Sessions  *session.Manager
	Validator *validator.Validator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Flow is one role's login/registration/dashboard journey for one portal
// session. All methods are safe for concurrent use.
type Flow struct {
	mu sync.Mutex

	role      model.Role
	sessionID string
	deps      Deps

	view        View
	phase       Phase
	fieldErrors validator.FieldErrors
	notice      string
	profile     json.RawMessage

	// generation changes on every view change and on Close. A response that
	// comes back under a different generation is dropped.
	generation uint64
	closed     bool
}

// New opens a flow. It starts on the dashboard when the session store already
// holds a token for this role.
func New(ctx context.Context, role model.Role, sessionID string, deps Deps) (*Flow, error) {
	f := &Flow{
		role:      role,
		sessionID: sessionID,
		deps:      deps,
		view:      ViewLogin,
		phase:     Idle(),
	}

	state, err := deps.Sessions.Load(ctx, sessionID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state.LoggedIn() {
		f.view = ViewDashboard
		f.profile = state.Profile
	}
	return f, nil
}

func (f *Flow) Role() model.Role { return f.role }

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flow) snapshot() Snapshot {
	s := Snapshot{
		Role:   f.role,
		View:   f.view,
		Phase:  f.phase.Kind(),
		Error:  f.phase.Message(),
		Notice: f.notice,
	}
	if len(f.fieldErrors) > 0 {
		s.FieldErrors = make(validator.FieldErrors, len(f.fieldErrors))
		for k, v := range f.fieldErrors {
			s.FieldErrors[k] = v
		}
	}
	if f.view == ViewDashboard {
		s.Profile = f.profile
		s.DisplayName = displayName(f.role, f.profile)
	}
	return s
}

func displayName(role model.Role, raw json.RawMessage) string {
	fallback := "Provider"
	if role == model.RolePatient {
		fallback = "Patient"
	}
	var p model.Profile
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return fallback
	}
	return p.DisplayName(fallback)
}

// begin moves the flow into submitting after validating form. It returns the
// generation the submission belongs to.
func (f *Flow) begin(view View, form interface{}) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrViewReleased
	}
	if f.phase.Kind() == PhaseSubmitting {
		return 0, ErrSubmissionInFlight
	}
	if f.view != view {
		return 0, ErrWrongView
	}

	if errs := f.deps.Validator.Struct(form); errs != nil {
		f.fieldErrors = errs
		return 0, errs
	}

	f.fieldErrors = nil
	f.notice = ""
	f.phase = Submitting()
	return f.generation, nil
}

// finish re-acquires the lock for the result of a submission. The caller
// must unlock. A stale result reports ErrViewReleased and leaves state alone.
func (f *Flow) finish(gen uint64) error {
	f.mu.Lock()
	if f.closed || f.generation != gen {
		return ErrViewReleased
	}
	return nil
}

func (f *Flow) fail(err error, fallback string) *Failure {
	msg := upstream.MessageOr(err, fallback)
	if errors.Is(err, upstream.ErrNetwork) {
		msg = NetworkErrorMessage
	}
	f.phase = Failed(msg)
	return &Failure{Message: msg, Err: err}
}

// Login validates the form, authenticates and, on success, persists the
// session and moves to the dashboard.
func (f *Flow) Login(ctx context.Context, form model.LoginForm) (Snapshot, error) {
	gen, err := f.begin(ViewLogin, &form)
	if err != nil {
		return f.Snapshot(), err
	}

	res, err := f.deps.Backend.Login(ctx, f.role, form.Email, form.Password)
	f.deps.Metrics.FlowSubmission(string(f.role), "login", err)

	if ferr := f.finish(gen); ferr != nil {
		f.mu.Unlock()
		f.deps.Logger.Info("dropping login result for released view",
			zap.String("session_id", f.sessionID),
			zap.String("role", string(f.role)),
		)
		return f.Snapshot(), ferr
	}
	defer f.mu.Unlock()

	if err != nil {
		failure := f.fail(err, LoginFailedMessage)
		f.deps.Logger.Info("login failed",
			zap.String("session_id", f.sessionID),
			zap.String("role", string(f.role)),
			zap.Error(err),
		)
		return f.snapshot(), failure
	}

	if err := f.deps.Sessions.Save(ctx, f.sessionID, f.role, res.Token, res.Profile); err != nil {
		f.phase = Failed(SessionFailedMessage)
		f.deps.Logger.Error("failed to persist session",
			zap.String("session_id", f.sessionID),
			zap.Error(err),
		)
		return f.snapshot(), &Failure{Message: SessionFailedMessage, Err: err}
	}

	f.view = ViewDashboard
	f.phase = Idle()
	f.profile = res.Profile
	f.generation++
	return f.snapshot(), nil
}

func (f *Flow) RegisterProvider(ctx context.Context, form model.ProviderRegistrationForm) (Snapshot, error) {
	if f.role != model.RoleProvider {
		return f.Snapshot(), ErrWrongView
	}
	return f.register(ctx, &form, func() error {
		return f.deps.Backend.RegisterProvider(ctx, form.Request())
	})
}

func (f *Flow) RegisterPatient(ctx context.Context, form model.PatientRegistrationForm) (Snapshot, error) {
	if f.role != model.RolePatient {
		return f.Snapshot(), ErrWrongView
	}
	return f.register(ctx, &form, func() error {
		return f.deps.Backend.RegisterPatient(ctx, form.Request())
	})
}

func (f *Flow) register(ctx context.Context, form interface{}, submit func() error) (Snapshot, error) {
	gen, err := f.begin(ViewRegistration, form)
	if err != nil {
		return f.Snapshot(), err
	}

	err = submit()
	f.deps.Metrics.FlowSubmission(string(f.role), "register", err)

	if ferr := f.finish(gen); ferr != nil {
		f.mu.Unlock()
		return f.Snapshot(), ferr
	}
	defer f.mu.Unlock()

	if err != nil {
		failure := f.fail(err, RegistrationFailedMessage)
		return f.snapshot(), failure
	}

	f.view = ViewLogin
	f.phase = Idle()
	f.notice = RegistrationNotice
	f.generation++
	return f.snapshot(), nil
}

func (f *Flow) switchView(from, to View) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.snapshot(), ErrViewReleased
	}
	if f.view != from && f.view != to {
		return f.snapshot(), ErrWrongView
	}

	if f.view != to {
		f.generation++
		f.view = to
	}
	f.phase = Idle()
	f.fieldErrors = nil
	f.notice = ""
	return f.snapshot(), nil
}

// ShowRegistration switches to the registration form. Any submission still
// in flight is abandoned.
func (f *Flow) ShowRegistration() (Snapshot, error) {
	return f.switchView(ViewLogin, ViewRegistration)
}

func (f *Flow) BackToLogin() (Snapshot, error) {
	return f.switchView(ViewRegistration, ViewLogin)
}

// Logout clears the stored session and returns to the login form.
func (f *Flow) Logout(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deps.Sessions.Clear(ctx, f.sessionID, f.role); err != nil {
		return f.snapshot(), fmt.Errorf("failed to clear session: %w", err)
	}

	f.view = ViewLogin
	f.phase = Idle()
	f.fieldErrors = nil
	f.notice = ""
	f.profile = nil
	f.generation++
	return f.snapshot(), nil
}

// EditField clears the error shown next to one field.
func (f *Flow) EditField(field string) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fieldErrors.Clear(field)
	return f.snapshot()
}

// Close releases the flow. Results of submissions still in flight are
// dropped when they arrive.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.generation++
}
