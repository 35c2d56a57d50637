package flow

import (
	"encoding/json"
	"errors"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/pkg/validator"
)

// Messages shown at form level.
const (
	NetworkErrorMessage       = "Network error. Please check your connection and try again."
	LoginFailedMessage        = "Invalid email or password. Please try again."
	RegistrationFailedMessage = "Registration failed. Please try again."
	RegistrationNotice        = "Registration successful! Please check your email for verification."
	SessionFailedMessage      = "Unable to start your session. Please try again."
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrViewReleased       = errors.New("view was released before the response arrived")
	ErrWrongView          = errors.New("action is not available in the current view")
)

type View string

const (
	ViewLogin        View = "login"
	ViewRegistration View = "registration"
	ViewDashboard    View = "dashboard"
)

type PhaseKind string

const (
	PhaseIdle       PhaseKind = "idle"
	PhaseSubmitting PhaseKind = "submitting"
	PhaseFailed     PhaseKind = "failed"
)

// Phase is idle, submitting, or failed with a message. The fields are
// unexported so a submitting phase can never carry an error.
type Phase struct {
	kind    PhaseKind
	message string
}

func Idle() Phase { return Phase{kind: PhaseIdle} }
func Submitting() Phase { return Phase{kind: PhaseSubmitting} }
func Failed(message string) Phase { return Phase{kind: PhaseFailed, message: message} }

func (p Phase) Kind() PhaseKind {
	if p.kind == "" {
		return PhaseIdle
	}
	return p.kind
}

func (p Phase) Message() string { return p.message }

// Failure is a submission the backend turned down. Message is what the
// form shows; Err is the cause.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// Snapshot is the render state of one flow.
type Snapshot struct {
	Role        model.Role            `json:"role"`
	View        View                  `json:"view"`
	Phase       PhaseKind             `json:"phase"`
	Error       string                `json:"error,omitempty"`
	FieldErrors validator.FieldErrors `json:"fieldErrors,omitempty"`
	Notice      string                `json:"notice,omitempty"`
	DisplayName string                `json:"displayName,omitempty"`
	Profile     json.RawMessage       `json:"profile,omitempty"`
}
