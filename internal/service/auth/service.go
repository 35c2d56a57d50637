package auth

import (
	"context"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/service/availability"
)

const (
	ModeSimulated = "simulated"
	ModeRemote    = "remote"
)

type Authenticator interface {
	Login(ctx context.Context, role model.Role, email, password string) (*model.LoginResult, error)
}

type Registrar interface {
	RegisterProvider(ctx context.Context, req *model.ProviderRegistrationRequest) error
	RegisterPatient(ctx context.Context, req *model.PatientRegistrationRequest) error
}

// Backend is everything the portal delegates to the Health First API. The
// remote client and the simulated Directory both satisfy it.
type Backend interface {
	Authenticator
	Registrar
	availability.Submitter
}
