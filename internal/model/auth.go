package model

import (
	"encoding/json"
	"strings"
)

// Role identifies which portal journey a flow or session belongs to.
type Role string

const (
	RoleProvider Role = "provider"
	RolePatient  Role = "patient"
)

// LoginForm is shared by provider and patient login. Email also accepts a
// phone number.
type LoginForm struct {
	Email      string `json:"email" validate:"present,emailorphone"`
	Password   string `json:"password" validate:"required,min=6"`
	RememberMe bool   `json:"rememberMe"`
}

type ClinicAddress struct {
	Street string `json:"street" validate:"present"`
	City   string `json:"city" validate:"present"`
	State  string `json:"state" validate:"present"`
	Zip    string `json:"zip" validate:"present"`
}

type ProviderRegistrationForm struct {
	FirstName         string        `json:"firstName" validate:"present"`
	LastName          string        `json:"lastName" validate:"present"`
	Email             string        `json:"email" validate:"present,portalemail"`
	PhoneNumber       string        `json:"phoneNumber" validate:"present,phone"`
	LicenseNumber     string        `json:"licenseNumber" validate:"present"`
	Specialization    string        `json:"specialization" validate:"required,specialization"`
	YearsOfExperience int           `json:"yearsOfExperience" validate:"gt=0,lte=50"`
	ClinicAddress     ClinicAddress `json:"clinicAddress"`
	Password          string        `json:"password" validate:"required,strongpassword"`
	ConfirmPassword   string        `json:"confirmPassword" validate:"required,eqfield=Password"`
	AcceptTerms       bool          `json:"acceptTerms" validate:"required"`
}

// ProviderRegistrationRequest is the body sent to the remote registration
// endpoint. AcceptTerms stays on the client side.
type ProviderRegistrationRequest struct {
	FirstName         string        `json:"firstName"`
	LastName          string        `json:"lastName"`
	Email             string        `json:"email"`
	Password          string        `json:"password"`
	ConfirmPassword   string        `json:"confirmPassword"`
	PhoneNumber       string        `json:"phoneNumber"`
	Specialization    string        `json:"specialization"`
	YearsOfExperience int           `json:"yearsOfExperience"`
	LicenseNumber     string        `json:"licenseNumber"`
	ClinicAddress     ClinicAddress `json:"clinicAddress"`
}

func (f *ProviderRegistrationForm) Request() *ProviderRegistrationRequest {
	return &ProviderRegistrationRequest{
		FirstName:         f.FirstName,
		LastName:          f.LastName,
		Email:             f.Email,
		Password:          f.Password,
		ConfirmPassword:   f.ConfirmPassword,
		PhoneNumber:       f.PhoneNumber,
		Specialization:    f.Specialization,
		YearsOfExperience: f.YearsOfExperience,
		LicenseNumber:     f.LicenseNumber,
		ClinicAddress:     f.ClinicAddress,
	}
}

type PatientRegistrationForm struct {
	FirstName   string `json:"firstName" validate:"present,min=2,max=50"`
	LastName    string `json:"lastName" validate:"present,min=2,max=50"`
	Email       string `json:"email" validate:"present,portalemail"`
	Phone       string `json:"phone" validate:"present,phone"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,isodate,minage=13"`
	Gender      string `json:"gender" validate:"required,gender"`

	StreetAddress string `json:"streetAddress" validate:"present,max=200"`
	City          string `json:"city" validate:"present,max=100"`
	State         string `json:"state" validate:"present,max=50"`
	ZipCode       string `json:"zipCode" validate:"present"`

	// Emergency contact is optional; its rules are checked at struct level.
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyRelationship string `json:"emergencyRelationship"`
	EmergencyPhone        string `json:"emergencyPhone"`

	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	AcceptTerms     bool   `json:"acceptTerms" validate:"required"`
}

type PatientRegistrationRequest struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	DateOfBirth           string `json:"dateOfBirth"`
	Gender                string `json:"gender"`
	StreetAddress         string `json:"streetAddress"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	ZipCode               string `json:"zipCode"`
	EmergencyContactName  string `json:"emergencyContactName,omitempty"`
	EmergencyRelationship string `json:"emergencyRelationship,omitempty"`
	EmergencyPhone        string `json:"emergencyPhone,omitempty"`
	Password              string `json:"password"`
	ConfirmPassword       string `json:"confirmPassword"`
}

func (f *PatientRegistrationForm) Request() *PatientRegistrationRequest {
	return &PatientRegistrationRequest{
		FirstName:             f.FirstName,
		LastName:              f.LastName,
		Email:                 f.Email,
		Phone:                 f.Phone,
		DateOfBirth:           f.DateOfBirth,
		Gender:                f.Gender,
		StreetAddress:         f.StreetAddress,
		City:                  f.City,
		State:                 f.State,
		ZipCode:               f.ZipCode,
		EmergencyContactName:  f.EmergencyContactName,
		EmergencyRelationship: f.EmergencyRelationship,
		EmergencyPhone:        f.EmergencyPhone,
		Password:              f.Password,
		ConfirmPassword:       f.ConfirmPassword,
	}
}

// FullName is what the emergency contact name is compared against.
func (f *PatientRegistrationForm) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// LoginResult is what a successful login yields: a token and the raw profile
// object returned by the API.
type LoginResult struct {
	Token   string          `json:"token"`
	Profile json.RawMessage `json:"profile"`
}

// Profile is the subset of the cached profile the portal reads back.
type Profile struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// DisplayName mirrors the dashboard header: "First Last" or a role fallback.
func (p *Profile) DisplayName(fallback string) string {
	if p == nil {
		return fallback
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return fallback
	}
	return name
}
