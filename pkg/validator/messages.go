package validator

import "fmt"

const (
	passwordRuleMessage = "Password must be at least 8 characters with uppercase, lowercase, number, and special character"
	mismatchMessage     = "Passwords do not match"
	confirmMessage      = "Please confirm your password"
	termsMessage        = "You must accept the terms and conditions"
)

var loginMessages = map[string]map[string]string{
	"email": {
		"present":      "Email or phone number is required",
		"emailorphone": "Please enter a valid email or phone number",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
}

// messages is keyed by the validator namespace (root struct + json path),
// then by the failing tag.
var messages = map[string]map[string]string{
	"ProviderRegistrationForm.firstName": {"present": "First name is required"},
	"ProviderRegistrationForm.lastName":  {"present": "Last name is required"},
	"ProviderRegistrationForm.email": {
		"present":     "Email is required",
		"portalemail": "Please enter a valid email address",
	},
	"ProviderRegistrationForm.phoneNumber": {
		"present": "Phone number is required",
		"phone":   "Please enter a valid phone number",
	},
	"ProviderRegistrationForm.licenseNumber": {"present": "Medical license number is required"},
	"ProviderRegistrationForm.specialization": {
		"required":       "Specialization is required",
		"specialization": "Please select a valid specialization",
	},
	"ProviderRegistrationForm.yearsOfExperience": {
		"gt":  "Years of experience is required",
		"lte": "Years of experience must be 50 or less",
	},
	"ProviderRegistrationForm.clinicAddress.street": {"present": "Street address is required"},
	"ProviderRegistrationForm.clinicAddress.city":   {"present": "City is required"},
	"ProviderRegistrationForm.clinicAddress.state":  {"present": "State is required"},
	"ProviderRegistrationForm.clinicAddress.zip":    {"present": "ZIP code is required"},
	"ProviderRegistrationForm.password": {
		"required":       "Password is required",
		"strongpassword": passwordRuleMessage,
	},
	"ProviderRegistrationForm.confirmPassword": {
		"required": confirmMessage,
		"eqfield":  mismatchMessage,
	},
	"ProviderRegistrationForm.acceptTerms": {"required": termsMessage},

	"PatientRegistrationForm.firstName": {
		"present": "First name is required",
		"min":     "First name must be at least 2 characters",
		"max":     "First name must be less than 50 characters",
	},
	"PatientRegistrationForm.lastName": {
		"present": "Last name is required",
		"min":     "Last name must be at least 2 characters",
		"max":     "Last name must be less than 50 characters",
	},
	"PatientRegistrationForm.email": {
		"present":     "Email address is required",
		"portalemail": "Please enter a valid email address",
	},
	"PatientRegistrationForm.phone": {
		"present": "Phone number is required",
		"phone":   "Please enter a valid phone number",
	},
	"PatientRegistrationForm.dateOfBirth": {
		"required": "Date of birth is required",
		"isodate":  "Please enter a valid date of birth",
		"minage":   "You must be at least 13 years old to register",
	},
	"PatientRegistrationForm.gender": {
		"required": "Gender selection is required",
		"gender":   "Please select a valid gender",
	},
	"PatientRegistrationForm.streetAddress": {
		"present": "Street address is required",
		"max":     "Street address must be less than 200 characters",
	},
	"PatientRegistrationForm.city": {
		"present": "City is required",
		"max":     "City must be less than 100 characters",
	},
	"PatientRegistrationForm.state": {
		"present": "State/Province is required",
		"max":     "State/Province must be less than 50 characters",
	},
	"PatientRegistrationForm.zipCode": {"present": "ZIP/Postal code is required"},
	"PatientRegistrationForm.emergencyPhone": {
		"required_with_contact": "Emergency phone number is required if emergency contact name is provided",
		"phone":                 "Please enter a valid emergency phone number",
	},
	"PatientRegistrationForm.emergencyContactName": {
		"not_self": "Emergency contact cannot be the same as the patient",
	},
	"PatientRegistrationForm.emergencyRelationship": {
		"relationship": "Please select a valid relationship",
	},
	"PatientRegistrationForm.password": {
		"required":       "Password is required",
		"strongpassword": passwordRuleMessage,
	},
	"PatientRegistrationForm.confirmPassword": {
		"required": confirmMessage,
		"eqfield":  mismatchMessage,
	},
	"PatientRegistrationForm.acceptTerms": {"required": termsMessage},
}

func init() {
	for field, byTag := range loginMessages {
		messages["LoginForm."+field] = byTag
	}
}

func messageFor(namespace, tag, param string) string {
	if byTag, ok := messages[namespace]; ok {
		if msg, ok := byTag[tag]; ok {
			return msg
		}
	}

	switch tag {
	case "required", "present":
		return "Field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", param)
	case "max":
		return fmt.Sprintf("Must be less than %s characters", param)
	case "clock":
		return "Time must be in HH:MM format"
	case "isodate":
		return "Date must be in YYYY-MM-DD format"
	case "weekday":
		return "Please select a valid day"
	case "timezone":
		return "Please select a valid time zone"
	case "clinician":
		return "Please select a valid clinician"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", param)
	default:
		return "Invalid value"
	}
}
