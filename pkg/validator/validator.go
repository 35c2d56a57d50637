package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/healthfirst/portal-api/internal/model"
)

// FieldErrors maps a field path (json names, dot separated) to the message
// shown next to that field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

// Clear drops the error for one field, as happens when the user edits it.
func (e FieldErrors) Clear(field string) {
	delete(e, field)
}

// Validator validates portal forms and renders failures with the portal's
// own wording.
type Validator struct {
	validate *playground.Validate
}

func New() *Validator {
	return NewWithClock(time.Now)
}

// NewWithClock fixes "today" for the age gate.
func NewWithClock(now func() time.Time) *Validator {
	v := playground.New()
	if err := RegisterRules(v, now); err != nil {
		// Only reachable through a programming error in the rule table.
		panic(err)
	}
	return &Validator{validate: v}
}

// Struct validates a form and returns nil when it is valid.
func (v *Validator) Struct(form interface{}) FieldErrors {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": err.Error()}
	}
	return Translate(verrs)
}

// Translate turns validator errors into FieldErrors, first failure per field.
func Translate(verrs playground.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		if _, seen := out[path]; seen {
			continue
		}
		out[path] = messageFor(fe.Namespace(), fe.Tag(), fe.Param())
	}
	return out
}

// RegisterTags installs the field-level portal tags on v. Gin's binding
// engine gets these so request structs can use the same tags.
func RegisterTags(v *playground.Validate, now func() time.Time) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]playground.Func{
		"present":        stringRule(func(s string) bool { return strings.TrimSpace(s) != "" }),
		"portalemail":    stringRule(IsEmail),
		"phone":          stringRule(IsPhone),
		"emailorphone":   stringRule(IsEmailOrPhone),
		"strongpassword": stringRule(IsStrongPassword),
		"clock":          stringRule(IsClock),
		"weekday":        stringRule(model.IsWeekday),
		"timezone":       stringRule(model.IsTimezone),
		"specialization": stringRule(model.IsSpecialization),
		"clinician":      stringRule(model.IsClinician),
		"gender":         stringRule(model.IsGender),
		"isodate": stringRule(func(s string) bool {
			_, ok := ParseDate(s)
			return ok
		}),
		"minage": func(fl playground.FieldLevel) bool {
			years, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			dob, ok := ParseDate(fl.Field().String())
			if !ok {
				return false
			}
			return IsAtLeastAge(dob, now(), years)
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s rule: %w", tag, err)
		}
	}
	return nil
}

// RegisterRules installs the tags plus the cross-field form rules.
func RegisterRules(v *playground.Validate, now func() time.Time) error {
	if err := RegisterTags(v, now); err != nil {
		return err
	}
	v.RegisterStructValidation(patientEmergencyContact, model.PatientRegistrationForm{})
	return nil
}

func stringRule(fn func(string) bool) playground.Func {
	return func(fl playground.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return fn(fl.Field().String())
	}
}

func patientEmergencyContact(sl playground.StructLevel) {
	form, ok := sl.Current().Interface().(model.PatientRegistrationForm)
	if !ok {
		return
	}

	name := strings.TrimSpace(form.EmergencyContactName)
	phone := strings.TrimSpace(form.EmergencyPhone)

	if name != "" && phone == "" {
		sl.ReportError(form.EmergencyPhone, "emergencyPhone", "EmergencyPhone", "required_with_contact", "")
	}
	if phone != "" && !IsPhone(form.EmergencyPhone) {
		sl.ReportError(form.EmergencyPhone, "emergencyPhone", "EmergencyPhone", "phone", "")
	}
	if name != "" && form.EmergencyContactName == form.FullName() {
		sl.ReportError(form.EmergencyContactName, "emergencyContactName", "EmergencyContactName", "not_self", "")
	}
	if form.EmergencyRelationship != "" && !model.IsRelationship(form.EmergencyRelationship) {
		sl.ReportError(form.EmergencyRelationship, "emergencyRelationship", "EmergencyRelationship", "relationship", "")
	}
}

// fieldPath strips the root struct name: "LoginForm.email" -> "email".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
