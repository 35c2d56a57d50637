package validator

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf16"
)

// whitespace is the ECMAScript \s class. RE2's \s only covers ASCII.
const whitespace = `\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	emailPattern = regexp.MustCompile(`^[^` + whitespace + `@]+@[^` + whitespace + `@]+\.[^` + whitespace + `@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	phoneSeparators = regexp.MustCompile(`[` + whitespace + `\-()]`)
	nonDigits       = regexp.MustCompile(`\D`)

	upper  = regexp.MustCompile(`[A-Z]`)
	lower  = regexp.MustCompile(`[a-z]`)
	digit  = regexp.MustCompile(`[0-9]`)
	symbol = regexp.MustCompile(`[^A-Za-z0-9]`)
)

const (
	MinPasswordLen = 8
	MinimumAge     = 13
	DateLayout     = "2006-01-02"
)

// IsEmail reports whether v is a single-@ address with a dotted domain.
func IsEmail(v string) bool {
	return emailPattern.MatchString(v)
}

// IsPhone accepts an optional leading + and up to 16 digits once spaces,
// dashes and parentheses are removed.
func IsPhone(v string) bool {
	return phonePattern.MatchString(phoneSeparators.ReplaceAllString(v, ""))
}

// IsEmailOrPhone is the login identifier rule: anything with an @ must be an
// email, anything else is judged on its digits alone.
func IsEmailOrPhone(v string) bool {
	if strings.Contains(v, "@") {
		return IsEmail(v)
	}
	return phonePattern.MatchString(nonDigits.ReplaceAllString(v, ""))
}

// IsStrongPassword measures length in UTF-16 code units, as browsers do.
func IsStrongPassword(p string) bool {
	return textLen(p) >= MinPasswordLen &&
		upper.MatchString(p) &&
		lower.MatchString(p) &&
		digit.MatchString(p) &&
		symbol.MatchString(p)
}

func textLen(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func PasswordsMatch(password, confirm string) bool {
	return confirm != "" && password == confirm
}

type Strength string

const (
	StrengthNone   Strength = ""
	StrengthWeak   Strength = "Weak"
	StrengthMedium Strength = "Medium"
	StrengthStrong Strength = "Strong"
)

// PasswordStrength drives the registration strength meter.
func PasswordStrength(p string) Strength {
	switch {
	case p == "":
		return StrengthNone
	case IsStrongPassword(p):
		return StrengthStrong
	case textLen(p) >= 6:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// Age returns completed years between dob and now, in calendar terms.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func IsAtLeastAge(dob, now time.Time, years int) bool {
	return Age(dob, now) >= years
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(v string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsClock reports whether v is a 24h HH:MM value.
func IsClock(v string) bool {
	return clockPattern.MatchString(v)
}
