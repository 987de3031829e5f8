package validation

import (
	"regexp"
	"unicode/utf8"

	"farmcast/internal/models"
)

const (
	minPasswordLen = 4
	minNameLen     = 2
	maxNameLen     = 20
	minEmailLen    = 2
	maxEmailLen    = 40
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}$`)

// Registration is the unvalidated sign-up form.
type Registration struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// ValidatePassword rejects passwords of three characters or fewer.
func ValidatePassword(pwd string) error {
	if utf8.RuneCountInString(pwd) < minPasswordLen {
		return models.NewForbiddenError("Incorrect password.")
	}
	return nil
}

// ValidateEmailForm checks the address shape only.
func ValidateEmailForm(email string) error {
	if !emailPattern.MatchString(email) {
		return models.NewForbiddenError("Incorrect email form.")
	}
	return nil
}

// ValidateRegistration applies the sign-up rules in the order clients expect their messages.
// Email uniqueness is checked by the caller between the form and length rules.
func ValidateRegistration(r Registration) error {
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if err := ValidateEmailForm(r.Email); err != nil {
		return err
	}
	return ValidateRegistrationLengths(r)
}

// ValidateRegistrationLengths checks name and email lengths.
func ValidateRegistrationLengths(r Registration) error {
	if !inRange(r.FirstName, minNameLen, maxNameLen) {
		return models.NewForbiddenError("First name has invalid length.")
	}
	if !inRange(r.LastName, minNameLen, maxNameLen) {
		return models.NewForbiddenError("Last name has invalid length.")
	}
	if !inRange(r.Email, minEmailLen, maxEmailLen) {
		return models.NewForbiddenError("Email has invalid length.")
	}
	return nil
}

func inRange(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
