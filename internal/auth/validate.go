// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import "strings"

// Registration field policy.
const (
	MinUsernameLen = 3
	MinPasswordLen = 3
)

// ValidateRegistration checks the structural rules on registration fields and
// returns one FieldError per violation. It is pure: no I/O, no side effects,
// and uniqueness is deliberately not checked here.
//
// Usernames must not contain "@": login treats any identifier containing "@"
// as an email address, so an @-bearing username could never log in.
func ValidateRegistration(username, email, password string) []FieldError {
	var errs []FieldError

	switch {
	case len(username) < MinUsernameLen:
		errs = append(errs, FieldError{Field: "username", Message: "length must be at least 3"})
	case strings.Contains(username, "@"):
		errs = append(errs, FieldError{Field: "username", Message: "cannot include an @"})
	}

	if !plausibleEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "invalid email"})
	}

	errs = append(errs, ValidatePassword("password", password)...)

	return errs
}

// ValidatePassword applies the shared password length policy, reporting
// violations against the given field name ("password" on registration,
// "newPassword" on password change).
func ValidatePassword(field, password string) []FieldError {
	if len(password) < MinPasswordLen {
		return fieldErrors(field, "length must be at least 3")
	}
	return nil
}

// plausibleEmail is a basic address-shape check: one "@" with a non-empty
// local part and domain, and no whitespace. Deliverability is not our
// problem; real validation happens when mail bounces.
func plausibleEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	if strings.ContainsAny(email, " \t\n") {
		return false
	}
	return !strings.Contains(domain, "@")
}
