// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a create would violate a uniqueness
// constraint, such as an already-taken username.
var ErrDuplicate = errors.New("already exists")

// FieldError reports a recoverable failure against a single input field.
// It is the only error shape that crosses the Service boundary.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// msgInternal is the generic message for unexpected storage failures. The
// underlying cause is logged, never shown to the caller.
const msgInternal = "something went wrong"

func fieldErrors(field, message string) []FieldError {
	return []FieldError{{Field: field, Message: message}}
}
