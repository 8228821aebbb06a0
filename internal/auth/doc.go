// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

// Package auth implements credential and session lifecycle management for
// Driftboard: registration, login, logout, and password reset via a
// time-limited single-use token.
//
// The package is organized leaf-first. PasswordHasher, the registration
// validator, TokenStore, SessionStore, and UserRepository are narrow
// contracts with storage implementations in the postgres and redis
// subpackages. Service composes them into the user-facing operations and
// never touches storage directly.
//
// Operations report validation, not-found, conflict, and storage failures as
// FieldError values inside their results rather than as returned errors, so
// the transport layer can render every outcome uniformly as {field, message}
// pairs.
package auth
