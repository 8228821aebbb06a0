// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import (
	"context"
	"time"
)

// User is a registered account. Username and email are unique; the username
// comparison is case-sensitive. PasswordHash is an opaque PHC digest and the
// plaintext never appears anywhere in this package's types.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRepository is the account directory: lookup and creation of user
// records. Uniqueness of username and email is enforced here, at the storage
// layer, not by callers.
type UserRepository interface {
	// Create stores a new user and fills in ID, CreatedAt, and UpdatedAt.
	// Returns an error wrapping ErrDuplicate when the username or email is
	// already taken; the database constraint makes this atomic under
	// concurrent registration.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by id. Wraps ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact username. Wraps ErrNotFound
	// when absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email. Wraps ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash for a user and bumps
	// UpdatedAt. Wraps ErrNotFound when the user no longer exists.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
