// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session handle configuration.
const (
	// SessionHandleBytes is the entropy of a session handle (hex-encoded to
	// twice this many characters).
	SessionHandleBytes = 32

	// DefaultSessionTTL is how long a session stays valid. Sessions expire
	// passively; there is no refresh.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// SessionStore binds an authenticated account id to an opaque client-held
// handle. Handles are independent of each other: destroying one session does
// not affect other sessions for the same account.
type SessionStore interface {
	// Create generates a fresh unguessable handle bound to the account id
	// for the given lifetime and returns it.
	Create(ctx context.Context, accountID int64, ttl time.Duration) (string, error)

	// Resolve returns the account id bound to the handle. Wraps ErrNotFound
	// when the handle is unknown or the session has expired.
	Resolve(ctx context.Context, handle string) (int64, error)

	// Destroy removes the session. Destroying an absent session is not an
	// error; only a storage failure is.
	Destroy(ctx context.Context, handle string) error
}

// GenerateSessionHandle creates a secure random handle and the hash it is
// stored under. The plaintext handle travels to the client; only the hash
// touches the store, so a leaked store dump cannot be replayed as cookies.
func GenerateSessionHandle() (handle, hash string, err error) {
	raw := make([]byte, SessionHandleBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", oops.Code("SESSION_HANDLE_FAILED").Wrap(err)
	}
	handle = hex.EncodeToString(raw)
	return handle, HashSessionHandle(handle), nil
}

// HashSessionHandle computes the SHA-256 digest a handle is stored under.
func HashSessionHandle(handle string) string {
	sum := sha256.Sum256([]byte(handle))
	return hex.EncodeToString(sum[:])
}
