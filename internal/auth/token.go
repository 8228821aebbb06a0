// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	// ResetKeyPrefix is the literal prefix of reset-token keys in the
	// TokenStore: "reset:" + token maps to the account id as a decimal
	// string.
	ResetKeyPrefix = "reset:"

	// ResetTokenBytes is the entropy of a reset token (hex-encoded to twice
	// this many characters).
	ResetTokenBytes = 32

	// ResetTokenTTL is the reset token lifetime: exactly 259 200 000 ms.
	ResetTokenTTL = 3 * 24 * time.Hour
)

// TokenStore is an ephemeral key-value store with TTL-based auto-expiry.
// Keys vanish on their own when the TTL elapses; no cleanup pass is needed.
type TokenStore interface {
	// Put stores value under key for the given lifetime, replacing any
	// previous value.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value under key. Wraps ErrNotFound when the key is
	// absent or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key and reports whether it existed. Under concurrent
	// deletes of the same key exactly one caller observes true, which is
	// what makes get-then-delete token redemption single-winner.
	Delete(ctx context.Context, key string) (bool, error)
}

// ResetKey builds the TokenStore key for a reset token.
func ResetKey(token string) string {
	return ResetKeyPrefix + token
}

// GenerateResetToken creates a secure random single-use token.
func GenerateResetToken() (string, error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("RESET_TOKEN_FAILED").Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}
