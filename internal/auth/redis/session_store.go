// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/driftboard/driftboard/internal/auth"
)

// sessionKeyPrefix namespaces session entries. The key suffix is the SHA-256
// of the client-held handle, not the handle itself.
const sessionKeyPrefix = "sess:"

// SessionStore implements auth.SessionStore on a Redis client. Session
// expiry is the key's TTL; an expired session is indistinguishable from one
// that never existed.
type SessionStore struct {
	client *goredis.Client
}

// NewSessionStore creates a SessionStore on the given client.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create generates a fresh handle bound to the account id.
func (s *SessionStore) Create(ctx context.Context, accountID int64, ttl time.Duration) (string, error) {
	handle, hash, err := auth.GenerateSessionHandle()
	if err != nil {
		return "", err
	}

	value := strconv.FormatInt(accountID, 10)
	if err := s.client.Set(ctx, sessionKeyPrefix+hash, value, ttl).Err(); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("account_id", accountID).
			Wrap(err)
	}
	return handle, nil
}

// Resolve returns the account id bound to the handle.
func (s *SessionStore) Resolve(ctx context.Context, handle string) (int64, error) {
	value, err := s.client.Get(ctx, sessionKeyPrefix+auth.HashSessionHandle(handle)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("SESSION_RESOLVE_FAILED").Wrap(err)
	}

	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, oops.Code("SESSION_CORRUPT").Wrap(err)
	}
	return accountID, nil
}

// Destroy removes the session. Destroying an absent session succeeds.
func (s *SessionStore) Destroy(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+auth.HashSessionHandle(handle)).Err(); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").Wrap(err)
	}
	return nil
}
