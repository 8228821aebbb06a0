// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

// Package redis provides Redis-backed implementations of the ephemeral auth
// stores. Redis supplies the TTL auto-expiry both contracts rely on: keys
// vanish on their own, with no cleanup pass.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/driftboard/driftboard/internal/auth"
)

// TokenStore implements auth.TokenStore on a Redis client.
//
// Keys hold secrets (reset tokens), so they are never attached to errors or
// logged.
type TokenStore struct {
	client *goredis.Client
}

// NewTokenStore creates a TokenStore on the given client.
func NewTokenStore(client *goredis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Put stores value under key with the given TTL.
func (s *TokenStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return oops.Code("TOKEN_PUT_FAILED").Wrap(err)
	}
	return nil
}

// Get returns the value under key, or auth.ErrNotFound once the key has
// expired or never existed.
func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("TOKEN_GET_FAILED").Wrap(err)
	}
	return value, nil
}

// Delete removes key and reports whether it existed. DEL executes atomically
// in Redis, so concurrent deletes of the same key see exactly one true.
func (s *TokenStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, oops.Code("TOKEN_DELETE_FAILED").Wrap(err)
	}
	return removed > 0, nil
}
