// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/driftboard/driftboard/internal/auth"
	"github.com/driftboard/driftboard/internal/auth/mocks"
)

type serviceDeps struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionStore
	tokens   *mocks.MockTokenStore
	hasher   *mocks.MockPasswordHasher
	mailer   *mocks.MockMailer
}

func newTestService(t *testing.T, opts ...auth.Option) (*auth.Service, serviceDeps) {
	t.Helper()
	deps := serviceDeps{
		users:    mocks.NewMockUserRepository(t),
		sessions: mocks.NewMockSessionStore(t),
		tokens:   mocks.NewMockTokenStore(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		mailer:   mocks.NewMockMailer(t),
	}
	opts = append([]auth.Option{auth.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	svc, err := auth.NewService(deps.users, deps.sessions, deps.tokens, deps.hasher, deps.mailer, opts...)
	require.NoError(t, err)
	return svc, deps
}

func fieldOf(t *testing.T, res *auth.Result) auth.FieldError {
	t.Helper()
	require.Len(t, res.Errors, 1)
	return res.Errors[0]
}

func TestNewService_NilDependencies(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	sessions := mocks.NewMockSessionStore(t)
	tokens := mocks.NewMockTokenStore(t)
	hasher := mocks.NewMockPasswordHasher(t)
	mailer := mocks.NewMockMailer(t)

	tests := []struct {
		name string
		fn   func() (*auth.Service, error)
	}{
		{"nil users", func() (*auth.Service, error) {
			return auth.NewService(nil, sessions, tokens, hasher, mailer)
		}},
		{"nil sessions", func() (*auth.Service, error) {
			return auth.NewService(users, nil, tokens, hasher, mailer)
		}},
		{"nil tokens", func() (*auth.Service, error) {
			return auth.NewService(users, sessions, nil, hasher, mailer)
		}},
		{"nil hasher", func() (*auth.Service, error) {
			return auth.NewService(users, sessions, tokens, nil, mailer)
		}},
		{"nil mailer", func() (*auth.Service, error) {
			return auth.NewService(users, sessions, tokens, hasher, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.fn()
			require.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failure has no side effects", func(t *testing.T) {
		// No expectations on any mock: a storage or hasher call fails the test.
		svc, _ := newTestService(t)

		res := svc.Register(ctx, "al", "alice@x.com", "pw")
		require.False(t, res.Ok())
		assert.Nil(t, res.User)
		assert.Empty(t, res.Session)
		fields := make([]string, 0, len(res.Errors))
		for _, fe := range res.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"username", "password"}, fields)
	})

	t.Run("successful registration creates account and session", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(nil, auth.ErrNotFound)
		deps.hasher.On("Hash", "password123").Return("$argon2id$digest", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Run(func(args mock.Arguments) {
			u := args.Get(1).(*auth.User)
			u.ID = 7
		}).Return(nil)
		deps.sessions.On("Create", ctx, int64(7), auth.DefaultSessionTTL).Return("handle7", nil)

		res := svc.Register(ctx, "alice", "alice@x.com", "password123")
		require.True(t, res.Ok())
		require.NotNil(t, res.User)
		assert.Equal(t, int64(7), res.User.ID)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, "$argon2id$digest", res.User.PasswordHash)
		assert.Equal(t, "handle7", res.Session)
	})

	t.Run("pre-check reports taken username without create", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").
			Return(&auth.User{ID: 1, Username: "alice"}, nil)

		res := svc.Register(ctx, "alice", "other@x.com", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "username", fe.Field)
		assert.Equal(t, "username already taken", fe.Message)
	})

	t.Run("create losing the uniqueness race reports taken username", func(t *testing.T) {
		// The pre-check saw nothing, but a concurrent register won the
		// constraint race before our insert.
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(nil, auth.ErrNotFound)
		deps.hasher.On("Hash", "password123").Return("digest", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(auth.ErrDuplicate)

		res := svc.Register(ctx, "alice", "alice@x.com", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "username", fe.Field)
		assert.Equal(t, "username already taken", fe.Message)
	})

	t.Run("storage failure reports generic error", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(nil, auth.ErrNotFound)
		deps.hasher.On("Hash", "password123").Return("digest", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(errors.New("connection refused"))

		res := svc.Register(ctx, "alice", "alice@x.com", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "username", fe.Field)
		assert.Equal(t, "something went wrong", fe.Message)
	})

	t.Run("pre-check storage failure still attempts create", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(nil, errors.New("timeout"))
		deps.hasher.On("Hash", "password123").Return("digest", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Run(func(args mock.Arguments) {
			args.Get(1).(*auth.User).ID = 3
		}).Return(nil)
		deps.sessions.On("Create", ctx, int64(3), auth.DefaultSessionTTL).Return("h", nil)

		res := svc.Register(ctx, "alice", "alice@x.com", "password123")
		assert.True(t, res.Ok())
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	user := &auth.User{ID: 7, Username: "alice", Email: "alice@x.com", PasswordHash: "digest"}

	t.Run("login by username", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		deps.hasher.On("Verify", "password123", "digest").Return(true, nil)
		deps.sessions.On("Create", ctx, int64(7), auth.DefaultSessionTTL).Return("handle7", nil)

		res := svc.Login(ctx, "alice", "password123")
		require.True(t, res.Ok())
		assert.Equal(t, int64(7), res.User.ID)
		assert.Equal(t, "handle7", res.Session)
	})

	t.Run("identifier with @ looks up by email", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)
		deps.hasher.On("Verify", "password123", "digest").Return(true, nil)
		deps.sessions.On("Create", ctx, int64(7), auth.DefaultSessionTTL).Return("handle8", nil)

		res := svc.Login(ctx, "alice@x.com", "password123")
		require.True(t, res.Ok())
		assert.Equal(t, int64(7), res.User.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "nobody").Return(nil, auth.ErrNotFound)

		res := svc.Login(ctx, "nobody", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "usernameOrEmail", fe.Field)
		assert.Equal(t, "does not exist", fe.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		deps.hasher.On("Verify", "wrongpw", "digest").Return(false, nil)

		res := svc.Login(ctx, "alice", "wrongpw")
		fe := fieldOf(t, res)
		assert.Equal(t, "password", fe.Field)
		assert.Equal(t, "incorrect password", fe.Message)
	})

	t.Run("verify failure reports generic error", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		deps.hasher.On("Verify", "password123", "digest").Return(false, errors.New("bad digest"))

		res := svc.Login(ctx, "alice", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "password", fe.Field)
		assert.Equal(t, "something went wrong", fe.Message)
	})

	t.Run("session create failure reports generic error", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetByUsername", ctx, "alice").Return(user, nil)
		deps.hasher.On("Verify", "password123", "digest").Return(true, nil)
		deps.sessions.On("Create", ctx, int64(7), auth.DefaultSessionTTL).
			Return("", errors.New("redis down"))

		res := svc.Login(ctx, "alice", "password123")
		fe := fieldOf(t, res)
		assert.Equal(t, "something went wrong", fe.Message)
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("empty handle succeeds without a store call", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.True(t, svc.Logout(ctx, ""))
	})

	t.Run("destroy succeeds", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.sessions.On("Destroy", ctx, "handle7").Return(nil)
		assert.True(t, svc.Logout(ctx, "handle7"))
	})

	t.Run("destroy failure returns false", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.sessions.On("Destroy", ctx, "handle7").Return(errors.New("redis down"))
		assert.False(t, svc.Logout(ctx, "handle7"))
	})
}

func TestService_Me(t *testing.T) {
	ctx := context.Background()

	t.Run("no session is absent, not an error", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.Nil(t, svc.Me(ctx, ""))
	})

	t.Run("unknown handle is absent", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.sessions.On("Resolve", ctx, "gone").Return(int64(0), auth.ErrNotFound)
		assert.Nil(t, svc.Me(ctx, "gone"))
	})

	t.Run("stale session whose account vanished is absent", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.sessions.On("Resolve", ctx, "handle7").Return(int64(7), nil)
		deps.users.On("GetByID", ctx, int64(7)).Return(nil, auth.ErrNotFound)
		assert.Nil(t, svc.Me(ctx, "handle7"))
	})

	t.Run("bound session resolves to the account", func(t *testing.T) {
		svc, deps := newTestService(t)
		user := &auth.User{ID: 7, Username: "alice"}
		deps.sessions.On("Resolve", ctx, "handle7").Return(int64(7), nil)
		deps.users.On("GetByID", ctx, int64(7)).Return(user, nil)
		assert.Equal(t, user, svc.Me(ctx, "handle7"))
	})
}

func TestService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email reports success with no token and no mail", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.users.On("GetByEmail", ctx, "nobody@x.com").Return(nil, auth.ErrNotFound)

		assert.True(t, svc.ForgotPassword(ctx, "nobody@x.com"))
		deps.tokens.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		deps.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("known email stores token and mails the link", func(t *testing.T) {
		svc, deps := newTestService(t, auth.WithBaseURL("https://driftboard.example"))

		user := &auth.User{ID: 42, Email: "alice@x.com"}
		deps.users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)

		var storedKey string
		deps.tokens.On("Put", ctx,
			mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "reset:") }),
			"42",
			3*24*time.Hour,
		).Run(func(args mock.Arguments) {
			storedKey = args.String(1)
		}).Return(nil)

		deps.mailer.On("Send", ctx, "alice@x.com", "Reset your password",
			mock.MatchedBy(func(body string) bool {
				return strings.Contains(body, "https://driftboard.example/change-password/")
			}),
		).Return(nil)

		assert.True(t, svc.ForgotPassword(ctx, "alice@x.com"))

		// The mailed link embeds exactly the stored token.
		token := strings.TrimPrefix(storedKey, "reset:")
		sendCall := deps.mailer.Calls[len(deps.mailer.Calls)-1]
		assert.Contains(t, sendCall.Arguments.String(3), token)
	})

	t.Run("mail failure still reports success", func(t *testing.T) {
		svc, deps := newTestService(t)

		user := &auth.User{ID: 42, Email: "alice@x.com"}
		deps.users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)
		deps.tokens.On("Put", ctx, mock.Anything, "42", 3*24*time.Hour).Return(nil)
		deps.mailer.On("Send", ctx, "alice@x.com", mock.Anything, mock.Anything).
			Return(errors.New("smtp down"))

		assert.True(t, svc.ForgotPassword(ctx, "alice@x.com"))
	})

	t.Run("token store failure still reports success and skips mail", func(t *testing.T) {
		svc, deps := newTestService(t)

		user := &auth.User{ID: 42, Email: "alice@x.com"}
		deps.users.On("GetByEmail", ctx, "alice@x.com").Return(user, nil)
		deps.tokens.On("Put", ctx, mock.Anything, "42", 3*24*time.Hour).
			Return(errors.New("redis down"))

		assert.True(t, svc.ForgotPassword(ctx, "alice@x.com"))
		deps.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("short password fails without touching the token", func(t *testing.T) {
		svc, _ := newTestService(t)

		res := svc.ChangePassword(ctx, "sometoken", "pw")
		fe := fieldOf(t, res)
		assert.Equal(t, "newPassword", fe.Field)
		assert.Equal(t, "length must be at least 3", fe.Message)
	})

	t.Run("absent token is expired", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.tokens.On("Get", ctx, "reset:tok").Return("", auth.ErrNotFound)

		res := svc.ChangePassword(ctx, "tok", "newpass1")
		fe := fieldOf(t, res)
		assert.Equal(t, "token", fe.Field)
		assert.Equal(t, "token expired", fe.Message)
	})

	t.Run("losing the redemption race is expired with no password change", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.tokens.On("Get", ctx, "reset:tok").Return("42", nil)
		deps.tokens.On("Delete", ctx, "reset:tok").Return(false, nil)

		res := svc.ChangePassword(ctx, "tok", "newpass1")
		fe := fieldOf(t, res)
		assert.Equal(t, "token", fe.Field)
		assert.Equal(t, "token expired", fe.Message)
		deps.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vanished account", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.tokens.On("Get", ctx, "reset:tok").Return("42", nil)
		deps.tokens.On("Delete", ctx, "reset:tok").Return(true, nil)
		deps.users.On("GetByID", ctx, int64(42)).Return(nil, auth.ErrNotFound)

		res := svc.ChangePassword(ctx, "tok", "newpass1")
		fe := fieldOf(t, res)
		assert.Equal(t, "token", fe.Field)
		assert.Equal(t, "user no longer exists", fe.Message)
	})

	t.Run("successful redemption updates the hash and signs in", func(t *testing.T) {
		svc, deps := newTestService(t)

		user := &auth.User{ID: 42, Username: "alice", PasswordHash: "olddigest"}
		deps.tokens.On("Get", ctx, "reset:tok").Return("42", nil)
		deps.tokens.On("Delete", ctx, "reset:tok").Return(true, nil)
		deps.users.On("GetByID", ctx, int64(42)).Return(user, nil)
		deps.hasher.On("Hash", "newpass1").Return("newdigest", nil)
		deps.users.On("UpdatePassword", ctx, int64(42), "newdigest").Return(nil)
		deps.sessions.On("Create", ctx, int64(42), auth.DefaultSessionTTL).Return("freshhandle", nil)

		res := svc.ChangePassword(ctx, "tok", "newpass1")
		require.True(t, res.Ok())
		assert.Equal(t, int64(42), res.User.ID)
		assert.Equal(t, "newdigest", res.User.PasswordHash)
		assert.Equal(t, "freshhandle", res.Session)
	})
}
