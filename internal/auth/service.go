// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/driftboard/driftboard/pkg/errutil"
)

// Mailer dispatches a notification to a single address. Delivery failures on
// the password-reset path are logged, never surfaced, so callers cannot probe
// which addresses are registered.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Result is the outcome of an orchestrator operation. Exactly one of User or
// Errors is populated. Session carries the handle issued by the operation,
// if any; the transport layer turns it into the client-side cookie.
type Result struct {
	User   *User        `json:"user,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`

	Session string `json:"-"`
}

// Ok reports whether the operation succeeded.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func errResult(field, message string) *Result {
	return &Result{Errors: fieldErrors(field, message)}
}

// Service composes the hasher, validator, stores, and directory into the
// user-facing auth operations. It holds no per-request state: the current
// session handle is an explicit parameter and the issued handle an explicit
// result.
type Service struct {
	users      UserRepository
	sessions   SessionStore
	tokens     TokenStore
	hasher     PasswordHasher
	mailer     Mailer
	logger     *slog.Logger
	baseURL    string
	sessionTTL time.Duration
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithLogger sets the logger used for storage and dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithBaseURL sets the public base URL embedded in password-reset links.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// NewService creates a Service. All dependencies are required.
func NewService(users UserRepository, sessions SessionStore, tokens TokenStore, hasher PasswordHasher, mailer Mailer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if mailer == nil {
		return nil, errors.New("mailer is required")
	}

	s := &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		hasher:     hasher,
		mailer:     mailer,
		logger:     slog.Default(),
		baseURL:    "http://localhost:3000",
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new account and logs it in. Validation failures return
// field errors with no side effects. A duplicate username or email reports
// "username already taken"; uniqueness is ultimately enforced by the
// directory's storage constraint, so concurrent registrations of the same
// username produce exactly one account.
func (s *Service) Register(ctx context.Context, username, email, password string) *Result {
	if errs := ValidateRegistration(username, email, password); len(errs) > 0 {
		return &Result{Errors: errs}
	}

	// Fast-path duplicate check for friendlier errors. Not the enforcement
	// mechanism: the window between this check and Create stays open and is
	// closed by the unique constraint below.
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return errResult("username", "username already taken")
	} else if !errors.Is(err, ErrNotFound) {
		errutil.LogError(s.logger, "register: username pre-check failed", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "register: password hash failed", err)
		return errResult("username", msgInternal)
	}

	user := &User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return errResult("username", "username already taken")
		}
		errutil.LogError(s.logger, "register: create user failed", err)
		return errResult("username", msgInternal)
	}

	handle, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		errutil.LogError(s.logger, "register: create session failed", err)
		return errResult("username", msgInternal)
	}

	return &Result{User: user, Session: handle}
}

// Login authenticates by username or email and issues a fresh session.
// An identifier containing "@" is treated as an email; this mirrors the
// registration rule that usernames never contain "@".
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) *Result {
	var (
		user *User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errResult("usernameOrEmail", "does not exist")
		}
		errutil.LogError(s.logger, "login: user lookup failed", err)
		return errResult("usernameOrEmail", msgInternal)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		errutil.LogError(s.logger, "login: password verify failed", err)
		return errResult("password", msgInternal)
	}
	if !ok {
		return errResult("password", "incorrect password")
	}

	handle, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		errutil.LogError(s.logger, "login: create session failed", err)
		return errResult("usernameOrEmail", msgInternal)
	}

	return &Result{User: user, Session: handle}
}

// Logout destroys the session bound to the handle. Signing out an absent or
// already-expired session still succeeds; only a storage failure during
// destroy yields false. Clearing the client-side cookie is the transport's
// job and happens regardless of the returned flag.
func (s *Service) Logout(ctx context.Context, handle string) bool {
	if handle == "" {
		return true
	}
	if err := s.sessions.Destroy(ctx, handle); err != nil {
		errutil.LogError(s.logger, "logout: destroy session failed", err)
		return false
	}
	return true
}

// Me resolves the current session to its account. A missing, expired, or
// stale session (account since deleted) returns nil rather than an error.
func (s *Service) Me(ctx context.Context, handle string) *User {
	if handle == "" {
		return nil
	}

	accountID, err := s.sessions.Resolve(ctx, handle)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "me: resolve session failed", err)
		}
		return nil
	}

	user, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "me: user lookup failed", err)
		}
		return nil
	}
	return user
}

// ForgotPassword issues a reset token for the account behind the email and
// mails a reset link. It always reports true, whether or not the email is
// registered and whether or not the mail went out, so the response cannot be
// used to enumerate addresses. Requesting a new token does not invalidate
// previously issued ones; several may be live for the same account.
func (s *Service) ForgotPassword(ctx context.Context, email string) bool {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "forgot password: user lookup failed", err)
		}
		return true
	}

	token, err := GenerateResetToken()
	if err != nil {
		errutil.LogError(s.logger, "forgot password: token generation failed", err)
		return true
	}

	value := strconv.FormatInt(user.ID, 10)
	if err := s.tokens.Put(ctx, ResetKey(token), value, ResetTokenTTL); err != nil {
		errutil.LogError(s.logger, "forgot password: store token failed", err)
		return true
	}

	link := fmt.Sprintf("%s/change-password/%s", s.baseURL, token)
	body := fmt.Sprintf(`<a href=%q>reset password</a>`, link)
	if err := s.mailer.Send(ctx, email, "Reset your password", body); err != nil {
		errutil.LogError(s.logger, "forgot password: mail dispatch failed", err)
	}
	return true
}

// ChangePassword redeems a reset token and sets a new password, logging the
// user in. Redemption is get-then-delete: the delete reports whether this
// caller actually consumed the token, so two concurrent redemptions of the
// same token produce exactly one success and one "token expired".
func (s *Service) ChangePassword(ctx context.Context, token, newPassword string) *Result {
	if errs := ValidatePassword("newPassword", newPassword); len(errs) > 0 {
		return &Result{Errors: errs}
	}

	key := ResetKey(token)
	value, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errResult("token", "token expired")
		}
		errutil.LogError(s.logger, "change password: token lookup failed", err)
		return errResult("token", msgInternal)
	}

	redeemed, err := s.tokens.Delete(ctx, key)
	if err != nil {
		errutil.LogError(s.logger, "change password: token delete failed", err)
		return errResult("token", msgInternal)
	}
	if !redeemed {
		// Lost the race: another request consumed the token first.
		return errResult("token", "token expired")
	}

	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		errutil.LogError(s.logger, "change password: malformed token value", err)
		return errResult("token", msgInternal)
	}

	user, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errResult("token", "user no longer exists")
		}
		errutil.LogError(s.logger, "change password: user lookup failed", err)
		return errResult("token", msgInternal)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		errutil.LogError(s.logger, "change password: password hash failed", err)
		return errResult("newPassword", msgInternal)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errResult("token", "user no longer exists")
		}
		errutil.LogError(s.logger, "change password: update password failed", err)
		return errResult("token", msgInternal)
	}
	user.PasswordHash = hash

	handle, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		errutil.LogError(s.logger, "change password: create session failed", err)
		return errResult("token", msgInternal)
	}

	return &Result{User: user, Session: handle}
}
