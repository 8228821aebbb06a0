// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

// Package httpapi exposes the auth operations over JSON HTTP. It owns the
// cookie plumbing: the inbound session handle is read from the cookie, passed
// to the orchestrator explicitly, and the handle the operation issues (or the
// clearing of it) is written back on the response. Operation results pass
// through unchanged as {errors?, user?} objects or bare booleans.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/driftboard/driftboard/internal/auth"
	"github.com/driftboard/driftboard/internal/observability"
)

// Handler serves the auth endpoints.
type Handler struct {
	svc          *auth.Service
	cookieName   string
	cookieSecure bool
	cookieTTL    time.Duration
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(svc *auth.Service, cookieName string, cookieSecure bool, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:          svc,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
		cookieTTL:    auth.DefaultSessionTTL,
		metrics:      metrics,
		logger:       logger,
	}
}

// Register installs the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/me", h.handleMe)
	mux.HandleFunc("POST /auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("POST /auth/change-password", h.handleChangePassword)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	h.finishSessionOp(w, "register", res)
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.svc.Login(r.Context(), req.UsernameOrEmail, req.Password)
	h.finishSessionOp(w, "login", res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ok := h.svc.Logout(r.Context(), h.sessionHandle(r))

	// The cookie is cleared even when the underlying destroy failed; the
	// client is signed out either way.
	h.clearSessionCookie(w)
	h.metrics.RecordAuthOperation("logout", ok)
	h.writeJSON(w, ok)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := h.svc.Me(r.Context(), h.sessionHandle(r))
	h.writeJSON(w, struct {
		User *auth.User `json:"user"`
	}{User: user})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	ok := h.svc.ForgotPassword(r.Context(), req.Email)
	h.metrics.RecordAuthOperation("forgot_password", ok)
	h.writeJSON(w, ok)
}

type changePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	res := h.svc.ChangePassword(r.Context(), req.Token, req.NewPassword)
	h.finishSessionOp(w, "change_password", res)
}

// finishSessionOp writes the result of an operation that may have issued a
// session handle, setting the cookie when one was.
func (h *Handler) finishSessionOp(w http.ResponseWriter, operation string, res *auth.Result) {
	if res.Session != "" {
		h.setSessionCookie(w, res.Session)
	}
	h.metrics.RecordAuthOperation(operation, res.Ok())
	h.writeJSON(w, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response failed", "error", err)
	}
}

func (h *Handler) sessionHandle(r *http.Request) string {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, handle string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    handle,
		Path:     "/",
		MaxAge:   int(h.cookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
