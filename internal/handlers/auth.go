// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers exposes the verification flow as RPC-style JSON
// endpoints. Responses are a small closed set: {ok}, {ok,attemptExceeded},
// a field-level 400, or 401; internal errors never leak.
package handlers

import (
	"context"
	"errors"
	"net/http"

	ctxauth "codeberg.org/verimail/webapp-starter/internal/auth"
	"codeberg.org/verimail/webapp-starter/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for the verification flow.
type AuthHandlers struct {
	svc *auth.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// EmailRequest is the request body for both request-phase endpoints.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest is the request body for both confirmation endpoints.
type VerifyRequest struct {
	Token    string `json:"token" validate:"required"`
	OTPToken string `json:"otpToken"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type confirmResponse struct {
	OK              bool `json:"ok"`
	AttemptExceeded bool `json:"attemptExceeded,omitempty"`
}

// SignUp starts registration for an email address.
func (h *AuthHandlers) SignUp(c echo.Context) error {
	req, err := bindEmail(c)
	if err != nil {
		return err
	}

	res, err := h.svc.SignUpWithEmail(c.Request().Context(), req.Email)
	if err != nil {
		return mapServiceError(err)
	}

	if res.PendingCookie != nil {
		c.SetCookie(res.PendingCookie)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// SignIn starts a sign-in for an email address.
func (h *AuthHandlers) SignIn(c echo.Context) error {
	req, err := bindEmail(c)
	if err != nil {
		return err
	}

	res, err := h.svc.SignInWithEmail(c.Request().Context(), req.Email)
	if err != nil {
		return mapServiceError(err)
	}

	if res.Status == auth.RequestAlreadyPending {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "verification email already sent, please check your inbox",
		})
	}

	if res.PendingCookie != nil {
		c.SetCookie(res.PendingCookie)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// SignUpVerify confirms a sign-up verification token.
func (h *AuthHandlers) SignUpVerify(c echo.Context) error {
	return h.verify(c, h.svc.ConfirmSignUp)
}

// SignInVerify confirms a sign-in verification token.
func (h *AuthHandlers) SignInVerify(c echo.Context) error {
	return h.verify(c, h.svc.ConfirmSignIn)
}

type confirmFunc func(ctx context.Context, r *http.Request, tok, otp string) (*auth.ConfirmResult, error)

func (h *AuthHandlers) verify(c echo.Context, confirm confirmFunc) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := confirm(c.Request().Context(), c.Request(), req.Token, req.OTPToken)
	if err != nil {
		return err
	}

	switch res.Status {
	case auth.ConfirmOK:
		c.SetCookie(res.AuthCookie)
		c.SetCookie(res.ClearPending)
		return c.JSON(http.StatusOK, confirmResponse{OK: true})
	case auth.ConfirmExhausted:
		return c.JSON(http.StatusOK, confirmResponse{OK: false, AttemptExceeded: true})
	default:
		return c.JSON(http.StatusOK, confirmResponse{OK: false})
	}
}

// Session reports whether the caller holds a live authenticated session.
func (h *AuthHandlers) Session(c echo.Context) error {
	state, err := h.svc.IsSignedIn(c.Request().Context(), c.Request())
	if err != nil {
		return err
	}
	if state.ClearCookie != nil {
		c.SetCookie(state.ClearCookie)
	}
	return c.JSON(http.StatusOK, okResponse{OK: state.SignedIn})
}

// SignOut destroys the durable session and redirects to sign-in.
func (h *AuthHandlers) SignOut(c echo.Context) error {
	clearCookie, err := h.svc.SignOut(c.Request().Context(), c.Request())
	if err != nil {
		return err
	}
	c.SetCookie(clearCookie)
	return c.Redirect(http.StatusSeeOther, "/signin")
}

// Me returns the authenticated user. Guarded by RequireAuth.
func (h *AuthHandlers) Me(c echo.Context) error {
	user := ctxauth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, user)
}

func bindEmail(c echo.Context) (*EmailRequest, error) {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func mapServiceError(err error) error {
	if errors.Is(err, auth.ErrInvalidEmail) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	return err
}
