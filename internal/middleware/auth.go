// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides echo middleware for session resolution.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/auth"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/services/cookie"
	"github.com/labstack/echo/v4"
)

// LoadUser resolves the auth cookie to a durable session and its user, and
// attaches the user to the request context. An expired or dangling session
// clears the cookie on the response; the request continues unauthenticated.
func LoadUser(sessions *cookie.Codec, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := sessions.Read(c.Request())
			if !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			session, err := repo.GetSession(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				c.SetCookie(sessions.Clear())
				return next(c)
			}
			if err != nil {
				return err
			}
			if session.Expired(time.Now()) {
				c.SetCookie(sessions.Clear())
				return next(c)
			}

			user, err := repo.GetUserByID(ctx, session.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					c.SetCookie(sessions.Clear())
					return next(c)
				}
				return err
			}

			c.SetRequest(c.Request().WithContext(auth.SetUser(ctx, user)))
			return next(c)
		}
	}
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.IsAuthenticated(c.Request().Context()) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
