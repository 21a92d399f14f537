// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/config"
	"codeberg.org/verimail/webapp-starter/internal/database"
	"codeberg.org/verimail/webapp-starter/internal/handlers"
	appmw "codeberg.org/verimail/webapp-starter/internal/middleware"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/services/auth"
	"codeberg.org/verimail/webapp-starter/internal/services/cookie"
	"codeberg.org/verimail/webapp-starter/internal/services/email"
	"codeberg.org/verimail/webapp-starter/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Cookie codecs
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	secrets := cfg.Session.Secrets
	if len(secrets) == 0 {
		// Dev convenience only; sessions do not survive a restart.
		generated, genErr := token.URLString(64)
		if genErr != nil {
			return genErr
		}
		secrets = []string{generated}
		slog.Warn("no session secrets configured, generated a volatile one")
	}

	sessions, err := cookie.New(cookieName(cfg.Session.AuthCookieName, secure), cfg.Session.AuthMaxAge, secrets, secure)
	if err != nil {
		return err
	}
	pending, err := cookie.New(cookieName(cfg.Session.PendingCookieName, secure), cfg.Session.PendingMaxAge, secrets, secure)
	if err != nil {
		return err
	}

	// Services
	mailer := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	authSvc := auth.NewService(repo, pending, sessions, mailer, &cfg.Auth)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()

	setupMiddleware(e, cfg)
	setupRoutes(e, authSvc, sessions, repo)

	return startWithGracefulShutdown(e, cfg)
}

// cookieName applies the __Host- prefix in secure contexts so the browser
// pins the cookie to this origin.
func cookieName(base string, secure bool) string {
	if !secure {
		return base
	}
	return "__Host-" + strings.TrimPrefix(base, "_")
}

func setupRoutes(e *echo.Echo, svc *auth.Service, sessions *cookie.Codec, repo *repository.Repository) {
	h := handlers.NewAuth(svc)

	e.GET("/health", handlers.Health)
	e.GET("/signout", h.SignOut)

	api := e.Group("/api/auth")
	api.POST("/signup", h.SignUp)
	api.POST("/signin", h.SignIn)
	api.POST("/signup/verify", h.SignUpVerify, confirmRateLimiter())
	api.POST("/signin/verify", h.SignInVerify, confirmRateLimiter())
	api.GET("/session", h.Session)
	api.GET("/me", h.Me, appmw.LoadUser(sessions, repo), appmw.RequireAuth())
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	// Setup TLS
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		// Plain HTTP on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		// HTTPS on :443
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// HTTP redirect server on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		// HTTPS on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
