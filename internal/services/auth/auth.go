// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the email verification state machine: request a
// verification for an address, confirm it with the emailed token, and
// promote the confirmation into a durable session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/config"
	"codeberg.org/verimail/webapp-starter/internal/models"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/services/cookie"
	"codeberg.org/verimail/webapp-starter/internal/services/token"
	"github.com/google/uuid"
)

// ErrInvalidEmail rejects malformed addresses before anything is persisted.
var ErrInvalidEmail = errors.New("invalid email format")

// Deliverer carries a verification token (and optional code) out-of-band.
// Implementations log failures instead of returning them; the flow does not
// depend on delivery succeeding.
type Deliverer interface {
	DeliverSignUp(ctx context.Context, to, tok, otp string)
	DeliverSignIn(ctx context.Context, to, tok, otp string)
}

// RequestStatus tags the outcome of a verification request.
type RequestStatus int

const (
	// RequestAccepted is the generic success. It covers both "verification
	// created" and the anti-enumeration no-ops, which are indistinguishable
	// to the caller.
	RequestAccepted RequestStatus = iota
	// RequestAlreadyPending rejects a sign-in request while a still-valid
	// verification is outstanding. Sign-up deliberately never returns this.
	RequestAlreadyPending
)

// RequestResult is the outcome of SignUpWithEmail / SignInWithEmail.
type RequestResult struct {
	Status RequestStatus
	// PendingCookie binds the browser to the address mid-verification.
	// Nil when no verification was created.
	PendingCookie *http.Cookie
}

// ConfirmStatus tags the outcome of a confirmation attempt.
type ConfirmStatus int

const (
	// ConfirmOK: the verification was consumed and a session created.
	ConfirmOK ConfirmStatus = iota
	// ConfirmInvalid collapses missing cookie, unknown token, already-used,
	// expired, and OTP mismatch into one indistinguishable failure.
	ConfirmInvalid
	// ConfirmExhausted: the attempt limit was exceeded. Surfaced distinctly,
	// but without revealing whether the token was ever valid.
	ConfirmExhausted
)

// ConfirmResult is the outcome of ConfirmSignUp / ConfirmSignIn.
type ConfirmResult struct {
	Status ConfirmStatus
	// AuthCookie and ClearPending are set only on ConfirmOK.
	AuthCookie   *http.Cookie
	ClearPending *http.Cookie
}

// SessionState is the outcome of IsSignedIn.
type SessionState struct {
	SignedIn bool
	UserID   int64
	// ClearCookie is set when the cookie referenced a missing or expired
	// session and should be dropped by the browser.
	ClearCookie *http.Cookie
}

// Service orchestrates token generation, verification persistence, and the
// two cookie codecs.
type Service struct {
	repo     *repository.Repository
	pending  *cookie.Codec
	sessions *cookie.Codec
	mailer   Deliverer
	cfg      *config.AuthConfig
}

// NewService creates the verification service.
func NewService(repo *repository.Repository, pending, sessions *cookie.Codec, mailer Deliverer, cfg *config.AuthConfig) *Service {
	return &Service{
		repo:     repo,
		pending:  pending,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
	}
}

// SignUpWithEmail starts registration for an address. If a user already
// exists the call is a silent no-op that still reports success, so the
// response shape never reveals whether an account exists.
func (s *Service) SignUpWithEmail(ctx context.Context, email string) (*RequestResult, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	exists, err := s.repo.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		slog.Info("signup_suppressed", "reason", "user_exists")
		return &RequestResult{Status: RequestAccepted}, nil
	}

	v, otp, err := s.newVerification(email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateVerification(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	s.mailer.DeliverSignUp(ctx, email, v.Token, otp)

	pendingCookie, err := s.pending.Issue(email)
	if err != nil {
		return nil, err
	}

	slog.Info("signup_requested", "verification_id", v.ID)
	return &RequestResult{Status: RequestAccepted, PendingCookie: pendingCookie}, nil
}

// SignInWithEmail starts a sign-in for an existing address. An unknown
// address reports generic success and does nothing (anti-enumeration). A
// still-valid outstanding verification is rejected explicitly; this
// asymmetry with sign-up is intentional.
func (s *Service) SignInWithEmail(ctx context.Context, email string) (*RequestResult, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	exists, err := s.repo.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if !exists {
		slog.Info("signin_suppressed", "reason", "user_not_found")
		return &RequestResult{Status: RequestAccepted}, nil
	}

	active, err := s.repo.HasActiveVerification(ctx, email, s.cfg.AttemptLimit, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to check active verification: %w", err)
	}
	if active {
		return &RequestResult{Status: RequestAlreadyPending}, nil
	}

	v, otp, err := s.newVerification(email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateVerification(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	s.mailer.DeliverSignIn(ctx, email, v.Token, otp)

	pendingCookie, err := s.pending.Issue(email)
	if err != nil {
		return nil, err
	}

	slog.Info("signin_requested", "verification_id", v.ID)
	return &RequestResult{Status: RequestAccepted, PendingCookie: pendingCookie}, nil
}

// ConfirmSignUp consumes a verification and creates the user plus a durable
// session. The user must not exist yet.
func (s *Service) ConfirmSignUp(ctx context.Context, r *http.Request, tok, otp string) (*ConfirmResult, error) {
	return s.confirm(ctx, r, tok, otp, true)
}

// ConfirmSignIn consumes a verification and creates a durable session for
// an existing user.
func (s *Service) ConfirmSignIn(ctx context.Context, r *http.Request, tok, otp string) (*ConfirmResult, error) {
	return s.confirm(ctx, r, tok, otp, false)
}

// confirm runs the whole confirmation inside one immediate transaction:
// lookup, attempt increment, used/expiry/OTP checks, mark-used, user
// check-or-create, session insert. Precondition failures set the result and
// commit (the burned attempt must persist); only infra errors roll back.
// The attempt counter is bumped before the used/expiry checks so brute-force
// guesses against dead records still exhaust the limit.
func (s *Service) confirm(ctx context.Context, r *http.Request, tok, otp string, signup bool) (*ConfirmResult, error) {
	email, ok := s.pending.Read(r)
	if !ok {
		return &ConfirmResult{Status: ConfirmInvalid}, nil
	}

	now := time.Now()
	status := ConfirmInvalid
	var sessionID string

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		v, err := tx.GetVerification(ctx, email, tok)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		attempt, err := tx.IncrementVerificationAttempt(ctx, v.ID)
		if err != nil {
			return err
		}
		if attempt > s.cfg.AttemptLimit {
			status = ConfirmExhausted
			return nil
		}

		if v.Used() || v.Expired(now) {
			return nil
		}

		if s.cfg.OTPRequired {
			if v.OTPToken == nil || otp != *v.OTPToken {
				return nil
			}
		}

		if err := tx.MarkVerificationUsed(ctx, v.ID, now); err != nil {
			return err
		}

		var user *models.User
		if signup {
			exists, err := tx.UserExistsByEmail(ctx, v.To)
			if err != nil {
				return err
			}
			if exists {
				// Somebody registered this address since the request phase.
				return nil
			}
			if user, err = tx.CreateUser(ctx, v.To); err != nil {
				return err
			}
		} else {
			user, err = tx.GetUserByEmail(ctx, email)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
		}

		session := &models.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			ExpiresAt: now.Add(s.cfg.SessionTTL),
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}

		sessionID = session.ID
		status = ConfirmOK
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Status: status}
	if status == ConfirmOK {
		authCookie, err := s.sessions.Issue(sessionID)
		if err != nil {
			return nil, err
		}
		result.AuthCookie = authCookie
		result.ClearPending = s.pending.Clear()
		slog.Info("verification_confirmed", "signup", signup)
	}
	return result, nil
}

// IsSignedIn resolves the auth cookie against the durable session table. A
// cookie whose session is gone or expired yields a clear instruction for
// the browser.
func (s *Service) IsSignedIn(ctx context.Context, r *http.Request) (*SessionState, error) {
	id, ok := s.sessions.Read(r)
	if !ok {
		return &SessionState{}, nil
	}

	session, err := s.repo.GetSession(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &SessionState{ClearCookie: s.sessions.Clear()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.Expired(time.Now()) {
		return &SessionState{ClearCookie: s.sessions.Clear()}, nil
	}

	return &SessionState{SignedIn: true, UserID: session.UserID}, nil
}

// SignOut deletes the durable session row (if the cookie resolves to one)
// and returns the cookie that drops the browser session.
func (s *Service) SignOut(ctx context.Context, r *http.Request) (*http.Cookie, error) {
	if id, ok := s.sessions.Read(r); ok {
		if err := s.repo.DeleteSession(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete session: %w", err)
		}
		slog.Info("signout", "session_id", id)
	}
	return s.sessions.Clear(), nil
}

// newVerification builds a fresh record with a link token and, when the OTP
// policy is on, a numeric code. Returns the plaintext code for delivery.
func (s *Service) newVerification(email string) (*models.Verification, string, error) {
	tok, err := token.URLString(token.URLLength)
	if err != nil {
		return nil, "", err
	}

	v := &models.Verification{
		ID:        uuid.NewString(),
		Type:      models.VerificationTypeEmail,
		To:        email,
		Token:     tok,
		ExpiresAt: time.Now().Add(s.cfg.VerificationTTL),
	}

	var otp string
	if s.cfg.OTPRequired {
		if otp, err = token.Numeric(token.OTPLength); err != nil {
			return nil, "", err
		}
		v.OTPToken = &otp
	}

	return v, otp, nil
}
