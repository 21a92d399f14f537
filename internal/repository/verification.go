// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/models"
)

// CreateVerification stores a new verification record.
func (r *Repository) CreateVerification(ctx context.Context, v *models.Verification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verifications (id, type, recipient, token, otp_token, attempt, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Type, v.To, v.Token, v.OTPToken, v.Attempt, v.ExpiresAt)
	return err
}

// GetVerification retrieves a verification by recipient and token.
func (r *Repository) GetVerification(ctx context.Context, to, token string) (*models.Verification, error) {
	var v models.Verification
	err := r.db.GetContext(ctx, &v,
		`SELECT * FROM verifications WHERE recipient = ? AND token = ?`, to, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &v, nil
}

// HasActiveVerification reports whether an unexpired verification with an
// attempt count within the limit exists for the recipient. Used records
// still count as active until they expire; a completed sign-in does not
// unlock a fresh request before the TTL runs out.
func (r *Repository) HasActiveVerification(ctx context.Context, to string, attemptLimit int64, now time.Time) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM verifications WHERE recipient = ? AND expires_at >= ? AND attempt <= ?`,
		to, now, attemptLimit)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementVerificationAttempt atomically increments the attempt counter and
// returns the post-increment value. The increment and read are one statement,
// so two concurrent confirmations each observe a distinct counter value.
func (r *Repository) IncrementVerificationAttempt(ctx context.Context, id string) (int64, error) {
	var attempt int64
	err := r.db.GetContext(ctx, &attempt,
		`UPDATE verifications SET attempt = attempt + 1 WHERE id = ? RETURNING attempt`, id)
	if err != nil {
		return 0, wrapError(err)
	}
	return attempt, nil
}

// MarkVerificationUsed sets used_at. The column transitions null to set
// exactly once; callers check Used() inside the same transaction first.
func (r *Repository) MarkVerificationUsed(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE verifications SET used_at = ? WHERE id = ? AND used_at IS NULL`, usedAt, id)
	return err
}

// DeleteExpiredVerifications purges records that expired before the cutoff.
// The confirmation flow never deletes; this is operator housekeeping for the
// audit trail.
func (r *Repository) DeleteExpiredVerifications(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at < ?`, before)
	return err
}

// CountVerifications returns the number of verification records for a
// recipient.
func (r *Repository) CountVerifications(ctx context.Context, to string) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM verifications WHERE recipient = ?`, to); err != nil {
		return 0, err
	}
	return count, nil
}
