// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Verification kinds. Only email exists today.
const VerificationTypeEmail = "email"

// Verification is a single-use proof-of-email-control record. It is never
// deleted by the confirmation flow; it becomes inert once used, expired, or
// the attempt counter passes the limit.
type Verification struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string     `db:"id" json:"id"`
	Type      string     `db:"type" json:"type"`
	To        string     `db:"recipient" json:"to"`
	Token     string     `db:"token" json:"-"`
	OTPToken  *string    `db:"otp_token" json:"-"`
	Attempt   int64      `db:"attempt" json:"attempt"`
	UsedAt    *time.Time `db:"used_at" json:"used_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Used reports whether the record has been consumed.
func (v *Verification) Used() bool {
	return v.UsedAt != nil
}

// Expired reports whether the record expired before now.
func (v *Verification) Expired(now time.Time) bool {
	return v.ExpiresAt.Before(now)
}
