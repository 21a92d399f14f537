// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cookie provides signed, tamper-evident cookie codecs. Two
// instances exist at runtime: the short-lived pending-identity cookie
// carrying an email address mid-verification, and the long-lived auth
// cookie carrying a durable session ID.
package cookie

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
)

// Codec signs and verifies a single named cookie. Secrets are a rotatable
// list: the first secret signs new cookies, every secret is tried during
// verification, so old sessions survive a rotation.
type Codec struct {
	name   string
	maxAge int
	secure bool
	codecs []securecookie.Codec
}

// New creates a codec for the named cookie. maxAge is in seconds and bounds
// how long an issued cookie decodes successfully.
func New(name string, maxAge int, secrets []string, secure bool) (*Codec, error) {
	if len(secrets) == 0 || secrets[0] == "" {
		return nil, fmt.Errorf("cookie %s: at least one secret is required", name)
	}

	codecs := make([]securecookie.Codec, 0, len(secrets))
	for _, secret := range secrets {
		// Derive a fixed-size HMAC key from the configured secret.
		key := sha256.Sum256([]byte(secret))
		sc := securecookie.New(key[:], nil)
		sc.MaxAge(maxAge)
		codecs = append(codecs, sc)
	}

	return &Codec{
		name:   name,
		maxAge: maxAge,
		secure: secure,
		codecs: codecs,
	}, nil
}

// Name returns the cookie name.
func (c *Codec) Name() string {
	return c.name
}

// Issue signs value into a cookie ready to be set on a response.
func (c *Codec) Issue(value string) (*http.Cookie, error) {
	encoded, err := securecookie.EncodeMulti(c.name, value, c.codecs[0])
	if err != nil {
		return nil, fmt.Errorf("encode cookie %s: %w", c.name, err)
	}

	return &http.Cookie{
		Name:     c.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   c.maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Read extracts and verifies the cookie value from a request. A missing,
// tampered, expired, or foreign-keyed cookie yields ok=false; the caller
// cannot tell which, which is deliberate.
func (c *Codec) Read(r *http.Request) (string, bool) {
	raw, err := r.Cookie(c.name)
	if err != nil {
		return "", false
	}

	var value string
	if err := securecookie.DecodeMulti(c.name, raw.Value, &value, c.codecs...); err != nil {
		return "", false
	}
	return value, true
}

// Clear returns a cookie that instructs the browser to drop the session.
func (c *Codec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
