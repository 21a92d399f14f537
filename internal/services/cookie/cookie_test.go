// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/services/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, maxAge int, secrets ...string) *cookie.Codec {
	t.Helper()

	c, err := cookie.New("_session", maxAge, secrets, false)
	require.NoError(t, err)
	return c
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return req
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := cookie.New("_session", 3600, nil, false)
	assert.Error(t, err)

	_, err = cookie.New("_session", 3600, []string{""}, false)
	assert.Error(t, err)
}

func TestIssueAndRead(t *testing.T) {
	c := newCodec(t, 3600, "secret-a")

	issued, err := c.Issue("session-id-123")
	require.NoError(t, err)

	value, ok := c.Read(requestWith(issued))
	require.True(t, ok)
	assert.Equal(t, "session-id-123", value)
}

func TestIssueAttributes(t *testing.T) {
	c := newCodec(t, 3600, "secret-a")

	issued, err := c.Issue("value")
	require.NoError(t, err)

	assert.Equal(t, "_session", issued.Name)
	assert.Equal(t, "/", issued.Path)
	assert.Equal(t, 3600, issued.MaxAge)
	assert.True(t, issued.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, issued.SameSite)
	assert.NotEqual(t, "value", issued.Value, "cookie value must not be plaintext")
}

func TestReadMissingCookie(t *testing.T) {
	c := newCodec(t, 3600, "secret-a")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := c.Read(req)
	assert.False(t, ok)
}

func TestReadRejectsTamperedValue(t *testing.T) {
	c := newCodec(t, 3600, "secret-a")

	issued, err := c.Issue("session-id-123")
	require.NoError(t, err)

	tampered := *issued
	tampered.Value = "x" + issued.Value[1:]

	_, ok := c.Read(requestWith(&tampered))
	assert.False(t, ok)
}

func TestReadRejectsForeignSecret(t *testing.T) {
	signer := newCodec(t, 3600, "secret-a")
	verifier := newCodec(t, 3600, "secret-b")

	issued, err := signer.Issue("session-id-123")
	require.NoError(t, err)

	_, ok := verifier.Read(requestWith(issued))
	assert.False(t, ok)
}

func TestSecretRotation(t *testing.T) {
	old := newCodec(t, 3600, "secret-old")
	issued, err := old.Issue("session-id-123")
	require.NoError(t, err)

	// Newest secret first; the old one stays in the list so existing
	// cookies keep verifying.
	rotated := newCodec(t, 3600, "secret-new", "secret-old")

	value, ok := rotated.Read(requestWith(issued))
	require.True(t, ok)
	assert.Equal(t, "session-id-123", value)
}

func TestReadRejectsExpiredCookie(t *testing.T) {
	c := newCodec(t, 1, "secret-a")

	issued, err := c.Issue("session-id-123")
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	_, ok := c.Read(requestWith(issued))
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := newCodec(t, 3600, "secret-a")

	cleared := c.Clear()
	assert.Equal(t, "_session", cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.True(t, cleared.HttpOnly)
}
