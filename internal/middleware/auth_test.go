// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ctxauth "codeberg.org/verimail/webapp-starter/internal/auth"
	appmw "codeberg.org/verimail/webapp-starter/internal/middleware"
	"codeberg.org/verimail/webapp-starter/internal/models"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/services/cookie"
	"codeberg.org/verimail/webapp-starter/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionCodec(t *testing.T) *cookie.Codec {
	t.Helper()

	c, err := cookie.New("_session", 3600, []string{"test-secret"}, false)
	require.NoError(t, err)
	return c
}

func createSession(t *testing.T, repo *repository.Repository, userID int64, expiresAt time.Time) *models.Session {
	t.Helper()

	s := &models.Session{ID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt}
	require.NoError(t, repo.CreateSession(context.Background(), s))
	return s
}

// invoke runs the LoadUser chain against a request and reports the user the
// handler observed.
func invoke(t *testing.T, sessions *cookie.Codec, repo *repository.Repository, req *http.Request) (*models.User, *httptest.ResponseRecorder) {
	t.Helper()

	var seen *models.User
	handler := appmw.LoadUser(sessions, repo)(func(c echo.Context) error {
		seen = ctxauth.GetUser(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, handler(c))
	return seen, rec
}

func TestLoadUserAttachesUser(t *testing.T) {
	repo := testutil.NewRepository(t)
	sessions := newSessionCodec(t)

	user := testutil.CreateUser(t, repo, "alice@example.com")
	session := createSession(t, repo, user.ID, time.Now().Add(time.Hour))

	authCookie, err := sessions.Issue(session.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(authCookie)

	seen, _ := invoke(t, sessions, repo, req)
	require.NotNil(t, seen)
	assert.Equal(t, "alice@example.com", seen.Email)
}

func TestLoadUserWithoutCookie(t *testing.T) {
	repo := testutil.NewRepository(t)
	sessions := newSessionCodec(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	seen, _ := invoke(t, sessions, repo, req)
	assert.Nil(t, seen)
}

func TestLoadUserClearsDanglingSession(t *testing.T) {
	repo := testutil.NewRepository(t)
	sessions := newSessionCodec(t)

	authCookie, err := sessions.Issue(uuid.NewString())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(authCookie)

	seen, rec := invoke(t, sessions, repo, req)
	assert.Nil(t, seen)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "_session", cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLoadUserClearsExpiredSession(t *testing.T) {
	repo := testutil.NewRepository(t)
	sessions := newSessionCodec(t)

	user := testutil.CreateUser(t, repo, "alice@example.com")
	session := createSession(t, repo, user.ID, time.Now().Add(-time.Minute))

	authCookie, err := sessions.Issue(session.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(authCookie)

	seen, rec := invoke(t, sessions, repo, req)
	assert.Nil(t, seen)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequireAuth(t *testing.T) {
	handler := appmw.RequireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()

	// Unauthenticated request is rejected.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated request passes through.
	user := &models.User{ID: 1, Email: "alice@example.com"}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ctxauth.SetUser(req.Context(), user))
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
