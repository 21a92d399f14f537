// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/verimail/webapp-starter/internal/models"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetSession(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com")

	s := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateSession(ctx, s))

	got, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.False(t, got.Expired(time.Now()))
}

func TestGetSessionNotFound(t *testing.T) {
	repo := testutil.NewRepository(t)

	_, err := repo.GetSession(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, repo, "alice@example.com")

	s := &models.Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateSession(ctx, s))

	require.NoError(t, repo.DeleteSession(ctx, s.ID))

	_, err := repo.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()
	now := time.Now()

	user := testutil.CreateUser(t, repo, "alice@example.com")

	expired := &models.Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.CreateSession(ctx, expired))
	live := &models.Session{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.CreateSession(ctx, live))

	require.NoError(t, repo.DeleteExpiredSessions(ctx, now))

	_, err := repo.GetSession(ctx, expired.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetSession(ctx, live.ID)
	assert.NoError(t, err)
}
