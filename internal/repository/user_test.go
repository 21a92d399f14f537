// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/verimail/webapp-starter/internal/repository"
	"codeberg.org/verimail/webapp-starter/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "alice@example.com")
	assert.Error(t, err)
}

func TestGetUserByEmail(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	created := testutil.CreateUser(t, repo, "alice@example.com")

	user, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetUserByIDNotFound(t *testing.T) {
	repo := testutil.NewRepository(t)

	_, err := repo.GetUserByID(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserExistsByEmail(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	exists, err := repo.UserExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	testutil.CreateUser(t, repo, "alice@example.com")

	exists, err = repo.UserExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCountUsers(t *testing.T) {
	repo := testutil.NewRepository(t)
	ctx := context.Background()

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	testutil.CreateUser(t, repo, "alice@example.com")
	testutil.CreateUser(t, repo, "bob@example.com")

	count, err = repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
