// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides helpers for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/verimail/webapp-starter/internal/database"
	"codeberg.org/verimail/webapp-starter/internal/models"
	"codeberg.org/verimail/webapp-starter/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewDB opens a fresh migrated database in a per-test temp directory.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewRepository returns a repository backed by a fresh test database.
func NewRepository(t *testing.T) *repository.Repository {
	t.Helper()
	return repository.New(NewDB(t))
}

// CreateUser inserts a user and fails the test on error.
func CreateUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()

	user, err := repo.CreateUser(context.Background(), email)
	require.NoError(t, err)
	return user
}
