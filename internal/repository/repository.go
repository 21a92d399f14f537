// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vinovest/sqlx"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository wraps the database for all persistence operations. A Repository
// obtained through WithTx issues every statement on the same transaction.
type Repository struct {
	db   querier
	conn *sqlx.DB // nil inside a transaction
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, conn: db}
}

// WithTx runs fn with a Repository bound to a single database transaction.
// The connection is opened with _txlock=immediate, so the transaction holds
// the write lock from the start and concurrent callers serialize on it. fn
// returning an error rolls everything back; otherwise the transaction
// commits. Business outcomes that must persist their side effects (like a
// burned verification attempt) are communicated by value, not by error.
func (r *Repository) WithTx(ctx context.Context, fn func(*Repository) error) error {
	if r.conn == nil {
		return errors.New("repository: nested transaction")
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Repository{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
