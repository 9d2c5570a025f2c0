package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xyntoro/xyntoro/internal/model"
)

// GetAdmin returns the admin account for username.
func (s *Store) GetAdmin(ctx context.Context, username string) (*model.Admin, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	var a model.Admin
	q := db.Rebind("SELECT username, password_hash, created_at, updated_at FROM admins WHERE username = ?")
	if err := getOne(ctx, db, &a, q, username); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}

// ListAdmins returns all admin accounts ordered by username.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	admins := []model.Admin{}
	if err := db.SelectContext(ctx, &admins, "SELECT username, password_hash, created_at, updated_at FROM admins ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	db, err := s.db(ctx)
	if err != nil {
		return false, err
	}

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// UpsertAdmin stores passwordHash for username, creating the account when it
// does not exist. It reports whether a new account was created.
func (s *Store) UpsertAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	created := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE admins SET password_hash = ?, updated_at = ? WHERE username = ?"),
			passwordHash, now, username)
		if err != nil {
			return fmt.Errorf("update admin: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update admin rows affected: %w", err)
		} else if n > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO admins (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)"),
			username, passwordHash, now, now); err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}
