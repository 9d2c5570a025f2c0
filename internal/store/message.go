package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xyntoro/xyntoro/internal/model"
)

const messageColumns = `id, first_name, last_name, email, phone, heard_from, message, is_read, created_at, updated_at`

// ListMessages returns all contact messages, newest first.
func (s *Store) ListMessages(ctx context.Context) ([]model.ContactMessage, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	msgs := []model.ContactMessage{}
	q := "SELECT " + messageColumns + " FROM contact_messages ORDER BY created_at DESC, id DESC"
	if err := db.SelectContext(ctx, &msgs, q); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// CountUnreadMessages returns the number of messages not yet marked read.
func (s *Store) CountUnreadMessages(ctx context.Context) (int, error) {
	db, err := s.db(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.GetContext(ctx, &n, db.Rebind("SELECT COUNT(*) FROM contact_messages WHERE is_read = ?"), false); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// CreateMessage validates and stores a contact form submission. New
// messages are always unread.
func (s *Store) CreateMessage(ctx context.Context, m *model.ContactMessage) error {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return err
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	now := s.timestamp()
	m.ID = s.newID()
	m.Read = false
	m.CreatedAt = now
	m.UpdatedAt = now

	const q = `INSERT INTO contact_messages (` + messageColumns + `)
		VALUES (:id, :first_name, :last_name, :email, :phone, :heard_from, :message, :is_read, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, q, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func getMessage(ctx context.Context, q sqlx.ExtContext, id string) (*model.ContactMessage, error) {
	var m model.ContactMessage
	query := q.Rebind("SELECT " + messageColumns + " FROM contact_messages WHERE id = ?")
	if err := getOne(ctx, q, &m, query, id); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// MarkMessageRead flags a message as read and returns it. Marking an
// already-read message is not an error.
func (s *Store) MarkMessageRead(ctx context.Context, id string) (*model.ContactMessage, error) {
	var marked *model.ContactMessage
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		m, err := getMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		m.Read = true
		m.UpdatedAt = s.timestamp()

		res, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE contact_messages SET is_read = ?, updated_at = ? WHERE id = ?"),
			true, m.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("mark message read: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		marked = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM contact_messages WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return expectAffected(res)
}
