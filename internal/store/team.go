package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xyntoro/xyntoro/internal/model"
)

const teamColumns = `id, name, role, picture, category, sort_order, created_at, updated_at`

// teamOrder lists leadership first, then core, then support. Ties fall back
// to the configured order and then insertion order.
const teamOrder = `ORDER BY CASE category
		WHEN 'leadership' THEN 0
		WHEN 'core' THEN 1
		WHEN 'support' THEN 2
		ELSE 3 END, sort_order, created_at, id`

// ListTeamMembers returns every team member in display order.
func (s *Store) ListTeamMembers(ctx context.Context) ([]model.TeamMember, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	members := []model.TeamMember{}
	if err := db.SelectContext(ctx, &members, "SELECT "+teamColumns+" FROM team_members "+teamOrder); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// GetTeamMember returns a team member by ID.
func (s *Store) GetTeamMember(ctx context.Context, id string) (*model.TeamMember, error) {
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	return getTeamMember(ctx, db, id)
}

func getTeamMember(ctx context.Context, q sqlx.ExtContext, id string) (*model.TeamMember, error) {
	var m model.TeamMember
	query := q.Rebind("SELECT " + teamColumns + " FROM team_members WHERE id = ?")
	if err := getOne(ctx, q, &m, query, id); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return &m, nil
}

// CreateTeamMember validates and inserts m. ID, CreatedAt and UpdatedAt are
// assigned on success.
func (s *Store) CreateTeamMember(ctx context.Context, m *model.TeamMember) error {
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
	m.CreatedAt = now
	m.UpdatedAt = now

	const q = `INSERT INTO team_members (` + teamColumns + `)
		VALUES (:id, :name, :role, :picture, :category, :sort_order, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, q, m); err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	return nil
}

// UpdateTeamMember applies patch to the member with the given ID and returns
// the updated record. Fields absent from patch are left unchanged.
func (s *Store) UpdateTeamMember(ctx context.Context, id string, patch model.TeamMemberPatch) (*model.TeamMember, error) {
	var updated *model.TeamMember
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		m, err := getTeamMember(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.Apply(m)
		m.Normalize()
		if err := m.Validate(); err != nil {
			return err
		}
		m.UpdatedAt = s.timestamp()

		const q = `UPDATE team_members SET
			name = :name, role = :role, picture = :picture, category = :category,
			sort_order = :sort_order, updated_at = :updated_at
			WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, q, m)
		if err != nil {
			return fmt.Errorf("update team member: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTeamMember removes a team member by ID and returns the deleted record.
func (s *Store) DeleteTeamMember(ctx context.Context, id string) (*model.TeamMember, error) {
	var deleted *model.TeamMember
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		m, err := getTeamMember(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM team_members WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("delete team member: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
