package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Store provides database operations for team memberships and invites. The
// (project_id, member_email) pair carries a unique constraint so concurrent
// inserts for the same pair cannot both succeed; the constraint violation is
// surfaced as ErrAlreadyMember.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new team store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert persists a membership with addedAt = now.
func (s *Store) Insert(ctx context.Context, projectID, memberEmail string) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO team_memberships (project_id, member_email)
		 VALUES ($1, $2)
		 RETURNING project_id, member_email, added_at`,
		projectID, memberEmail,
	).Scan(&m.ProjectID, &m.MemberEmail, &m.AddedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("inserting membership: %w", err)
	}
	return m, nil
}

// Exists reports whether a membership exists for the given pair.
func (s *Store) Exists(ctx context.Context, projectID, memberEmail string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM team_memberships WHERE project_id = $1 AND member_email = $2
		 )`, projectID, memberEmail,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// ListByProject returns a project's memberships in join order.
func (s *Store) ListByProject(ctx context.Context, projectID string) ([]*Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT project_id, member_email, added_at
		 FROM team_memberships WHERE project_id = $1 ORDER BY added_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var out []*Membership
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.ProjectID, &m.MemberEmail, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertInvite persists a pending invite. A partial unique index on pending
// (project_id, target_email) rows rejects duplicate open invites.
func (s *Store) InsertInvite(ctx context.Context, projectID, requesterEmail, targetEmail string) (*Invite, error) {
	inv := &Invite{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO team_invites (id, project_id, requester_email, target_email, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, project_id, requester_email, target_email, status, created_at, updated_at`,
		uuid.NewString(), projectID, requesterEmail, targetEmail, StatusPending,
	).Scan(&inv.ID, &inv.ProjectID, &inv.RequesterEmail, &inv.TargetEmail, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrInviteExists
		}
		return nil, fmt.Errorf("inserting invite: %w", err)
	}
	return inv, nil
}

// GetInvite retrieves an invite by ID.
func (s *Store) GetInvite(ctx context.Context, id string) (*Invite, error) {
	inv := &Invite{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, requester_email, target_email, status, created_at, updated_at
		 FROM team_invites WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.ProjectID, &inv.RequesterEmail, &inv.TargetEmail, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting invite: %w", err)
	}
	return inv, nil
}

// HasPendingInvite reports whether an open invite exists for the pair.
func (s *Store) HasPendingInvite(ctx context.Context, projectID, targetEmail string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM team_invites
		   WHERE project_id = $1 AND target_email = $2 AND status = $3
		 )`, projectID, targetEmail, StatusPending,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending invite: %w", err)
	}
	return exists, nil
}

// ListInvitesByTarget returns invites addressed to targetEmail, newest first.
func (s *Store) ListInvitesByTarget(ctx context.Context, targetEmail string) ([]*Invite, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, requester_email, target_email, status, created_at, updated_at
		 FROM team_invites WHERE target_email = $1 ORDER BY created_at DESC`, targetEmail)
	if err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	defer rows.Close()

	var out []*Invite
	for rows.Next() {
		inv := &Invite{}
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.RequesterEmail, &inv.TargetEmail,
			&inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning invite row: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateInviteStatus transitions an invite to the given status.
func (s *Store) UpdateInviteStatus(ctx context.Context, id, status string) (*Invite, error) {
	inv := &Invite{}
	err := s.pool.QueryRow(ctx,
		`UPDATE team_invites SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, project_id, requester_email, target_email, status, created_at, updated_at`,
		id, status,
	).Scan(&inv.ID, &inv.ProjectID, &inv.RequesterEmail, &inv.TargetEmail, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating invite status: %w", err)
	}
	return inv, nil
}
