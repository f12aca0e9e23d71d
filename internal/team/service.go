package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/convergehq/converge/internal/auth"
	"github.com/convergehq/converge/internal/profile"
	"github.com/convergehq/converge/internal/project"
)

var (
	ErrNotAuthenticated    = errors.New("authentication required")
	ErrMemberEmailRequired = errors.New("member email is required")
	ErrProjectNotFound     = errors.New("project not found")
	ErrNotOwner            = errors.New("only the project owner can manage the team")
	ErrAlreadyMember       = errors.New("member already added to project")
	ErrProfileNotFound     = errors.New("member profile not found")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteExists        = errors.New("a pending invite already exists for this member")
	ErrNotInviteTarget     = errors.New("only the invited member can respond to an invite")
	ErrInviteClosed        = errors.New("invite has already been resolved")
)

// ProjectGetter looks up projects for ownership checks.
type ProjectGetter interface {
	GetByID(ctx context.Context, id string) (*project.Project, error)
}

// ProfileGetter looks up member profiles.
type ProfileGetter interface {
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
}

// MembershipStore persists team memberships.
type MembershipStore interface {
	Insert(ctx context.Context, projectID, memberEmail string) (*Membership, error)
	Exists(ctx context.Context, projectID, memberEmail string) (bool, error)
	ListByProject(ctx context.Context, projectID string) ([]*Membership, error)
}

// InviteStore persists team invites.
type InviteStore interface {
	InsertInvite(ctx context.Context, projectID, requesterEmail, targetEmail string) (*Invite, error)
	GetInvite(ctx context.Context, id string) (*Invite, error)
	HasPendingInvite(ctx context.Context, projectID, targetEmail string) (bool, error)
	ListInvitesByTarget(ctx context.Context, targetEmail string) ([]*Invite, error)
	UpdateInviteStatus(ctx context.Context, id, status string) (*Invite, error)
}

// Service enforces the team management rules: only the project owner adds
// members or sends invites, a member is added at most once, and a member
// must hold a profile before joining.
type Service struct {
	projects    ProjectGetter
	profiles    ProfileGetter
	memberships MembershipStore
	invites     InviteStore
	logger      *slog.Logger
}

func NewService(projects ProjectGetter, profiles ProfileGetter, memberships MembershipStore, invites InviteStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		projects:    projects,
		profiles:    profiles,
		memberships: memberships,
		invites:     invites,
		logger:      logger,
	}
}

// authorizeOwner runs the shared guard chain: the requester must be
// authenticated, the project must exist, and the requester must own it.
// The checks run in that order so a missing project is reported before an
// ownership failure.
func (s *Service) authorizeOwner(ctx context.Context, requesterEmail, projectID string) (*project.Project, error) {
	if requesterEmail == "" {
		return nil, ErrNotAuthenticated
	}
	proj, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("looking up project: %w", err)
	}
	if !auth.CanManageProject(requesterEmail, proj.OwnerEmail) {
		return nil, ErrNotOwner
	}
	return proj, nil
}

// AddTeammate adds memberEmail to the project's team on behalf of
// requesterEmail, who must own the project.
func (s *Service) AddTeammate(ctx context.Context, requesterEmail, projectID, memberEmail string) (*Membership, error) {
	if _, err := s.authorizeOwner(ctx, requesterEmail, projectID); err != nil {
		return nil, err
	}
	if memberEmail == "" {
		return nil, ErrMemberEmailRequired
	}

	exists, err := s.memberships.Exists(ctx, projectID, memberEmail)
	if err != nil {
		return nil, fmt.Errorf("checking existing membership: %w", err)
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	if _, err := s.profiles.GetByEmail(ctx, memberEmail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("looking up member profile: %w", err)
	}

	m, err := s.memberships.Insert(ctx, projectID, memberEmail)
	if err != nil {
		// The unique constraint can still trip under concurrent adds.
		return nil, err
	}

	s.logger.Info("teammate added",
		"project_id", projectID,
		"member", memberEmail,
		"added_by", requesterEmail)
	return m, nil
}

// ListTeammates returns the project's members joined with their profiles.
// A member whose profile has since disappeared is still listed, with the
// email present and the profile fields null.
func (s *Service) ListTeammates(ctx context.Context, projectID string) ([]*Teammate, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("looking up project: %w", err)
	}

	members, err := s.memberships.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make([]*Teammate, 0, len(members))
	for _, m := range members {
		t := &Teammate{Email: m.MemberEmail, AddedAt: m.AddedAt}
		p, err := s.profiles.GetByEmail(ctx, m.MemberEmail)
		switch {
		case err == nil:
			t.Name = &p.Name
			t.Year = optional(p.Year)
			t.Department = optional(p.Department)
			t.Institution = optional(p.Institution)
			t.Availability = optional(p.Availability)
		case errors.Is(err, pgx.ErrNoRows):
			// Keep the row; the profile fields stay null.
		default:
			return nil, fmt.Errorf("looking up teammate profile: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateInvite records a pending join request from the project owner to
// targetEmail. A member who already joined, or who holds an open invite,
// cannot be invited again.
func (s *Service) CreateInvite(ctx context.Context, requesterEmail, projectID, targetEmail string) (*Invite, error) {
	if _, err := s.authorizeOwner(ctx, requesterEmail, projectID); err != nil {
		return nil, err
	}
	if targetEmail == "" {
		return nil, ErrMemberEmailRequired
	}

	member, err := s.memberships.Exists(ctx, projectID, targetEmail)
	if err != nil {
		return nil, fmt.Errorf("checking existing membership: %w", err)
	}
	if member {
		return nil, ErrAlreadyMember
	}

	pending, err := s.invites.HasPendingInvite(ctx, projectID, targetEmail)
	if err != nil {
		return nil, fmt.Errorf("checking pending invite: %w", err)
	}
	if pending {
		return nil, ErrInviteExists
	}

	if _, err := s.profiles.GetByEmail(ctx, targetEmail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("looking up target profile: %w", err)
	}

	inv, err := s.invites.InsertInvite(ctx, projectID, requesterEmail, targetEmail)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite created",
		"invite_id", inv.ID,
		"project_id", projectID,
		"target", targetEmail,
		"requested_by", requesterEmail)
	return inv, nil
}

// AcceptInvite marks the invite accepted and creates the membership. Only
// the invite target may accept, and only while the invite is pending.
func (s *Service) AcceptInvite(ctx context.Context, actorEmail, inviteID string) (*Invite, error) {
	inv, err := s.loadOpenInvite(ctx, actorEmail, inviteID)
	if err != nil {
		return nil, err
	}

	if _, err := s.memberships.Insert(ctx, inv.ProjectID, inv.TargetEmail); err != nil {
		if !errors.Is(err, ErrAlreadyMember) {
			return nil, err
		}
		// Added directly in the meantime; resolving the invite is still fine.
	}

	updated, err := s.invites.UpdateInviteStatus(ctx, inviteID, StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("accepting invite: %w", err)
	}

	s.logger.Info("invite accepted", "invite_id", inviteID, "project_id", inv.ProjectID, "member", inv.TargetEmail)
	return updated, nil
}

// RejectInvite marks the invite rejected. Only the target may reject, and
// only while the invite is pending.
func (s *Service) RejectInvite(ctx context.Context, actorEmail, inviteID string) (*Invite, error) {
	inv, err := s.loadOpenInvite(ctx, actorEmail, inviteID)
	if err != nil {
		return nil, err
	}

	updated, err := s.invites.UpdateInviteStatus(ctx, inviteID, StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("rejecting invite: %w", err)
	}

	s.logger.Info("invite rejected", "invite_id", inviteID, "project_id", inv.ProjectID, "member", inv.TargetEmail)
	return updated, nil
}

// ListInvites returns the invites addressed to actorEmail.
func (s *Service) ListInvites(ctx context.Context, actorEmail string) ([]*Invite, error) {
	if actorEmail == "" {
		return nil, ErrNotAuthenticated
	}
	return s.invites.ListInvitesByTarget(ctx, actorEmail)
}

func (s *Service) loadOpenInvite(ctx context.Context, actorEmail, inviteID string) (*Invite, error) {
	if actorEmail == "" {
		return nil, ErrNotAuthenticated
	}
	inv, err := s.invites.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("looking up invite: %w", err)
	}
	if inv.TargetEmail != actorEmail {
		return nil, ErrNotInviteTarget
	}
	if inv.Status != StatusPending {
		return nil, ErrInviteClosed
	}
	return inv, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
