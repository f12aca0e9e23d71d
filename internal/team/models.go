package team

import "time"

// Membership is a (project, member) pair. At most one row exists per pair;
// the projects table's owner performs the insert.
type Membership struct {
	ProjectID   string    `json:"projectId"`
	MemberEmail string    `json:"memberEmail"`
	AddedAt     time.Time `json:"addedAt"`
}

// Teammate is a membership joined with the member's profile fields. The
// pointer fields are nil when the member has no stored profile.
type Teammate struct {
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	Year         *string   `json:"year,omitempty"`
	Department   *string   `json:"department,omitempty"`
	Institution  *string   `json:"institution,omitempty"`
	Availability *string   `json:"availability,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// Invite statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Invite is a pending request from a project owner asking a candidate to
// join the team. Only the target may accept or reject it.
type Invite struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	RequesterEmail string    `json:"requesterEmail"`
	TargetEmail    string    `json:"targetEmail"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
