package domain

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationRevoked  InvitationStatus = "REVOKED"
)

// Terminal reports whether no further transition is allowed.
func (s InvitationStatus) Terminal() bool {
	return s != InvitationPending
}

type Invitation struct {
	ID          uuid.UUID        `json:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	Email       string           `json:"email"`
	InviterID   uuid.UUID        `json:"inviter_id"`
	Role        Role             `json:"role"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Joined field for the accept page
	WorkspaceName string `json:"workspace_name,omitempty"`
}
