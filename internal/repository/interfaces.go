package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type WorkspaceRepository interface {
	// Create inserts the workspace and its owner's ADMIN membership in one
	// transaction; a workspace never exists without an admin.
	Create(ctx context.Context, ws *domain.Workspace, owner *domain.Membership) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error)
	// Delete cascades through cells, spreadsheets, invitations and
	// memberships in one transaction.
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, member *domain.Membership) error
	UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.Role) (bool, error)
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error)
	GetMemberByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Membership, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]domain.Membership, error)
	CountAdmins(ctx context.Context, workspaceID uuid.UUID) (int, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string) ([]domain.Invitation, error)

	// RevisePending updates role (and optionally email) iff the invitation
	// is still PENDING. Returns false when no pending row matched.
	RevisePending(ctx context.Context, id uuid.UUID, role domain.Role, email *string) (bool, error)
	// TransitionPending moves PENDING → to. Returns false when no pending
	// row matched.
	TransitionPending(ctx context.Context, id uuid.UUID, to domain.InvitationStatus) (bool, error)
	// Resolve accepts or declines on behalf of user, holding a row lock so
	// exactly one racer wins. On ACCEPTED the membership is created (or
	// reused) in the same transaction and returned. Returns
	// domain.ErrNotFound when the row is absent or the email does not
	// match, domain.ErrAlreadyActioned when the row is no longer PENDING.
	Resolve(ctx context.Context, id uuid.UUID, user *domain.User, to domain.InvitationStatus) (*domain.Membership, error)
}

type SpreadsheetRepository interface {
	Create(ctx context.Context, sheet *domain.Spreadsheet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Spreadsheet, error)
	// GetByWorkspaceAndName matches name case-insensitively within a single
	// workspace. Formula references resolve through this and nothing else.
	GetByWorkspaceAndName(ctx context.Context, workspaceID uuid.UUID, name string) (*domain.Spreadsheet, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Spreadsheet, error)
	SetFlag(ctx context.Context, id uuid.UUID, flag *string) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpsertCell(ctx context.Context, cell *domain.Cell) (*domain.Cell, error)
	GetCell(ctx context.Context, spreadsheetID uuid.UUID, row, column int) (*domain.Cell, error)
	ListCells(ctx context.Context, spreadsheetID uuid.UUID) ([]domain.Cell, error)
}
