package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/repository"
)

// InvitationService owns the invitation state machine:
// PENDING → {ACCEPTED, DECLINED, REVOKED}, each transition taken at most
// once. Authorization is always evaluated against the invitation's own
// workspace, never against anything the caller supplied.
type InvitationService struct {
	invitationRepo repository.InvitationRepository
	workspaceRepo  repository.WorkspaceRepository
	userRepo       repository.UserRepository
	guard          *authz.Guard
}

func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	workspaceRepo repository.WorkspaceRepository,
	userRepo repository.UserRepository,
	guard *authz.Guard,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		workspaceRepo:  workspaceRepo,
		userRepo:       userRepo,
		guard:          guard,
	}
}

type InviteInput struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func (s *InvitationService) Invite(ctx context.Context, actorID, workspaceID uuid.UUID, input InviteInput) (*domain.Invitation, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageInvitations); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, domain.ErrConflict
	}

	// An address that already maps to a member gets a bare conflict: no
	// prior-invitation lookup, no identifiers in the response.
	member, err := s.workspaceRepo.GetMemberByEmail(ctx, workspaceID, input.Email)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, domain.ErrConflict
	}

	now := time.Now()
	inv := &domain.Invitation{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Email:       input.Email,
		InviterID:   actorID,
		Role:        input.Role,
		Status:      domain.InvitationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

type ReviseInvitationInput struct {
	NewRole  domain.Role `json:"new_role"`
	NewEmail *string     `json:"new_email"`
}

func (s *InvitationService) Revise(ctx context.Context, actorID, invitationID uuid.UUID, input ReviseInvitationInput) error {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}

	// The workspace is re-derived from the invitation row itself.
	if err := s.guard.Require(ctx, actorID, inv.WorkspaceID, authz.ManageInvitations); err != nil {
		return err
	}
	if !input.NewRole.Valid() {
		return domain.ErrConflict
	}
	if inv.Status.Terminal() {
		return domain.ErrConflict
	}

	ok, err := s.invitationRepo.RevisePending(ctx, invitationID, input.NewRole, input.NewEmail)
	if err != nil {
		return err
	}
	if !ok {
		// Pending a moment ago, terminal now: lost a race with an
		// acceptance, decline or revocation.
		return domain.ErrAlreadyActioned
	}
	return nil
}

func (s *InvitationService) Accept(ctx context.Context, actorID, invitationID uuid.UUID) (*domain.Membership, error) {
	return s.resolve(ctx, actorID, invitationID, domain.InvitationAccepted)
}

func (s *InvitationService) Decline(ctx context.Context, actorID, invitationID uuid.UUID) error {
	_, err := s.resolve(ctx, actorID, invitationID, domain.InvitationDeclined)
	return err
}

func (s *InvitationService) resolve(ctx context.Context, actorID, invitationID uuid.UUID, to domain.InvitationStatus) (*domain.Membership, error) {
	user, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	// A non-invitee learns nothing, not even that the invitation exists.
	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, domain.ErrNotFound
	}
	if inv.Status.Terminal() {
		return nil, domain.ErrConflict
	}

	// The repo re-checks status and email under a row lock; first
	// successful transition wins, the loser gets ErrAlreadyActioned.
	return s.invitationRepo.Resolve(ctx, invitationID, user, to)
}

func (s *InvitationService) Revoke(ctx context.Context, actorID, invitationID uuid.UUID) error {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}

	if err := s.guard.Require(ctx, actorID, inv.WorkspaceID, authz.ManageInvitations); err != nil {
		return err
	}
	if inv.Status.Terminal() {
		return domain.ErrConflict
	}

	ok, err := s.invitationRepo.TransitionPending(ctx, invitationID, domain.InvitationRevoked)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyActioned
	}
	return nil
}

func (s *InvitationService) ListByWorkspace(ctx context.Context, actorID, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageInvitations); err != nil {
		return nil, err
	}
	return s.invitationRepo.ListByWorkspace(ctx, workspaceID)
}

// ListMine returns pending invitations addressed to the caller's email.
func (s *InvitationService) ListMine(ctx context.Context, actorID uuid.UUID) ([]domain.Invitation, error) {
	user, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.invitationRepo.ListPendingByEmail(ctx, user.Email)
}
