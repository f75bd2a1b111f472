package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/repository"
)

type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	guard         *authz.Guard
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, guard *authz.Guard) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		guard:         guard,
	}
}

type CreateWorkspaceInput struct {
	Name string `json:"name"`
}

func (s *WorkspaceService) Create(ctx context.Context, ownerID uuid.UUID, input CreateWorkspaceInput) (*domain.Workspace, error) {
	now := time.Now()
	ws := &domain.Workspace{
		ID:        uuid.New(),
		Name:      input.Name,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	owner := &domain.Membership{
		WorkspaceID: ws.ID,
		UserID:      ownerID,
		Role:        domain.RoleAdmin,
		JoinedAt:    now,
	}

	if err := s.workspaceRepo.Create(ctx, ws, owner); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return ws, nil
}

func (s *WorkspaceService) Get(ctx context.Context, actorID, workspaceID uuid.UUID) (*domain.Workspace, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ViewWorkspace); err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, domain.ErrNotFound
	}
	return ws, nil
}

func (s *WorkspaceService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	return s.workspaceRepo.ListByUser(ctx, userID)
}

func (s *WorkspaceService) Delete(ctx context.Context, actorID, workspaceID uuid.UUID) error {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageMembers); err != nil {
		return err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws == nil {
		return domain.ErrNotFound
	}
	if ws.OwnerID != actorID {
		return domain.ErrForbidden
	}

	return s.workspaceRepo.Delete(ctx, workspaceID)
}

func (s *WorkspaceService) AddMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role domain.Role) error {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageMembers); err != nil {
		return err
	}
	if !role.Valid() {
		return domain.ErrConflict
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	existing, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrConflict
	}

	member := &domain.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now(),
	}
	return s.workspaceRepo.AddMember(ctx, member)
}

func (s *WorkspaceService) ChangeRole(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role domain.Role) error {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageMembers); err != nil {
		return err
	}
	if !role.Valid() {
		return domain.ErrConflict
	}

	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrNotFound
	}

	// Never demote the only remaining admin.
	if member.Role == domain.RoleAdmin && role != domain.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, workspaceID); err != nil {
			return err
		}
	}

	ok, err := s.workspaceRepo.UpdateMemberRole(ctx, workspaceID, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *WorkspaceService) RemoveMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID) error {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ManageMembers); err != nil {
		return err
	}

	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrNotFound
	}

	if member.Role == domain.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, workspaceID); err != nil {
			return err
		}
	}

	return s.workspaceRepo.RemoveMember(ctx, workspaceID, userID)
}

func (s *WorkspaceService) ListMembers(ctx context.Context, actorID, workspaceID uuid.UUID) ([]domain.Membership, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ViewWorkspace); err != nil {
		return nil, err
	}
	return s.workspaceRepo.ListMembers(ctx, workspaceID)
}

func (s *WorkspaceService) requireAnotherAdmin(ctx context.Context, workspaceID uuid.UUID) error {
	admins, err := s.workspaceRepo.CountAdmins(ctx, workspaceID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return domain.ErrConflict
	}
	return nil
}
