package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/domain"
)

type testEnv struct {
	users       *fakeUserRepo
	workspaces  *fakeWorkspaceRepo
	invitations *fakeInvitationRepo
	sheets      *fakeSpreadsheetRepo
	guard       *authz.Guard
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	workspaces := newFakeWorkspaceRepo(users)
	return &testEnv{
		users:       users,
		workspaces:  workspaces,
		invitations: newFakeInvitationRepo(workspaces),
		sheets:      newFakeSpreadsheetRepo(),
		guard:       authz.NewGuard(workspaces),
	}
}

func (e *testEnv) addUser(t *testing.T, email, username string) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) addWorkspace(t *testing.T, name string, owner *domain.User) *domain.Workspace {
	t.Helper()
	now := time.Now()
	ws := &domain.Workspace{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   owner.ID,
		CreatedAt: now,
	}
	member := &domain.Membership{
		WorkspaceID: ws.ID,
		UserID:      owner.ID,
		Role:        domain.RoleAdmin,
		JoinedAt:    now,
	}
	require.NoError(t, e.workspaces.Create(context.Background(), ws, member))
	return ws
}

func (e *testEnv) addMember(t *testing.T, ws *domain.Workspace, user *domain.User, role domain.Role) {
	t.Helper()
	require.NoError(t, e.workspaces.AddMember(context.Background(), &domain.Membership{
		WorkspaceID: ws.ID,
		UserID:      user.ID,
		Role:        role,
		JoinedAt:    time.Now(),
	}))
}

func (e *testEnv) addInvitation(t *testing.T, ws *domain.Workspace, inviter *domain.User, email string, role domain.Role) *domain.Invitation {
	t.Helper()
	now := time.Now()
	inv := &domain.Invitation{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Email:       email,
		InviterID:   inviter.ID,
		Role:        role,
		Status:      domain.InvitationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.invitations.Create(context.Background(), inv))
	return inv
}

func (e *testEnv) addSheet(t *testing.T, ws *domain.Workspace, name string) *domain.Spreadsheet {
	t.Helper()
	sheet := &domain.Spreadsheet{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Name:        name,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, e.sheets.Create(context.Background(), sheet))
	return sheet
}
