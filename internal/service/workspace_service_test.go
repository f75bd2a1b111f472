package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice/internal/domain"
)

func newWorkspaceService(env *testEnv) *WorkspaceService {
	return NewWorkspaceService(env.workspaces, env.users, env.guard)
}

func TestCreateWorkspaceMakesOwnerAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")

	ws, err := svc.Create(ctx, owner.ID, CreateWorkspaceInput{Name: "Team"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, ws.OwnerID)

	member, err := env.workspaces.GetMember(ctx, ws.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, member, "creating a workspace and granting admin happen together")
	assert.Equal(t, domain.RoleAdmin, member.Role)
}

func TestGetWorkspaceDeniedForNonMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	stranger := env.addUser(t, "stranger@example.com", "stranger")
	ws := env.addWorkspace(t, "Team", owner)

	_, err := svc.Get(ctx, stranger.ID, ws.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Get(ctx, owner.ID, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
}

func TestDeleteWorkspaceOwnerOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	coAdmin := env.addUser(t, "coadmin@example.com", "coadmin")
	ws := env.addWorkspace(t, "Team", owner)
	env.addMember(t, ws, coAdmin, domain.RoleAdmin)

	// Admin but not owner.
	assert.ErrorIs(t, svc.Delete(ctx, coAdmin.ID, ws.ID), domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, owner.ID, ws.ID))

	got, err := env.workspaces.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	user := env.addUser(t, "user@example.com", "user")
	ws := env.addWorkspace(t, "Team", owner)

	require.NoError(t, svc.AddMember(ctx, owner.ID, ws.ID, user.ID, domain.RoleEditor))

	// Already a member.
	assert.ErrorIs(t, svc.AddMember(ctx, owner.ID, ws.ID, user.ID, domain.RoleViewer), domain.ErrConflict)

	// Unknown user.
	assert.ErrorIs(t, svc.AddMember(ctx, owner.ID, ws.ID, uuid.New(), domain.RoleViewer), domain.ErrNotFound)

	// Invalid role.
	assert.ErrorIs(t, svc.AddMember(ctx, owner.ID, ws.ID, user.ID, domain.Role("SUPERUSER")), domain.ErrConflict)
}

func TestAddMemberRequiresManageMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	editor := env.addUser(t, "editor@example.com", "editor")
	target := env.addUser(t, "target@example.com", "target")
	ws := env.addWorkspace(t, "Team", owner)
	env.addMember(t, ws, editor, domain.RoleEditor)

	err := svc.AddMember(ctx, editor.ID, ws.ID, target.ID, domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLastAdminProtection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	ws := env.addWorkspace(t, "Team", owner)

	t.Run("demote sole admin", func(t *testing.T) {
		err := svc.ChangeRole(ctx, owner.ID, ws.ID, owner.ID, domain.RoleViewer)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("remove sole admin", func(t *testing.T) {
		err := svc.RemoveMember(ctx, owner.ID, ws.ID, owner.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("allowed once another admin exists", func(t *testing.T) {
		second := env.addUser(t, "second@example.com", "second")
		env.addMember(t, ws, second, domain.RoleAdmin)

		require.NoError(t, svc.ChangeRole(ctx, owner.ID, ws.ID, owner.ID, domain.RoleViewer))

		member, err := env.workspaces.GetMember(ctx, ws.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleViewer, member.Role)
	})
}

func TestListMembersVisibleToAnyMember(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	viewer := env.addUser(t, "viewer@example.com", "viewer")
	stranger := env.addUser(t, "stranger@example.com", "stranger")
	ws := env.addWorkspace(t, "Team", owner)
	env.addMember(t, ws, viewer, domain.RoleViewer)

	members, err := svc.ListMembers(ctx, viewer.ID, ws.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.ListMembers(ctx, stranger.ID, ws.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListByUserScopedToMemberships(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newWorkspaceService(env)

	alice := env.addUser(t, "alice@example.com", "alice")
	bob := env.addUser(t, "bob@example.com", "bob")
	wsA := env.addWorkspace(t, "Alpha", alice)
	env.addWorkspace(t, "Beta", bob)

	got, err := svc.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, wsA.ID, got[0].ID)
}
