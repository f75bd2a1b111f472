package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
)

// Action is something a principal may attempt within a workspace.
type Action string

const (
	ViewWorkspace      Action = "VIEW_WORKSPACE"
	CreateResource     Action = "CREATE_RESOURCE"
	EditResource       Action = "EDIT_RESOURCE"
	ViewSensitiveField Action = "VIEW_SENSITIVE_FIELD"
	ManageMembers      Action = "MANAGE_MEMBERS"
	ManageInvitations  Action = "MANAGE_INVITATIONS"
)

// rolePolicy is the full role → allowed-actions table. ADMIN gets
// everything; a user without a membership row gets nothing.
var rolePolicy = map[domain.Role]map[Action]struct{}{
	domain.RoleAdmin: actions(ViewWorkspace, CreateResource, EditResource,
		ViewSensitiveField, ManageMembers, ManageInvitations),
	domain.RoleEditor: actions(ViewWorkspace, CreateResource, EditResource),
	domain.RoleViewer: actions(ViewWorkspace),
}

func actions(as ...Action) map[Action]struct{} {
	m := make(map[Action]struct{}, len(as))
	for _, a := range as {
		m[a] = struct{}{}
	}
	return m
}

// RoleAllows reports whether the policy table grants action to role.
func RoleAllows(role domain.Role, action Action) bool {
	_, ok := rolePolicy[role][action]
	return ok
}

// MembershipSource looks up the caller's membership row for a workspace.
// Returns (nil, nil) when no row exists.
type MembershipSource interface {
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error)
}

// Guard decides allow/deny for every resource access point. Callers must
// resolve the workspace from the resource being acted on, never from any
// caller-supplied context.
type Guard struct {
	members MembershipSource
}

func NewGuard(members MembershipSource) *Guard {
	return &Guard{members: members}
}

func (g *Guard) Can(ctx context.Context, userID, workspaceID uuid.UUID, action Action) (bool, error) {
	m, err := g.members.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}
	return RoleAllows(m.Role, action), nil
}

// Require returns domain.ErrForbidden unless the guard allows the action.
func (g *Guard) Require(ctx context.Context, userID, workspaceID uuid.UUID, action Action) error {
	ok, err := g.Can(ctx, userID, workspaceID, action)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
