package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/latticehq/lattice/internal/domain"
)

type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepo(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

func (r *WorkspaceRepo) Create(ctx context.Context, ws *domain.Workspace, owner *domain.Membership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO workspaces (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		ws.ID, ws.Name, ws.OwnerID, ws.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		owner.WorkspaceID, owner.UserID, owner.Role, owner.JoinedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	query := `SELECT id, name, owner_id, created_at FROM workspaces WHERE id = $1`
	var ws domain.Workspace
	err := r.pool.QueryRow(ctx, query, id).Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &ws, err
}

func (r *WorkspaceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.owner_id, w.created_at
		FROM workspaces w
		INNER JOIN workspace_members wm ON w.id = wm.workspace_id
		WHERE wm.user_id = $1
		ORDER BY w.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []domain.Workspace
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

// Delete removes the workspace and everything it owns. The cascade is
// explicit so nothing outlives its parent even without FK support.
func (r *WorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM spreadsheet_cells WHERE spreadsheet_id IN (SELECT id FROM spreadsheets WHERE workspace_id = $1)`,
		`DELETE FROM spreadsheets WHERE workspace_id = $1`,
		`DELETE FROM invitations WHERE workspace_id = $1`,
		`DELETE FROM workspace_members WHERE workspace_id = $1`,
		`DELETE FROM workspaces WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *WorkspaceRepo) AddMember(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, m.WorkspaceID, m.UserID, m.Role, m.JoinedAt)
	return err
}

func (r *WorkspaceRepo) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.Role) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3`,
		role, workspaceID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID)
	return err
}

func (r *WorkspaceRepo) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	query := `SELECT workspace_id, user_id, role, joined_at FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	var m domain.Membership
	err := r.pool.QueryRow(ctx, query, workspaceID, userID).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &m, err
}

func (r *WorkspaceRepo) GetMemberByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Membership, error) {
	query := `
		SELECT wm.workspace_id, wm.user_id, wm.role, wm.joined_at
		FROM workspace_members wm
		JOIN users u ON wm.user_id = u.id
		WHERE wm.workspace_id = $1 AND lower(u.email) = lower($2)`
	var m domain.Membership
	err := r.pool.QueryRow(ctx, query, workspaceID, email).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &m, err
}

func (r *WorkspaceRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]domain.Membership, error) {
	query := `
		SELECT wm.workspace_id, wm.user_id, wm.role, wm.joined_at, u.username, u.email
		FROM workspace_members wm
		JOIN users u ON wm.user_id = u.id
		WHERE wm.workspace_id = $1
		ORDER BY wm.joined_at`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt, &m.Username, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *WorkspaceRepo) CountAdmins(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1 AND role = $2`,
		workspaceID, domain.RoleAdmin,
	).Scan(&count)
	return count, err
}
