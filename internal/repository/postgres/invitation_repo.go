package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/latticehq/lattice/internal/domain"
)

type InvitationRepo struct {
	pool *pgxpool.Pool
}

func NewInvitationRepo(pool *pgxpool.Pool) *InvitationRepo {
	return &InvitationRepo{pool: pool}
}

func (r *InvitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (id, workspace_id, email, inviter_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		inv.ID, inv.WorkspaceID, inv.Email, inv.InviterID, inv.Role, inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	return err
}

func (r *InvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invitation, error) {
	query := `
		SELECT i.id, i.workspace_id, i.email, i.inviter_id, i.role, i.status,
		       i.created_at, i.updated_at, w.name
		FROM invitations i
		JOIN workspaces w ON w.id = i.workspace_id
		WHERE i.id = $1`

	var inv domain.Invitation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.InviterID, &inv.Role, &inv.Status,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.WorkspaceName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &inv, err
}

func (r *InvitationRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	query := `
		SELECT id, workspace_id, email, inviter_id, role, status, created_at, updated_at
		FROM invitations
		WHERE workspace_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvitations(rows)
}

func (r *InvitationRepo) ListPendingByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	query := `
		SELECT i.id, i.workspace_id, i.email, i.inviter_id, i.role, i.status,
		       i.created_at, i.updated_at, w.name
		FROM invitations i
		JOIN workspaces w ON w.id = i.workspace_id
		WHERE lower(i.email) = lower($1) AND i.status = 'PENDING'
		ORDER BY i.created_at DESC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(
			&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.InviterID, &inv.Role, &inv.Status,
			&inv.CreatedAt, &inv.UpdatedAt, &inv.WorkspaceName,
		); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// RevisePending applies the revision only while the row is still PENDING.
// The conditional UPDATE is what serializes revisions against a racing
// acceptance: once accept commits, no revision can match the row.
func (r *InvitationRepo) RevisePending(ctx context.Context, id uuid.UUID, role domain.Role, email *string) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if email != nil {
		tag, err = r.pool.Exec(ctx,
			`UPDATE invitations SET role = $1, email = $2, updated_at = $3 WHERE id = $4 AND status = 'PENDING'`,
			role, *email, time.Now(), id,
		)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE invitations SET role = $1, updated_at = $2 WHERE id = $3 AND status = 'PENDING'`,
			role, time.Now(), id,
		)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *InvitationRepo) TransitionPending(ctx context.Context, id uuid.UUID, to domain.InvitationStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'PENDING'`,
		to, time.Now(), id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Resolve consumes the invitation for user. The row lock makes the
// read-check-write sequence serializable: the first committed transition
// wins and every other racer observes a non-PENDING row.
func (r *InvitationRepo) Resolve(ctx context.Context, id uuid.UUID, user *domain.User, to domain.InvitationStatus) (*domain.Membership, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var inv domain.Invitation
	err = tx.QueryRow(ctx,
		`SELECT id, workspace_id, email, role, status FROM invitations WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, domain.ErrNotFound
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrAlreadyActioned
	}

	_, err = tx.Exec(ctx,
		`UPDATE invitations SET status = $1, updated_at = $2 WHERE id = $3`,
		to, time.Now(), id,
	)
	if err != nil {
		return nil, err
	}

	var member *domain.Membership
	if to == domain.InvitationAccepted {
		member = &domain.Membership{
			WorkspaceID: inv.WorkspaceID,
			UserID:      user.ID,
			Role:        inv.Role,
			JoinedAt:    time.Now(),
		}
		// Reuse an existing membership rather than failing: acceptance is
		// idempotent with respect to the (user, workspace) pair.
		_, err = tx.Exec(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (workspace_id, user_id) DO NOTHING`,
			member.WorkspaceID, member.UserID, member.Role, member.JoinedAt,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return member, nil
}

func scanInvitations(rows pgx.Rows) ([]domain.Invitation, error) {
	var invites []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(
			&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.InviterID, &inv.Role, &inv.Status,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
