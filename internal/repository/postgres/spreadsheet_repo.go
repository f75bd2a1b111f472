package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/latticehq/lattice/internal/domain"
)

type SpreadsheetRepo struct {
	pool *pgxpool.Pool
}

func NewSpreadsheetRepo(pool *pgxpool.Pool) *SpreadsheetRepo {
	return &SpreadsheetRepo{pool: pool}
}

func (r *SpreadsheetRepo) Create(ctx context.Context, s *domain.Spreadsheet) error {
	query := `
		INSERT INTO spreadsheets (id, workspace_id, name, flag, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, s.ID, s.WorkspaceID, s.Name, s.Flag, s.CreatedAt)
	return err
}

func (r *SpreadsheetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Spreadsheet, error) {
	query := `SELECT id, workspace_id, name, flag, created_at FROM spreadsheets WHERE id = $1`
	return r.scanSpreadsheet(ctx, query, id)
}

func (r *SpreadsheetRepo) GetByWorkspaceAndName(ctx context.Context, workspaceID uuid.UUID, name string) (*domain.Spreadsheet, error) {
	query := `
		SELECT id, workspace_id, name, flag, created_at
		FROM spreadsheets
		WHERE workspace_id = $1 AND lower(name) = lower($2)`
	return r.scanSpreadsheet(ctx, query, workspaceID, name)
}

func (r *SpreadsheetRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Spreadsheet, error) {
	query := `
		SELECT id, workspace_id, name, flag, created_at
		FROM spreadsheets
		WHERE workspace_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []domain.Spreadsheet
	for rows.Next() {
		var s domain.Spreadsheet
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Flag, &s.CreatedAt); err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, rows.Err()
}

func (r *SpreadsheetRepo) SetFlag(ctx context.Context, id uuid.UUID, flag *string) error {
	_, err := r.pool.Exec(ctx, `UPDATE spreadsheets SET flag = $1 WHERE id = $2`, flag, id)
	return err
}

func (r *SpreadsheetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM spreadsheet_cells WHERE spreadsheet_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM spreadsheets WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpsertCell overwrites the content of an existing (sheet, row, column)
// cell or creates it. Retrying with identical arguments is a no-op.
func (r *SpreadsheetRepo) UpsertCell(ctx context.Context, c *domain.Cell) (*domain.Cell, error) {
	query := `
		INSERT INTO spreadsheet_cells (id, spreadsheet_id, row_index, column_index, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (spreadsheet_id, row_index, column_index)
		DO UPDATE SET content = EXCLUDED.content
		RETURNING id, spreadsheet_id, row_index, column_index, content`

	var out domain.Cell
	err := r.pool.QueryRow(ctx, query, c.ID, c.SpreadsheetID, c.Row, c.Column, c.Content).Scan(
		&out.ID, &out.SpreadsheetID, &out.Row, &out.Column, &out.Content,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SpreadsheetRepo) GetCell(ctx context.Context, spreadsheetID uuid.UUID, row, column int) (*domain.Cell, error) {
	query := `
		SELECT id, spreadsheet_id, row_index, column_index, content
		FROM spreadsheet_cells
		WHERE spreadsheet_id = $1 AND row_index = $2 AND column_index = $3`

	var c domain.Cell
	err := r.pool.QueryRow(ctx, query, spreadsheetID, row, column).Scan(
		&c.ID, &c.SpreadsheetID, &c.Row, &c.Column, &c.Content,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &c, err
}

func (r *SpreadsheetRepo) ListCells(ctx context.Context, spreadsheetID uuid.UUID) ([]domain.Cell, error) {
	query := `
		SELECT id, spreadsheet_id, row_index, column_index, content
		FROM spreadsheet_cells
		WHERE spreadsheet_id = $1
		ORDER BY row_index, column_index`

	rows, err := r.pool.Query(ctx, query, spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []domain.Cell
	for rows.Next() {
		var c domain.Cell
		if err := rows.Scan(&c.ID, &c.SpreadsheetID, &c.Row, &c.Column, &c.Content); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (r *SpreadsheetRepo) scanSpreadsheet(ctx context.Context, query string, args ...any) (*domain.Spreadsheet, error) {
	var s domain.Spreadsheet
	err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Flag, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &s, err
}
