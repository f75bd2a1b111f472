package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/formula"
	"github.com/latticehq/lattice/internal/repository"
)

// CellPublisher pushes cell updates to live subscribers. Implemented by
// the ws notifier; nil-safe via NoopPublisher.
type CellPublisher interface {
	PublishCellUpdate(workspaceID uuid.UUID, cell *domain.Cell)
}

type NoopPublisher struct{}

func (NoopPublisher) PublishCellUpdate(uuid.UUID, *domain.Cell) {}

type SpreadsheetService struct {
	sheetRepo repository.SpreadsheetRepository
	guard     *authz.Guard
	evaluator *formula.Evaluator
	publisher CellPublisher
}

func NewSpreadsheetService(
	sheetRepo repository.SpreadsheetRepository,
	guard *authz.Guard,
	evaluator *formula.Evaluator,
	publisher CellPublisher,
) *SpreadsheetService {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &SpreadsheetService{
		sheetRepo: sheetRepo,
		guard:     guard,
		evaluator: evaluator,
		publisher: publisher,
	}
}

type CreateSpreadsheetInput struct {
	Name string `json:"name"`
}

func (s *SpreadsheetService) Create(ctx context.Context, actorID, workspaceID uuid.UUID, input CreateSpreadsheetInput) (*domain.Spreadsheet, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.CreateResource); err != nil {
		return nil, err
	}

	sheet := &domain.Spreadsheet{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        input.Name,
		CreatedAt:   time.Now(),
	}
	if err := s.sheetRepo.Create(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

// Get returns the per-caller projection of a spreadsheet. The workspace is
// resolved from the sheet row, and the sensitive field is filled only when
// the caller may view it.
func (s *SpreadsheetService) Get(ctx context.Context, actorID, sheetID uuid.UUID) (*domain.SpreadsheetView, error) {
	sheet, err := s.resolveViewable(ctx, actorID, sheetID)
	if err != nil {
		return nil, err
	}

	view := &domain.SpreadsheetView{
		ID:          sheet.ID,
		WorkspaceID: sheet.WorkspaceID,
		Name:        sheet.Name,
		CreatedAt:   sheet.CreatedAt,
	}

	canSeeFlag, err := s.guard.Can(ctx, actorID, sheet.WorkspaceID, authz.ViewSensitiveField)
	if err != nil {
		return nil, err
	}
	if canSeeFlag {
		view.Flag = sheet.Flag
	}
	return view, nil
}

func (s *SpreadsheetService) ListByWorkspace(ctx context.Context, actorID, workspaceID uuid.UUID) ([]domain.SpreadsheetView, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ViewWorkspace); err != nil {
		return nil, err
	}

	sheets, err := s.sheetRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	canSeeFlag, err := s.guard.Can(ctx, actorID, workspaceID, authz.ViewSensitiveField)
	if err != nil {
		return nil, err
	}

	views := make([]domain.SpreadsheetView, 0, len(sheets))
	for _, sheet := range sheets {
		view := domain.SpreadsheetView{
			ID:          sheet.ID,
			WorkspaceID: sheet.WorkspaceID,
			Name:        sheet.Name,
			CreatedAt:   sheet.CreatedAt,
		}
		if canSeeFlag {
			view.Flag = sheet.Flag
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *SpreadsheetService) SetFlag(ctx context.Context, actorID, sheetID uuid.UUID, flag *string) error {
	sheet, err := s.sheetRepo.GetByID(ctx, sheetID)
	if err != nil {
		return err
	}
	if sheet == nil {
		return domain.ErrNotFound
	}

	if err := s.guard.Require(ctx, actorID, sheet.WorkspaceID, authz.ViewSensitiveField); err != nil {
		return err
	}
	return s.sheetRepo.SetFlag(ctx, sheetID, flag)
}

func (s *SpreadsheetService) Delete(ctx context.Context, actorID, sheetID uuid.UUID) error {
	sheet, err := s.sheetRepo.GetByID(ctx, sheetID)
	if err != nil {
		return err
	}
	if sheet == nil {
		return domain.ErrNotFound
	}

	if err := s.guard.Require(ctx, actorID, sheet.WorkspaceID, authz.EditResource); err != nil {
		return err
	}
	return s.sheetRepo.Delete(ctx, sheetID)
}

type UpsertCellInput struct {
	Row     int    `json:"row"`
	Column  int    `json:"column"`
	Content string `json:"content"`
}

func (s *SpreadsheetService) UpsertCell(ctx context.Context, actorID, sheetID uuid.UUID, input UpsertCellInput) (*domain.Cell, error) {
	sheet, err := s.sheetRepo.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, domain.ErrNotFound
	}

	if err := s.guard.Require(ctx, actorID, sheet.WorkspaceID, authz.EditResource); err != nil {
		return nil, err
	}

	cell, err := s.sheetRepo.UpsertCell(ctx, &domain.Cell{
		ID:            uuid.New(),
		SpreadsheetID: sheetID,
		Row:           input.Row,
		Column:        input.Column,
		Content:       input.Content,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCellUpdate(sheet.WorkspaceID, cell)
	return cell, nil
}

func (s *SpreadsheetService) ListCells(ctx context.Context, actorID, sheetID uuid.UUID) ([]domain.Cell, error) {
	if _, err := s.resolveViewable(ctx, actorID, sheetID); err != nil {
		return nil, err
	}
	return s.sheetRepo.ListCells(ctx, sheetID)
}

// GetCell returns one cell with its evaluated content. Formula references
// resolve inside the sheet's own workspace only.
func (s *SpreadsheetService) GetCell(ctx context.Context, actorID, sheetID uuid.UUID, row, column int) (*domain.Cell, error) {
	sheet, err := s.resolveViewable(ctx, actorID, sheetID)
	if err != nil {
		return nil, err
	}

	cell, err := s.sheetRepo.GetCell(ctx, sheetID, row, column)
	if err != nil {
		return nil, err
	}
	if cell == nil {
		return nil, domain.ErrNotFound
	}

	evaluated, err := s.evaluator.Evaluate(ctx, sheet.WorkspaceID, cell.Content)
	if err != nil {
		return nil, err
	}
	cell.EvaluatedContent = evaluated
	return cell, nil
}

func (s *SpreadsheetService) resolveViewable(ctx context.Context, actorID, sheetID uuid.UUID) (*domain.Spreadsheet, error) {
	sheet, err := s.sheetRepo.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.guard.Require(ctx, actorID, sheet.WorkspaceID, authz.ViewWorkspace); err != nil {
		return nil, err
	}
	return sheet, nil
}
