package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
)

// In-memory repositories for service tests. The invitation fake holds one
// mutex across the whole Resolve sequence, mirroring the row lock the
// postgres implementation takes.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeWorkspaceRepo struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*domain.Workspace
	members    map[string]*domain.Membership
	users      *fakeUserRepo
}

func newFakeWorkspaceRepo(users *fakeUserRepo) *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{
		workspaces: map[uuid.UUID]*domain.Workspace{},
		members:    map[string]*domain.Membership{},
		users:      users,
	}
}

func memberKey(workspaceID, userID uuid.UUID) string {
	return workspaceID.String() + "/" + userID.String()
}

func (r *fakeWorkspaceRepo) Create(_ context.Context, ws *domain.Workspace, owner *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wsCp, mCp := *ws, *owner
	r.workspaces[ws.ID] = &wsCp
	r.members[memberKey(owner.WorkspaceID, owner.UserID)] = &mCp
	return nil
}

func (r *fakeWorkspaceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[id]; ok {
		cp := *ws
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Workspace
	for _, m := range r.members {
		if m.UserID == userID {
			if ws, ok := r.workspaces[m.WorkspaceID]; ok {
				out = append(out, *ws)
			}
		}
	}
	return out, nil
}

func (r *fakeWorkspaceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, id)
	for k, m := range r.members {
		if m.WorkspaceID == id {
			delete(r.members, k)
		}
	}
	return nil
}

func (r *fakeWorkspaceRepo) AddMember(_ context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.members[memberKey(m.WorkspaceID, m.UserID)] = &cp
	return nil
}

func (r *fakeWorkspaceRepo) UpdateMemberRole(_ context.Context, workspaceID, userID uuid.UUID, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberKey(workspaceID, userID)]
	if !ok {
		return false, nil
	}
	m.Role = role
	return true, nil
}

func (r *fakeWorkspaceRepo) RemoveMember(_ context.Context, workspaceID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, memberKey(workspaceID, userID))
	return nil
}

func (r *fakeWorkspaceRepo) GetMember(_ context.Context, workspaceID, userID uuid.UUID) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[memberKey(workspaceID, userID)]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) GetMemberByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*domain.Membership, error) {
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	return r.GetMember(ctx, workspaceID, user.ID)
}

func (r *fakeWorkspaceRepo) ListMembers(_ context.Context, workspaceID uuid.UUID) ([]domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Membership
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *fakeWorkspaceRepo) CountAdmins(_ context.Context, workspaceID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.Role == domain.RoleAdmin {
			count++
		}
	}
	return count, nil
}

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*domain.Invitation
	workspaces  *fakeWorkspaceRepo
}

func newFakeInvitationRepo(workspaces *fakeWorkspaceRepo) *fakeInvitationRepo {
	return &fakeInvitationRepo{
		invitations: map[uuid.UUID]*domain.Invitation{},
		workspaces:  workspaces,
	}
}

func (r *fakeInvitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invitations[inv.ID] = &cp
	return nil
}

func (r *fakeInvitationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invitations[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeInvitationRepo) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range r.invitations {
		if inv.WorkspaceID == workspaceID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) ListPendingByEmail(_ context.Context, email string) ([]domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range r.invitations {
		if inv.Status == domain.InvitationPending && strings.EqualFold(inv.Email, email) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) RevisePending(_ context.Context, id uuid.UUID, role domain.Role, email *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Role = role
	if email != nil {
		inv.Email = *email
	}
	inv.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeInvitationRepo) TransitionPending(_ context.Context, id uuid.UUID, to domain.InvitationStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.Status != domain.InvitationPending {
		return false, nil
	}
	inv.Status = to
	inv.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeInvitationRepo) Resolve(ctx context.Context, id uuid.UUID, user *domain.User, to domain.InvitationStatus) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, domain.ErrNotFound
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrAlreadyActioned
	}

	inv.Status = to
	inv.UpdatedAt = time.Now()

	if to != domain.InvitationAccepted {
		return nil, nil
	}

	existing, err := r.workspaces.GetMember(ctx, inv.WorkspaceID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	member := &domain.Membership{
		WorkspaceID: inv.WorkspaceID,
		UserID:      user.ID,
		Role:        inv.Role,
		JoinedAt:    time.Now(),
	}
	if err := r.workspaces.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

type fakeSpreadsheetRepo struct {
	mu     sync.Mutex
	sheets map[uuid.UUID]*domain.Spreadsheet
	cells  map[string]*domain.Cell
}

func newFakeSpreadsheetRepo() *fakeSpreadsheetRepo {
	return &fakeSpreadsheetRepo{
		sheets: map[uuid.UUID]*domain.Spreadsheet{},
		cells:  map[string]*domain.Cell{},
	}
}

func cellKey(sheetID uuid.UUID, row, column int) string {
	return fmt.Sprintf("%s/%d/%d", sheetID, row, column)
}

func (r *fakeSpreadsheetRepo) Create(_ context.Context, s *domain.Spreadsheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sheets[s.ID] = &cp
	return nil
}

func (r *fakeSpreadsheetRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Spreadsheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sheets[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSpreadsheetRepo) GetByWorkspaceAndName(_ context.Context, workspaceID uuid.UUID, name string) (*domain.Spreadsheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sheets {
		if s.WorkspaceID == workspaceID && strings.EqualFold(s.Name, name) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSpreadsheetRepo) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]domain.Spreadsheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Spreadsheet
	for _, s := range r.sheets {
		if s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSpreadsheetRepo) SetFlag(_ context.Context, id uuid.UUID, flag *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sheets[id]; ok {
		s.Flag = flag
	}
	return nil
}

func (r *fakeSpreadsheetRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sheets, id)
	for k, c := range r.cells {
		if c.SpreadsheetID == id {
			delete(r.cells, k)
		}
	}
	return nil
}

func (r *fakeSpreadsheetRepo) UpsertCell(_ context.Context, cell *domain.Cell) (*domain.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cellKey(cell.SpreadsheetID, cell.Row, cell.Column)
	if existing, ok := r.cells[key]; ok {
		existing.Content = cell.Content
		cp := *existing
		return &cp, nil
	}
	cp := *cell
	r.cells[key] = &cp
	out := cp
	return &out, nil
}

func (r *fakeSpreadsheetRepo) GetCell(_ context.Context, spreadsheetID uuid.UUID, row, column int) (*domain.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cells[cellKey(spreadsheetID, row, column)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSpreadsheetRepo) ListCells(_ context.Context, spreadsheetID uuid.UUID) ([]domain.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Cell
	for _, c := range r.cells {
		if c.SpreadsheetID == spreadsheetID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}
