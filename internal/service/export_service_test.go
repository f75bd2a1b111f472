package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice/internal/domain"
)

func newExportService(env *testEnv) *ExportService {
	return NewExportService(env.workspaces, env.sheets, env.guard)
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = content
	}
	return files
}

func TestExportArchiveContents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newExportService(env)

	admin := env.addUser(t, "admin@example.com", "admin")
	ws := env.addWorkspace(t, "Team Alpha", admin)

	budget := env.addSheet(t, ws, "Budget 2026")
	main := env.addSheet(t, ws, "Main")
	_, err := env.sheets.UpsertCell(ctx, &domain.Cell{SpreadsheetID: main.ID, Row: 0, Column: 0, Content: "hello"})
	require.NoError(t, err)
	_, err = env.sheets.UpsertCell(ctx, &domain.Cell{SpreadsheetID: main.ID, Row: 1, Column: 2, Content: "=['Budget 2026']"})
	require.NoError(t, err)

	result, err := svc.Export(ctx, admin.ID, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "export_Team_Alpha.zip", result.Filename)

	files := readZip(t, result.Data)
	require.Contains(t, files, "Budget_2026.txt")
	require.Contains(t, files, "Main.txt")
	require.Contains(t, files, "export_log.json")

	mainTxt := string(files["Main.txt"])
	assert.Contains(t, mainTxt, "Spreadsheet Name: Main")
	assert.Contains(t, mainTxt, "Cell (0,0): hello")
	assert.Contains(t, mainTxt, "Cell (1,2): =['Budget 2026']")

	var log []map[string]any
	require.NoError(t, json.Unmarshal(files["export_log.json"], &log))
	require.Len(t, log, 1)
	assert.Equal(t, "Budget 2026", log[0]["referenced_name"])
	assert.Equal(t, "OK", log[0]["status"])
	assert.Equal(t, budget.ID.String(), log[0]["referenced_sheet_id"])
}

// References to names that only exist in another workspace come out as
// NOT_FOUND with no identifier, so the log never carries foreign data.
func TestExportLogStaysInsideWorkspace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newExportService(env)

	alice := env.addUser(t, "alice@example.com", "alice")
	bob := env.addUser(t, "bob@example.com", "bob")
	wsA := env.addWorkspace(t, "Alpha", alice)
	wsB := env.addWorkspace(t, "Beta", bob)

	sheetA := env.addSheet(t, wsA, "Main")
	foreign := env.addSheet(t, wsB, "Payroll")
	_, err := env.sheets.UpsertCell(ctx, &domain.Cell{SpreadsheetID: sheetA.ID, Row: 0, Column: 0, Content: "=['Payroll']"})
	require.NoError(t, err)

	result, err := svc.Export(ctx, alice.ID, wsA.ID)
	require.NoError(t, err)

	files := readZip(t, result.Data)
	var log []map[string]any
	require.NoError(t, json.Unmarshal(files["export_log.json"], &log))
	require.Len(t, log, 1)
	assert.Equal(t, "NOT_FOUND", log[0]["status"])
	assert.NotContains(t, log[0], "referenced_sheet_id")
	assert.NotContains(t, string(files["export_log.json"]), foreign.ID.String())
}

func TestExportRequiresMembership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newExportService(env)

	owner := env.addUser(t, "owner@example.com", "owner")
	viewer := env.addUser(t, "viewer@example.com", "viewer")
	stranger := env.addUser(t, "stranger@example.com", "stranger")
	ws := env.addWorkspace(t, "Team", owner)
	env.addMember(t, ws, viewer, domain.RoleViewer)
	env.addSheet(t, ws, "Main")

	_, err := svc.Export(ctx, stranger.ID, ws.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Any member may export, viewers included.
	result, err := svc.Export(ctx, viewer.ID, ws.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
}
