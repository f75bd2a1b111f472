package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/config"
	"github.com/latticehq/lattice/internal/database"
	"github.com/latticehq/lattice/internal/formula"
	postgresrepo "github.com/latticehq/lattice/internal/repository/postgres"
	"github.com/latticehq/lattice/internal/service"
	"github.com/latticehq/lattice/internal/transport/http/handlers"
	"github.com/latticehq/lattice/internal/transport/http/middleware"
	"github.com/latticehq/lattice/internal/transport/ws"
)

func main() {
	log := logrus.New()
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := database.Migrate(context.Background(), pool); err != nil {
		log.Fatal(err)
	}
	log.Info("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	workspaceRepo := postgresrepo.NewWorkspaceRepo(pool)
	invitationRepo := postgresrepo.NewInvitationRepo(pool)
	sheetRepo := postgresrepo.NewSpreadsheetRepo(pool)

	// Authorization guard; every service consults it before touching data.
	guard := authz.NewGuard(workspaceRepo)

	// Live cell events
	hub := ws.NewHub(func(ctx context.Context, userID, workspaceID uuid.UUID) bool {
		ok, err := guard.Can(ctx, userID, workspaceID, authz.ViewWorkspace)
		return err == nil && ok
	}, log)
	go hub.Run()

	// Formula engine
	fetcher := formula.NewFetcher(cfg.FetchAllowedHosts, cfg.FetchTimeout)
	evaluator := formula.NewEvaluator(fetcher, sheetRepo, log)

	// Services
	authService := service.NewAuthService(userRepo, workspaceRepo, cfg.JWTSecret)
	workspaceService := service.NewWorkspaceService(workspaceRepo, userRepo, guard)
	invitationService := service.NewInvitationService(invitationRepo, workspaceRepo, userRepo, guard)
	sheetService := service.NewSpreadsheetService(sheetRepo, guard, evaluator, ws.NewNotifier(hub))
	exportService := service.NewExportService(workspaceRepo, sheetRepo, guard)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService, log)
	invitationHandler := handlers.NewInvitationHandler(invitationService, log)
	sheetHandler := handlers.NewSpreadsheetHandler(sheetService, log)
	exportHandler := handlers.NewExportHandler(exportService, log)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Workspaces
	mux.Handle("POST /api/v1/workspaces", auth(http.HandlerFunc(workspaceHandler.Create)))
	mux.Handle("GET /api/v1/workspaces", auth(http.HandlerFunc(workspaceHandler.List)))
	mux.Handle("GET /api/v1/workspaces/{id}", auth(http.HandlerFunc(workspaceHandler.Get)))
	mux.Handle("DELETE /api/v1/workspaces/{id}", auth(http.HandlerFunc(workspaceHandler.Delete)))

	// Protected - Workspace Members
	mux.Handle("POST /api/v1/workspaces/{id}/members", auth(http.HandlerFunc(workspaceHandler.AddMember)))
	mux.Handle("GET /api/v1/workspaces/{id}/members", auth(http.HandlerFunc(workspaceHandler.ListMembers)))
	mux.Handle("PATCH /api/v1/workspaces/{id}/members/{uid}", auth(http.HandlerFunc(workspaceHandler.ChangeRole)))
	mux.Handle("DELETE /api/v1/workspaces/{id}/members/{uid}", auth(http.HandlerFunc(workspaceHandler.RemoveMember)))

	// Protected - Invitations
	mux.Handle("POST /api/v1/workspaces/{id}/invitations", auth(http.HandlerFunc(invitationHandler.Invite)))
	mux.Handle("GET /api/v1/workspaces/{id}/invitations", auth(http.HandlerFunc(invitationHandler.ListByWorkspace)))
	mux.Handle("GET /api/v1/invitations", auth(http.HandlerFunc(invitationHandler.ListMine)))
	mux.Handle("PATCH /api/v1/invitations/{id}", auth(http.HandlerFunc(invitationHandler.Revise)))
	mux.Handle("POST /api/v1/invitations/{id}/accept", auth(http.HandlerFunc(invitationHandler.Accept)))
	mux.Handle("POST /api/v1/invitations/{id}/decline", auth(http.HandlerFunc(invitationHandler.Decline)))
	mux.Handle("POST /api/v1/invitations/{id}/revoke", auth(http.HandlerFunc(invitationHandler.Revoke)))

	// Protected - Spreadsheets & Cells
	mux.Handle("POST /api/v1/workspaces/{id}/spreadsheets", auth(http.HandlerFunc(sheetHandler.Create)))
	mux.Handle("GET /api/v1/workspaces/{id}/spreadsheets", auth(http.HandlerFunc(sheetHandler.ListByWorkspace)))
	mux.Handle("GET /api/v1/spreadsheets/{id}", auth(http.HandlerFunc(sheetHandler.Get)))
	mux.Handle("DELETE /api/v1/spreadsheets/{id}", auth(http.HandlerFunc(sheetHandler.Delete)))
	mux.Handle("PATCH /api/v1/spreadsheets/{id}/flag", auth(http.HandlerFunc(sheetHandler.SetFlag)))
	mux.Handle("PUT /api/v1/spreadsheets/{id}/cells", auth(http.HandlerFunc(sheetHandler.UpsertCell)))
	mux.Handle("GET /api/v1/spreadsheets/{id}/cells", auth(http.HandlerFunc(sheetHandler.ListCells)))
	mux.Handle("GET /api/v1/spreadsheets/{id}/cells/{row}/{col}", auth(http.HandlerFunc(sheetHandler.GetCell)))

	// Protected - Export
	mux.Handle("GET /api/v1/workspaces/{id}/export", auth(http.HandlerFunc(exportHandler.Export)))

	// WebSocket endpoint sits outside the logging wrapper so the upgrade
	// keeps the raw ResponseWriter.
	root := http.NewServeMux()
	root.Handle("/ws", ws.ServeWS(hub, cfg.JWTSecret))
	root.Handle("/", middleware.Logging(log)(mux))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Infof("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(root)))
}
