package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accessdomain "opsdesk/backend/internal/access/domain"
	accessrepo "opsdesk/backend/internal/access/repository"
	"opsdesk/backend/internal/audit"
	auditrepo "opsdesk/backend/internal/audit/repository"
	"opsdesk/backend/internal/authclient/gotrue"
	"opsdesk/backend/internal/config"
	"opsdesk/backend/internal/db"
	employeerepo "opsdesk/backend/internal/employee/repository"
	"opsdesk/backend/internal/identitystate"
	invitationrepo "opsdesk/backend/internal/invitation/repository"
	invitationservice "opsdesk/backend/internal/invitation/service"
	"opsdesk/backend/internal/profile"
	profileservice "opsdesk/backend/internal/profile/service"
	"opsdesk/backend/internal/server"
	"opsdesk/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "opsdesk-identity", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	employees := employeerepo.NewPostgresRepository(conn)
	access := accessrepo.NewPostgresRepository(conn)
	invitations := invitationrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))

	cache := profile.NewCache()
	defaultRole := accessdomain.NormalizeRole(accessdomain.Role(cfg.DefaultRole))
	resolver := profileservice.NewResolver(
		employees,
		access,
		cache,
		cfg.BootstrapAdminList(),
		cfg.BootstrapAdminName,
		defaultRole,
		auditLogger,
	)

	auth := gotrue.NewClient(cfg.AuthURL, cfg.AuthAPIKey, cfg.AuthJWTSecret, cfg.AuthRefreshToken, cfg.PollInterval())

	state := identitystate.New(auth, resolver, cache, defaultRole, auditLogger)
	state.Start(ctx)
	defer state.Close()

	inviteSvc := invitationservice.NewService(invitations, auditLogger)

	srv := server.New(state, inviteSvc)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
