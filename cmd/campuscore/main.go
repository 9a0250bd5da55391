package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campuscore/internal/auth"
	"campuscore/internal/config"
	"campuscore/internal/db"
	"campuscore/internal/httpserver"
	"campuscore/internal/logging"
	"campuscore/internal/students"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logging.New()

	cfg := config.Load()

	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn, "sql"); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	creds := auth.NewCredentials(cfg.BcryptCost)
	tokens := auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenLifetime)

	accountStore := auth.NewStore(dbConn)
	if err := accountStore.SeedAdmins(ctx, creds, cfg.AdminsPath); err != nil {
		log.Fatalf("seed admins: %v", err)
	}

	profileStore := students.NewStore(dbConn)
	svc := students.NewService(accountStore, profileStore, creds, logger)

	if cfg.ReconcileInterval > 0 {
		sweeper := students.NewSweeper(dbConn, logger, cfg.ReconcileGrace)
		go sweeper.Run(ctx, cfg.ReconcileInterval)
	}

	handler := httpserver.NewRouter(logger, tokens, creds, accountStore, svc)
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
