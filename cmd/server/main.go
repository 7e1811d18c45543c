package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "equiploan-backend/internal/api/http"
	"equiploan-backend/internal/config"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository/postgres"
	"equiploan-backend/internal/security"
	"equiploan-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting equiploan server")

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	store := postgres.NewStore(db)
	broadcaster := events.NewBroadcaster(cfg.Events.SubscriberBufferSize)
	defer broadcaster.Close()

	var emailSvc service.EmailService
	if cfg.Email.APIKey != "" && cfg.Email.DirectoryURL != "" {
		emailSvc = service.NewSendGridEmailService(cfg.Email.APIKey, cfg.Email.From, cfg.Email.FromName,
			service.NewHTTPMemberDirectory(cfg.Email.DirectoryURL))
	} else {
		logger.Warn("Email delivery not configured, notifications disabled")
		emailSvc = service.NewNoopEmailService()
	}

	services := service.NewServices(service.Repositories{
		EquipmentTypes: store.EquipmentTypeRepository,
		Equipment:      store.EquipmentRepository,
		Borrowings:     store.BorrowingRepository,
		Disbursements:  store.DisbursementRepository,
		Credits:        store.CreditRepository,
		Settings:       store.SettingsRepository,
	}, emailSvc, broadcaster)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := services.Settings.Load(startupCtx); err != nil {
		logger.Warn("Failed to load system settings, running on defaults", "error", err)
	}
	cancel()

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	apiServer := httpapi.NewServer(services, broadcaster, tokenManager)

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
