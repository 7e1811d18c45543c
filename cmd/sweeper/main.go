package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equiploan-backend/internal/config"
	"equiploan-backend/internal/events"
	"equiploan-backend/internal/jobs"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository/postgres"
	"equiploan-backend/internal/scheduler"
	"equiploan-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	runOnce := flag.Bool("run-once", false, "run the overdue sweep once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting equiploan sweeper", "runOnce", *runOnce)

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

	jobRunner := jobs.NewJobRunner(store.BorrowingRepository, emailSvc, broadcaster)

	if *runOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		notified, err := jobRunner.SweepOverdue(ctx)
		if err != nil {
			logger.Error("Overdue sweep failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Overdue sweep complete", "notified", notified)
		return
	}

	sched := scheduler.New(jobRunner)
	if err := sched.RegisterJobs(&cfg.Scheduler); err != nil {
		logger.Error("Failed to register jobs", "error", err)
		os.Exit(1)
	}
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
}
