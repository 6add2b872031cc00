package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assetflow/backend/internal/api"
	"github.com/assetflow/backend/internal/auth"
	"github.com/assetflow/backend/internal/billing"
	"github.com/assetflow/backend/internal/config"
	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/middleware"
	"github.com/assetflow/backend/internal/notification"
	"github.com/assetflow/backend/internal/rbac"
	"github.com/assetflow/backend/internal/repository"
	"github.com/assetflow/backend/internal/scheduler"
	"github.com/assetflow/backend/internal/sensor"
	"github.com/assetflow/backend/internal/timesheet"
	"github.com/assetflow/backend/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := database.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	// Repositories.
	assets := repository.NewAssetRepository()
	loans := repository.NewLoanRepository()
	rentals := repository.NewRentalRepository()
	orders := repository.NewWorkOrderRepository()
	approvals := repository.NewApprovalRepository()
	timesheets := repository.NewTimesheetRepository()
	billingRepo := repository.NewBillingRepository()
	sensors := repository.NewSensorRepository()
	notifications := repository.NewNotificationRepository()
	users := repository.NewUserRepository()
	clients := repository.NewClientRepository()
	maintenance := repository.NewMaintenanceRepository()

	// Shared infrastructure.
	bus := events.NewBus()
	hub := notification.NewHub()
	resolver := rbac.NewResolver(db, users)
	authSvc := auth.NewService(db, users, resolver, cfg.Auth.JWTSecret, cfg.Auth.ExpirationHours)

	// Domain services.
	lifecycleSvc := lifecycle.NewService(db, assets, nil)
	approvalSvc := workflow.NewApprovalService(db, approvals, orders, loans, bus)
	// Constructors bind themselves as approval executors.
	transitions := workflow.NewTransitionGate(lifecycleSvc, approvalSvc, bus)
	conversions := workflow.NewConversionService(db, assets, approvalSvc, lifecycleSvc)
	loanSvc := workflow.NewLoanService(db, loans, assets, lifecycleSvc, bus)
	rentalSvc := workflow.NewRentalService(db, rentals, assets, clients, lifecycleSvc, bus)
	workOrderSvc := workflow.NewWorkOrderService(db, orders, assets, bus)
	timesheetSvc := timesheet.NewService(db, timesheets, rentals, users, bus)
	billingSvc := billing.NewService(db, billingRepo, rentals, timesheets, bus, cfg.Billing.DueDays)
	sensorEngine := sensor.NewEngine(db, sensors, bus, time.Duration(cfg.Sensor.AlertDelaySeconds)*time.Second)
	notifier := notification.NewService(db, notifications, hub, bus)

	// Background workers share one cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Run(ctx)

	if cfg.Redis.Addr != "" {
		relay := notification.NewRedisRelay(cfg.Redis.Addr, bus, hub)
		go relay.Run(ctx)
		defer relay.Close()
	}

	sched := scheduler.New()
	sweeps := scheduler.NewSweeps(db, loans, rentals, maintenance, loanSvc, rentalSvc, notifier)
	sweeps.RegisterAll(sched)
	go sched.Run(ctx)

	server := &api.Server{
		DB:            db,
		Auth:          authSvc,
		Resolver:      resolver,
		Assets:        assets,
		Maintenance:   maintenance,
		Lifecycle:     lifecycleSvc,
		Transitions:   transitions,
		Conversions:   conversions,
		Loans:         loanSvc,
		Rentals:       rentalSvc,
		WorkOrders:    workOrderSvc,
		Approvals:     approvalSvc,
		Timesheets:    timesheetSvc,
		Billing:       billingSvc,
		Sensors:       sensorEngine,
		Notifications: notifier,
		Hub:           hub,
		Scheduler:     sched,
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		MaxCallsPerMinute: cfg.RateLimit.PerMinute,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Router(limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (env=%s)", cfg.Addr(), cfg.Server.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutdown signal received, draining...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
