package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorslot/internal/availability"
	"tutorslot/internal/booking"
	"tutorslot/internal/bundle"
	"tutorslot/internal/cancellation"
	"tutorslot/internal/config"
	"tutorslot/internal/db"
	"tutorslot/internal/dispute"
	"tutorslot/internal/logger"
	"tutorslot/internal/meeting"
	"tutorslot/internal/notify"
	"tutorslot/internal/server"
	"tutorslot/internal/user"
	"tutorslot/internal/wallet"
)

// @title TutorSlot API
// @version 1.0
// @description API for the tutoring session marketplace: bookings, escrow wallet, availability, bundles and disputes.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting TutorSlot application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	notifier := notify.New(cfg.RedisAddr, cfg.NotifyWebhookURL)
	defer notifier.Close()
	meetings := meeting.NewClient(cfg.MeetingProvisionerURL)

	userRepo := user.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	availabilityRepo := availability.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	bundleRepo := bundle.NewRepository(database)
	disputeRepo := dispute.NewRepository(database)

	userService := user.NewService(userRepo, cfg.JWTSecret)
	availabilityService := availability.NewService(
		availabilityRepo,
		userRepo,
		cfg.SessionDurationMinutes,
		cfg.SlotIncrementMinutes,
		cfg.MinLeadTimeMinutes,
	)

	windows := booking.Windows{
		Approval:     time.Duration(cfg.ApprovalWindowHours) * time.Hour,
		Payment:      time.Duration(cfg.PaymentWindowHours) * time.Hour,
		Confirmation: time.Duration(cfg.ConfirmationWindowHours) * time.Hour,
	}
	bookingService := booking.NewService(
		bookingRepo,
		availabilityService,
		walletRepo,
		userRepo,
		bundleRepo,
		notifier,
		meetings,
		booking.Options{
			Windows: windows,
			DefaultPolicy: cancellation.Policy{
				FreeCancelHours:         cfg.DefaultFreeCancelHours,
				LateCompensationPercent: cfg.DefaultLateCompensationPercent,
			},
		},
	)
	bundleService := bundle.NewService(bundleRepo, walletRepo, userRepo, bookingService, cfg.SessionDurationMinutes)
	disputeService := dispute.NewService(disputeRepo, bookingRepo, walletRepo, bundleRepo, notifier, windows.Confirmation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Start(ctx)

	sweeper := booking.NewSweeper(bookingService, time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	go sweeper.Run(ctx)

	srv := server.New(database, cfg, server.Handlers{
		User:         user.NewHandler(userService),
		Availability: availability.NewHandler(availabilityService),
		Booking:      booking.NewHandler(bookingService),
		Wallet:       wallet.NewHandler(walletRepo),
		Bundle:       bundle.NewHandler(bundleService),
		Dispute:      dispute.NewHandler(disputeService),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
