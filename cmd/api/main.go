package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/prescription-api/config"
	"github.com/jwalitptl/prescription-api/internal/handler"
	prescriptionHandler "github.com/jwalitptl/prescription-api/internal/handler/prescription"
	"github.com/jwalitptl/prescription-api/internal/middleware"
	"github.com/jwalitptl/prescription-api/internal/repository/postgres"
	"github.com/jwalitptl/prescription-api/internal/router"
	prescriptionService "github.com/jwalitptl/prescription-api/internal/service/prescription"
	"github.com/jwalitptl/prescription-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	// Initialize services
	prescriptionSvc := prescriptionService.NewService(
		prescriptionRepo,
		patientRepo,
		outboxRepo,
		time.Now,
		appLogger,
	)

	// Initialize handlers
	h := handler.NewHandler(db)
	prescriptionH := prescriptionHandler.NewHandler(prescriptionSvc, time.Now)

	// Setup router
	r := router.NewRouter(prescriptionH, h, router.RouterConfig{
		CORSConfig:     middleware.DefaultCORSConfig(),
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
