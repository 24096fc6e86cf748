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

	"github.com/biodash/vitals-api/internal/config"
	"github.com/biodash/vitals-api/internal/email"
	"github.com/biodash/vitals-api/internal/filestore"
	analysisHandler "github.com/biodash/vitals-api/internal/handler/analysis"
	authHandler "github.com/biodash/vitals-api/internal/handler/auth"
	doctorHandler "github.com/biodash/vitals-api/internal/handler/doctor"
	measurementHandler "github.com/biodash/vitals-api/internal/handler/measurement"
	patientHandler "github.com/biodash/vitals-api/internal/handler/patient"
	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/repository/postgres"
	"github.com/biodash/vitals-api/internal/router"
	accessService "github.com/biodash/vitals-api/internal/service/access"
	analysisService "github.com/biodash/vitals-api/internal/service/analysis"
	authService "github.com/biodash/vitals-api/internal/service/auth"
	doctorService "github.com/biodash/vitals-api/internal/service/doctor"
	measurementService "github.com/biodash/vitals-api/internal/service/measurement"
	patientService "github.com/biodash/vitals-api/internal/service/patient"
	"github.com/biodash/vitals-api/pkg/auth"
	"github.com/biodash/vitals-api/pkg/metrics"
	"github.com/biodash/vitals-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	rosterRepo := postgres.NewRosterRepository(db)
	measurementRepo := postgres.NewMeasurementRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	photos, err := filestore.New(cfg.Photos.Dir, cfg.Photos.ThumbnailSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize photo store")
	}

	appMetrics := metrics.NewMetrics("vitals", "api")
	hasher := security.NewBcryptHasher(0)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TokenLifetime)
	mailer := email.NewSMTPSender(cfg.SMTP)
	logger := log.Logger

	accessSvc := accessService.NewService(rosterRepo)
	authSvc := authService.NewService(doctorRepo, patientRepo, jwtSvc, hasher)
	patientSvc := patientService.NewService(patientRepo, rosterRepo, measurementRepo, outboxRepo,
		accessSvc, hasher, &logger)
	doctorSvc := doctorService.NewService(doctorRepo, patientSvc, hasher, mailer, photos, &logger)
	measurementSvc := measurementService.NewService(measurementRepo, outboxRepo, appMetrics, &logger)
	analysisSvc := analysisService.NewService(measurementRepo, patientRepo, rosterRepo, outboxRepo,
		appMetrics, &logger)

	authMW := middleware.NewAuthMiddleware(authSvc)
	engine := router.New(cfg, &logger, authMW, router.Handlers{
		Auth:        authHandler.NewHandler(authSvc),
		Doctor:      doctorHandler.NewHandler(doctorSvc, accessSvc),
		Patient:     patientHandler.NewHandler(patientSvc, accessSvc),
		Measurement: measurementHandler.NewHandler(measurementSvc, accessSvc),
		Analysis:    analysisHandler.NewHandler(analysisSvc, accessSvc),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
