package main

import (
	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/internal/handlers"
	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/internal/services"
	"github.com/mkarlsen/userdeck/internal/utils"
	"github.com/mkarlsen/userdeck/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg          *config.Config
	emailQueue   services.EmailQueue
	emailWorker  *services.EmailWorker
	authHandler  *handlers.AuthHandler
	userHandler  *handlers.UserHandler
	auditHandler *handlers.AuditHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	services.InitAuditLogger(db)
	services.StartAuditCleanupScheduler(db, cfg.Audit.RetentionDays)

	emailService := services.NewEmailService(&cfg.SMTP)
	emailQueue := services.InitEmailQueue(cfg, emailService)

	var emailWorker *services.EmailWorker
	if emailQueue.IsAsync() {
		emailWorker = services.NewEmailWorker(&cfg.Redis, emailService)
		if err := emailWorker.Start(); err != nil {
			logger.Warnf("Failed to start email worker: %v", err)
			emailWorker = nil
		}
	}

	userService := services.NewUserService(db, &cfg.Auth, emailQueue)
	searchService := services.NewSearchService(db)
	auditService := services.NewAuditService(db)

	return &appServices{
		cfg:          cfg,
		emailQueue:   emailQueue,
		emailWorker:  emailWorker,
		authHandler:  handlers.NewAuthHandler(userService, &cfg.JWT),
		userHandler:  handlers.NewUserHandler(userService, searchService, &cfg.Server),
		auditHandler: handlers.NewAuditHandler(auditService),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	services.StopAuditCleanupScheduler()

	if s.emailWorker != nil {
		s.emailWorker.Stop()
	}
	if s.emailQueue != nil {
		s.emailQueue.Close()
	}
}
