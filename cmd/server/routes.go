package main

import (
	"github.com/gin-gonic/gin"
	"github.com/mkarlsen/userdeck/internal/middleware"
	"github.com/mkarlsen/userdeck/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Slow down credential stuffing against the public auth endpoints
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "userdeck"})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
		}

		// Email verification is public: the token proves control of the inbox
		api.POST("/users/:id/verify-email", svc.userHandler.VerifyEmail)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)

			// Directory search is gated to staff
			staff := protected.Group("", middleware.StaffRequired())
			{
				staff.GET("/users", svc.userHandler.List)
				staff.POST("/users/search", svc.userHandler.Search)
				staff.GET("/users/:id", svc.userHandler.GetByID)
			}

			// Account administration
			admin := protected.Group("", middleware.AdminRequired())
			{
				admin.PUT("/users/:id", svc.userHandler.Update)
				admin.DELETE("/users/:id", svc.userHandler.Delete)
				admin.POST("/users/:id/unlock", svc.userHandler.Unlock)
				admin.POST("/users/:id/reset-password", svc.userHandler.ResetPassword)
				admin.POST("/users/:id/anonymize", svc.userHandler.Anonymize)
				admin.GET("/audit-logs", svc.auditHandler.List)
			}
		}
	}
}
