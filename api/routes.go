package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/outboundhq/senderstack/api/handlers"
	"github.com/outboundhq/senderstack/api/middleware"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(middleware.CORSMiddleware())

	apiHandlers := handlers.InitHandlers(repos, s)

	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-SENDERSTACK-API-KEY",
		ValidAPIKey: apikey,
	})

	v1 := r.Group("/v1")
	v1.Use(apiKeyMiddleware)
	v1.Use(middleware.TracingMiddleware())
	{
		syncGroup := v1.Group("/sync")
		{
			syncGroup.POST("/trigger", apiHandlers.Sync.TriggerSync())
			syncGroup.GET("/jobs", apiHandlers.Jobs.ListJobs())
			syncGroup.GET("/jobs/:id", apiHandlers.Jobs.GetJob())
			syncGroup.GET("/progress/:id", apiHandlers.Jobs.GetProgress())
		}

		v1.GET("/workspaces", apiHandlers.Workspaces.ListWorkspaces())
		v1.GET("/workspaces/:name", apiHandlers.Workspaces.GetWorkspace())

		reportsGroup := v1.Group("/reports")
		{
			reportsGroup.POST("/billing", apiHandlers.Reports.GenerateBillingReport())
		}
	}
}
