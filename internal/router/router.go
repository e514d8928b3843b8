package router

import (
	"net/http"

	"contentgen/internal/config"
	"contentgen/internal/handler"
	"contentgen/internal/middleware"
	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health check.
const Version = "1.0.0"

// Services are the application services the routes are served by.
type Services struct {
	Orchestrator *service.Orchestrator
	Approvals    *service.ApprovalGate
	Costs        *service.CostService
	Samples      *service.SampleService
	Models       *service.ModelService
}

// SetupRouter builds the HTTP engine.
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	logger logrus.FieldLogger,
	svc Services,
) *gin.Engine {
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.RegisterBindingValidators()

	r := gin.New()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(&cfg.CORS))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "content generation orchestrator API",
			"version": Version,
		})
	})

	taskHandler := handler.NewTaskHandler(svc.Orchestrator, svc.Approvals, svc.Costs)
	sampleHandler := handler.NewSampleHandler(svc.Samples)
	modelHandler := handler.NewModelHandler(svc.Models)
	reviewHandler := handler.NewReviewHandler(svc.Orchestrator)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtManager))
	{
		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks", taskHandler.ListTasks)
		api.GET("/tasks/:task_id", taskHandler.GetTask)
		api.POST("/tasks/:task_id/cancel", taskHandler.CancelTask)
		api.GET("/tasks/:task_id/costs", taskHandler.Costs)
		api.GET("/tasks/:task_id/style_checks", taskHandler.StyleChecks)
		api.GET("/tasks/:task_id/approvals", taskHandler.Approvals)
		api.POST("/estimate", taskHandler.Estimate)
		api.GET("/budget", taskHandler.Budget)

		api.GET("/samples", sampleHandler.ListSamples)
		api.POST("/samples", sampleHandler.CreateSample)
		api.GET("/samples/search", sampleHandler.Search)
		api.GET("/samples/:id", sampleHandler.GetSample)
		api.PUT("/samples/:id/active", sampleHandler.SetActive)

		api.GET("/models", modelHandler.GetModels)

		review := api.Group("")
		review.Use(middleware.ReviewerMiddleware())
		{
			review.POST("/tasks/:task_id/decision", taskHandler.Decide)
			review.GET("/review/queue", reviewHandler.Queue)
		}
	}

	return r
}
