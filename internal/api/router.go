// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"difal-service/internal/api/handlers"
	"difal-service/internal/api/middleware"
	"difal-service/internal/core/difal"
	"difal-service/internal/metrics"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Logger   *zap.Logger
	Service  difal.Service
	Defaults difal.Config
	Auth     middleware.AuthOptions
	Metrics  *metrics.Metrics
}

// Setup builds the gin engine with every route of the service.
func Setup(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	difalHandler := handlers.NewDifalHandler(d.Service, d.Defaults)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(d.Logger, d.Metrics), middleware.Recovery(d.Logger))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Auth(d.Auth))
	{
		apiV1.POST("/difal/calculate", difalHandler.HandleCalculate)
		apiV1.POST("/difal/export", difalHandler.HandleExport)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": "difal-service"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
