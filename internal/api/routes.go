// Package api exposes the forecasting operations over HTTP.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/services"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Forecast *services.ForecastService
	Training *services.TrainingService
	Trends   *services.TrendService
	Datasets *services.DatasetService
	Registry *forecast.Registry
	Logger   *slog.Logger
}

// SetupRoutes registers all endpoints on the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	h := newHandler(deps)

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", h.predict)
		v1.POST("/train", h.train)
		v1.POST("/upload", h.upload)

		models := v1.Group("/models")
		{
			models.GET("/versions", h.modelVersions)
			models.GET("/current", h.currentModel)
		}

		trends := v1.Group("/trends")
		{
			trends.GET("", h.recentTrends)
			trends.POST("/ingest", h.ingestTrends)
		}
	}
}
