package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/middleware"
	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/services"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

// maxUploadBytes caps uploaded dataset files at 32 MiB.
const maxUploadBytes = 32 << 20

type handler struct {
	forecastSvc *services.ForecastService
	trainingSvc *services.TrainingService
	trendSvc    *services.TrendService
	datasetSvc  *services.DatasetService
	registry    *forecast.Registry
	logger      *slog.Logger
}

func newHandler(deps Dependencies) *handler {
	return &handler{
		forecastSvc: deps.Forecast,
		trainingSvc: deps.Training,
		trendSvc:    deps.Trends,
		datasetSvc:  deps.Datasets,
		registry:    deps.Registry,
		logger:      deps.Logger,
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation
// problems are the caller's fault, persistence problems are ours.
func (h *handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if utils.IsValidationError(err) {
		status = http.StatusBadRequest
	}
	if status >= 500 {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) predict(c *gin.Context) {
	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Level != "" && req.Level != models.LevelSKU && req.Level != models.LevelAttribute {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be \"sku\" or \"attribute\""})
		return
	}

	requestID := c.GetString(middleware.RequestIDKey)
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	log := h.logger.With("request_id", requestID)
	log.Info("prediction requested", "level", req.Level, "horizon_days", req.HorizonDays)

	resp, err := h.forecastSvc.Predict(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) train(c *gin.Context) {
	var req models.TrainRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	resp, err := h.trainingSvc.Train(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp, err := h.datasetSvc.Upload(c.Request.Context(), fileHeader.Filename, content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) modelVersions(c *gin.Context) {
	versions, err := h.registry.Versions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *handler) currentModel(c *gin.Context) {
	_, meta := h.registry.Current()
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no model published"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *handler) recentTrends(c *gin.Context) {
	region := c.Query("region")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := h.trendSvc.Recent(c.Request.Context(), region, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"region": region, "count": len(records), "trends": records})
}

type ingestTrendsRequest struct {
	Records []models.TrendRecord `json:"records"`
	Mock    bool                 `json:"mock"`
	Region  string               `json:"region"`
	Count   int                  `json:"count"`
}

func (h *handler) ingestTrends(c *gin.Context) {
	var req ingestTrendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	records := req.Records
	if req.Mock {
		records = h.trendSvc.GenerateMock(req.Region, req.Count)
	}

	count, err := h.trendSvc.Ingest(c.Request.Context(), records)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": count})
}
