package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// HealthResponse reports service readiness plus coarse host statistics.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Model     map[string]string `json:"model"`
	System    map[string]any    `json:"system"`
}

func (h *handler) health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime).String(),
		Model:     map[string]string{"status": "none"},
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"cpus":       runtime.NumCPU(),
		},
	}

	if _, meta := h.registry.Current(); meta != nil {
		resp.Model["status"] = "published"
		resp.Model["version"] = meta.Version
		resp.Model["trained_at"] = meta.TrainedAt.Format(time.RFC3339)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.System["memory_used_percent"] = vm.UsedPercent
		resp.System["memory_total_mb"] = vm.Total / (1 << 20)
	}

	c.JSON(http.StatusOK, resp)
}
