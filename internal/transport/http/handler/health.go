package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/limglenaldin/ai-insurance-agent/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

var disabled = dependencyStatus{OK: true, Message: "disabled"}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Insurance Document Search API",
		"status":  "healthy",
		"store":   h.app.Config.Store.Kind,
	})
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	indexLoaded := h.app.IndexLoaded()
	storeStatus := h.checkStore(ctx)
	redisStatus := h.checkRedis(ctx)
	mysqlStatus := h.checkMySQL(ctx)
	rmqStatus := h.checkRabbitMQ()

	allOK := indexLoaded && storeStatus.OK && redisStatus.OK && mysqlStatus.OK && rmqStatus.OK
	status, statusCode := "healthy", http.StatusOK
	if !allOK {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	model := ""
	if h.app.Embedder != nil {
		model = h.app.Embedder.ModelName()
	}

	c.JSON(statusCode, gin.H{
		"status":          status,
		"index_loaded":    indexLoaded,
		"store_reachable": storeStatus.OK,
		"embedding_model": model,
		"uptime_sec":      int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"store":    storeStatus,
			"redis":    redisStatus,
			"mysql":    mysqlStatus,
			"rabbitmq": rmqStatus,
		},
	})
}

func (h *HealthHandler) checkStore(ctx context.Context) dependencyStatus {
	if h.app.Store == nil {
		return dependencyStatus{OK: false, Message: "not loaded"}
	}
	if err := h.app.Store.Ping(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkMySQL(ctx context.Context) dependencyStatus {
	if h.app.MySQL == nil {
		return disabled
	}
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return disabled
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if !h.app.Config.RabbitMQ.Enabled {
		return disabled
	}
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
