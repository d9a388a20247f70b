package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks a backing store
type Pinger interface {
	Ping() error
}

// SystemHandler serves liveness and build information
type SystemHandler struct {
	BaseHandler
	db        Pinger
	name      string
	env       string
	startedAt time.Time
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(db Pinger, name, env string) *SystemHandler {
	return &SystemHandler{db: db, name: name, env: env, startedAt: time.Now()}
}

// RegisterRoutes mounts /system
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/system")
	g.GET("/ping", h.Ping)
	g.GET("/info", h.Info)
}

// Health reports 503 when the database does not answer
func (h *SystemHandler) Health(c *gin.Context) {
	now := time.Now().Format(time.RFC3339)
	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"time":     now,
			"database": "error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"time":     now,
		"database": "ok",
	})
}

func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}

func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, gin.H{
		"name":       h.name,
		"env":        h.env,
		"go_version": runtime.Version(),
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
	})
}
