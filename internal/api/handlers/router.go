package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/lockgazer/internal/service"
	"github.com/langchou/lockgazer/pkg/ws"
)

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(RequestID())

	// API 路由
	api := r.Group("/api")
	{
		// 房间
		api.GET("/units", h.ListUnits)

		// 密码
		api.GET("/locks/:lockId/pins", h.ListPins)
		api.POST("/pins", h.CreatePin)
		api.PATCH("/pins/:pinId", h.ChangePin)
		api.DELETE("/pins/:pinId", h.DeletePin)
		api.GET("/pins/:pinId/status", h.GetPinStatus)
		api.GET("/events", h.ListPinEvents)

		// 锁
		api.GET("/locks/:lockId/status", h.GetLockStatus)
		api.POST("/locks/:lockId/control", h.ControlLock)
		api.GET("/locks/:lockId/state", h.GetLockState)
		api.GET("/locks/:lockId/states", h.ListLockStates)
		api.GET("/locks/:lockId/snapshots", h.ListLockSnapshots)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// RequestID 生成或透传 X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
