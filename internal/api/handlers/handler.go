package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/service"
	"github.com/langchou/lockgazer/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger      *zap.Logger
	pinService  *service.PinService
	lockService *service.LockService
	wsHub       *ws.Hub
	upgrader    websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	pinService *service.PinService,
	lockService *service.LockService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:      logger,
		pinService:  pinService,
		lockService: lockService,
		wsHub:       wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 来源由 CORS 层控制
			},
		},
	}
}

// writeError 按 Keyvox 错误类别映射状态码
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validationErr *keyvox.ValidationError
		apiErr        *keyvox.APIError
		shapeErr      *keyvox.ShapeError
		transportErr  *keyvox.TransportError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Keyvox API error", "code": apiErr.Code, "msg": apiErr.Msg})
	case errors.As(err, &shapeErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Unexpected Keyvox response", "reason": shapeErr.Reason})
	case errors.As(err, &transportErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Keyvox unreachable"})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// parseTimeParam 支持 RFC3339 与秒级时间戳，空值返回 nil
func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if sec, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := keyvox.FromEpochSeconds(sec)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func limitParam(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	return limit
}
