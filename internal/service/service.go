package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/langchou/lockgazer/internal/models"
)

type requestIDKey struct{}

// WithRequestID 在 context 中携带请求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 读取请求 ID，没有时生成新的
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// EventStore 审计记录存储
type EventStore interface {
	Create(ctx context.Context, e *models.PinEvent) error
	List(ctx context.Context, pinID string, limit int) ([]*models.PinEvent, error)
}

// Broadcaster 推送实时消息
type Broadcaster interface {
	BroadcastMessage(msgType string, data interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastMessage(string, interface{}) {}
