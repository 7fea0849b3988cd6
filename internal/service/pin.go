package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/models"
	"github.com/langchou/lockgazer/pkg/ws"
)

// PinAPI 密码相关的 Keyvox 接口
type PinAPI interface {
	ListUnits(ctx context.Context) ([]keyvox.Unit, error)
	ListLockPinPage(ctx context.Context, q keyvox.PinListQuery) (*keyvox.PinList, error)
	CreateLockPin(ctx context.Context, req keyvox.CreatePinRequest) (*keyvox.LockPin, error)
	ChangeLockPin(ctx context.Context, req keyvox.ChangePinRequest) error
	DeleteLockPin(ctx context.Context, pinID string) error
	GetLockPinStatus(ctx context.Context, pinID string) (*keyvox.LockPinStatus, error)
}

// PinService 房间与密码服务
type PinService struct {
	logger *zap.Logger
	api    PinAPI
	events EventStore
	hub    Broadcaster
}

// NewPinService 创建密码服务，hub 可为 nil
func NewPinService(logger *zap.Logger, api PinAPI, events EventStore, hub Broadcaster) *PinService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	return &PinService{
		logger: logger,
		api:    api,
		events: events,
		hub:    hub,
	}
}

// ListUnits 房间列表
func (s *PinService) ListUnits(ctx context.Context) ([]keyvox.Unit, error) {
	return s.api.ListUnits(ctx)
}

// ListPins 密码列表
func (s *PinService) ListPins(ctx context.Context, q keyvox.PinListQuery) (*keyvox.PinList, error) {
	return s.api.ListLockPinPage(ctx, q)
}

// PinStatus 密码状态
func (s *PinService) PinStatus(ctx context.Context, pinID string) (*keyvox.LockPinStatus, error) {
	return s.api.GetLockPinStatus(ctx, pinID)
}

// CreatePin 创建密码并记录审计
func (s *PinService) CreatePin(ctx context.Context, req keyvox.CreatePinRequest) (*keyvox.LockPin, error) {
	pin, err := s.api.CreateLockPin(ctx, req)

	event := &models.PinEvent{
		Action: models.ActionCreatePin,
		UnitID: req.UnitID,
	}
	if pin != nil {
		event.PinID = pin.PinID
		event.Detail = describeWindow(pin)
	}
	s.record(ctx, event, err)

	if err != nil {
		return nil, err
	}
	return pin, nil
}

// ChangePin 修改密码并记录审计
func (s *PinService) ChangePin(ctx context.Context, req keyvox.ChangePinRequest) error {
	err := s.api.ChangeLockPin(ctx, req)
	s.record(ctx, &models.PinEvent{
		Action: models.ActionChangePin,
		PinID:  req.PinID,
		Detail: describeChange(req),
	}, err)
	return err
}

// DeletePin 停用密码并记录审计
func (s *PinService) DeletePin(ctx context.Context, pinID string) error {
	err := s.api.DeleteLockPin(ctx, pinID)
	s.record(ctx, &models.PinEvent{
		Action: models.ActionDeletePin,
		PinID:  pinID,
	}, err)
	return err
}

// Events 审计记录
func (s *PinService) Events(ctx context.Context, pinID string, limit int) ([]*models.PinEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := s.events.List(ctx, pinID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pin events: %w", err)
	}
	return events, nil
}

// record 写入审计，失败只记录日志
func (s *PinService) record(ctx context.Context, event *models.PinEvent, opErr error) {
	recordEvent(ctx, s.logger, s.events, s.hub, event, opErr)
}

func recordEvent(ctx context.Context, logger *zap.Logger, store EventStore, hub Broadcaster, event *models.PinEvent, opErr error) {
	event.RequestID = RequestID(ctx)
	event.Success = opErr == nil
	if opErr != nil {
		event.Error = opErr.Error()
	}

	// 审计写入不受请求取消影响
	if err := store.Create(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn("Failed to record pin event",
			zap.String("action", event.Action),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}

	if opErr != nil {
		logger.Warn("Keyvox operation failed",
			zap.String("action", event.Action),
			zap.String("pin_id", event.PinID),
			zap.String("lock_id", event.LockID),
			zap.Error(opErr))
		return
	}

	logger.Info("Keyvox operation succeeded",
		zap.String("action", event.Action),
		zap.String("pin_id", event.PinID),
		zap.String("lock_id", event.LockID))
	hub.BroadcastMessage(ws.MsgTypePinEvent, event)
}

func describeWindow(pin *keyvox.LockPin) string {
	var parts []string
	if pin.STime != nil {
		parts = append(parts, "start="+pin.STime.Format(time.RFC3339))
	}
	if pin.ETime != nil {
		parts = append(parts, "end="+pin.ETime.Format(time.RFC3339))
	}
	return strings.Join(parts, " ")
}

// describeChange 只记录修改了哪些字段，不记录密码本身
func describeChange(req keyvox.ChangePinRequest) string {
	var fields []string
	if req.PinCode != nil {
		fields = append(fields, "pinCode")
	}
	if req.TargetName != nil {
		fields = append(fields, "targetName")
	}
	if req.Start != nil {
		fields = append(fields, "sTime")
	}
	if req.End != nil {
		fields = append(fields, "eTime")
	}
	return "fields=" + strings.Join(fields, ",")
}
