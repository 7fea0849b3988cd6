package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/models"
	"github.com/langchou/lockgazer/internal/state"
	"github.com/langchou/lockgazer/pkg/ws"
)

// LockAPI 锁相关的 Keyvox 接口
type LockAPI interface {
	GetLockStatus(ctx context.Context, lockID string) (*keyvox.LockStatus, error)
	ControlLock(ctx context.Context, lockID string, flag keyvox.ControlFlag) error
}

// SnapshotStore 锁状态记录存储
type SnapshotStore interface {
	Create(ctx context.Context, s *models.LockSnapshot) error
	ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockSnapshot, error)
}

// StateStore 锁状态区间存储
type StateStore interface {
	Transition(ctx context.Context, lockID, state string, at time.Time) error
	ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockStateRecord, error)
}

// LockService 锁服务
type LockService struct {
	logger       *zap.Logger
	api          LockAPI
	snapshots    SnapshotStore
	states       StateStore
	events       EventStore
	hub          Broadcaster
	stateManager *state.Manager

	pollIDs     []string
	pollTimeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// LockServiceConfig 轮询配置
type LockServiceConfig struct {
	PollIDs     []string
	PollTimeout time.Duration
}

// NewLockService 创建锁服务，hub 可为 nil
func NewLockService(
	logger *zap.Logger,
	api LockAPI,
	snapshots SnapshotStore,
	states StateStore,
	events EventStore,
	hub Broadcaster,
	cfg LockServiceConfig,
) *LockService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 20 * time.Second
	}

	svc := &LockService{
		logger:      logger,
		api:         api,
		snapshots:   snapshots,
		states:      states,
		events:      events,
		hub:         hub,
		pollIDs:     cfg.PollIDs,
		pollTimeout: cfg.PollTimeout,
	}

	// 创建状态管理器
	svc.stateManager = state.NewManager(svc.onStateChange)

	for _, id := range cfg.PollIDs {
		svc.stateManager.GetOrCreate(id)
	}

	return svc
}

// onStateChange 在状态机锁内调用，不能再访问状态机
func (s *LockService) onStateChange(lockID string, from, to string) {
	s.logger.Info("Lock state changed",
		zap.String("lock_id", lockID),
		zap.String("from", from),
		zap.String("to", to))

	now := time.Now()
	if err := s.states.Transition(context.Background(), lockID, to, now); err != nil {
		s.logger.Warn("Failed to record lock state", zap.String("lock_id", lockID), zap.Error(err))
	}

	s.hub.BroadcastMessage(ws.MsgTypeLockState, map[string]interface{}{
		"lock_id": lockID,
		"from":    from,
		"to":      to,
		"since":   now,
	})
}

// Control 开锁/上锁
func (s *LockService) Control(ctx context.Context, lockID string, flag keyvox.ControlFlag) error {
	err := s.api.ControlLock(ctx, lockID, flag)

	recordEvent(ctx, s.logger, s.events, s.hub, &models.PinEvent{
		Action: models.ActionControlLock,
		LockID: lockID,
		Detail: "flag=" + strconv.Itoa(int(flag)) + " (" + flag.String() + ")",
	}, err)

	if err != nil {
		return err
	}

	event := state.EventLock
	if flag == keyvox.FlagUnlock {
		event = state.EventUnlock
	}
	machine := s.stateManager.GetOrCreate(lockID)
	machine.UpdateState(func(st *state.LockState) { st.Online = true })
	if err := machine.Trigger(event); err != nil {
		s.logger.Warn("Failed to update lock state", zap.String("lock_id", lockID), zap.Error(err))
	}
	return nil
}

// Status 查询锁状态并记录
func (s *LockService) Status(ctx context.Context, lockID string) (*keyvox.LockStatus, error) {
	status, err := s.api.GetLockStatus(ctx, lockID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snapshot := &models.LockSnapshot{
		LockID:        lockID,
		PinType:       status.PinType,
		RelateBattery: status.RelateBattery,
		RelateType:    status.RelateType,
		Battery:       status.Battery,
		Wifi:          status.Wifi,
		Status:        status.Status,
		ReportTime:    status.ReportTime,
		ModuleID:      status.ModuleID,
		RecordedAt:    now,
	}
	if err := s.snapshots.Create(context.WithoutCancel(ctx), snapshot); err != nil {
		s.logger.Warn("Failed to save lock snapshot", zap.String("lock_id", lockID), zap.Error(err))
	}

	s.stateManager.GetOrCreate(lockID).UpdateState(func(st *state.LockState) {
		st.Battery = status.Battery
		st.Wifi = status.Wifi
		st.RawStatus = status.Status
		st.LastPolledAt = &now
		st.Online = true
	})

	s.hub.BroadcastMessage(ws.MsgTypeLockStatus, snapshot)
	return status, nil
}

// State 锁状态机当前状态
func (s *LockService) State(lockID string) *state.LockState {
	return s.stateManager.GetOrCreate(lockID).GetState()
}

// AllStates 全部锁状态，用于 WebSocket 初始数据
func (s *LockService) AllStates() map[string]*state.LockState {
	return s.stateManager.GetAllStates()
}

// Snapshots 锁状态历史
func (s *LockService) Snapshots(ctx context.Context, lockID string, limit int) ([]*models.LockSnapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	snapshots, err := s.snapshots.ListByLock(ctx, lockID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lock snapshots: %w", err)
	}
	return snapshots, nil
}

// StateHistory 锁状态区间历史
func (s *LockService) StateHistory(ctx context.Context, lockID string, limit int) ([]*models.LockStateRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	records, err := s.states.ListByLock(ctx, lockID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lock states: %w", err)
	}
	return records, nil
}

// PollOnce 依次查询所有配置的锁，单个失败不影响其它
func (s *LockService) PollOnce(ctx context.Context) {
	for _, lockID := range s.pollIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Status(ctx, lockID); err != nil {
			s.logger.Warn("Failed to poll lock status", zap.String("lock_id", lockID), zap.Error(err))
			machine := s.stateManager.GetOrCreate(lockID)
			machine.UpdateState(func(st *state.LockState) { st.Online = false })
			if err := machine.Trigger(state.EventLose); err != nil {
				s.logger.Warn("Failed to update lock state", zap.String("lock_id", lockID), zap.Error(err))
			}
		}
	}
}

// Start 按 cron 表达式启动轮询
func (s *LockService) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("Lock service already running, skipping start")
		return nil
	}
	if len(s.pollIDs) == 0 {
		s.logger.Info("No locks configured for polling")
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.pollTimeout)
		defer cancel()
		s.PollOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule lock polling: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("Lock polling started", zap.String("spec", spec), zap.Int("locks", len(s.pollIDs)))
	return nil
}

// Stop 停止轮询并等待正在执行的任务
func (s *LockService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("Lock polling stopped")
}
