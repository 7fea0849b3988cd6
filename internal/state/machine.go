package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 锁状态常量
const (
	StateUnknown  = "unknown"
	StateLocked   = "locked"
	StateUnlocked = "unlocked"
)

// 事件常量
const (
	EventLock   = "lock"
	EventUnlock = "unlock"
	EventLose   = "lose" // 无法获取锁状态
)

// LockState 锁状态
type LockState struct {
	LockID       string     `json:"lock_id"`
	CurrentState string     `json:"state"`
	Since        time.Time  `json:"since"`
	Battery      string     `json:"battery,omitempty"`
	Wifi         string     `json:"wifi,omitempty"`
	RawStatus    string     `json:"raw_status,omitempty"`
	Online       bool       `json:"online"` // 最近一次查询是否成功
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`
}

// Machine 锁状态机
type Machine struct {
	mu            sync.RWMutex
	lockID        string
	fsm           *fsm.FSM
	state         *LockState
	onStateChange func(lockID string, from, to string)
}

// NewMachine 创建状态机
func NewMachine(lockID string, initialState string, onStateChange func(lockID string, from, to string)) *Machine {
	if initialState == "" {
		initialState = StateUnknown
	}

	m := &Machine{
		lockID:        lockID,
		onStateChange: onStateChange,
		state: &LockState{
			LockID:       lockID,
			CurrentState: initialState,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		initialState,
		fsm.Events{
			{Name: EventLock, Src: []string{StateUnknown, StateUnlocked, StateLocked}, Dst: StateLocked},
			{Name: EventUnlock, Src: []string{StateUnknown, StateLocked, StateUnlocked}, Dst: StateUnlocked},
			{Name: EventLose, Src: []string{StateLocked, StateUnlocked, StateUnknown}, Dst: StateUnknown},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.lockID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState 获取完整状态
func (m *Machine) GetState() *LockState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 返回副本
	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// UpdateState 更新状态数据
func (m *Machine) UpdateState(update func(s *LockState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.state)
}

// Trigger 触发事件，状态未变化时不报错
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	return nil
}

// Manager 状态机管理器
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	onChange func(lockID string, from, to string)
}

// NewManager 创建管理器
func NewManager(onChange func(lockID string, from, to string)) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		onChange: onChange,
	}
}

// GetOrCreate 获取或创建状态机
func (m *Manager) GetOrCreate(lockID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[lockID]; ok {
		return machine
	}

	machine := NewMachine(lockID, StateUnknown, m.onChange)
	m.machines[lockID] = machine
	return machine
}

// Get 获取状态机
func (m *Manager) Get(lockID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[lockID]
	return machine, ok
}

// GetAllStates 获取所有锁状态
func (m *Manager) GetAllStates() map[string]*LockState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]*LockState)
	for lockID, machine := range m.machines {
		states[lockID] = machine.GetState()
	}
	return states
}
