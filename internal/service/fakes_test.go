package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/models"
)

type fakeEventStore struct {
	mu     sync.Mutex
	events []*models.PinEvent
	err    error
}

func (f *fakeEventStore) Create(ctx context.Context, e *models.PinEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventStore) List(ctx context.Context, pinID string, limit int) ([]*models.PinEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PinEvent
	for _, e := range f.events {
		if pinID == "" || e.PinID == pinID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSnapshotStore struct {
	mu        sync.Mutex
	snapshots []*models.LockSnapshot
}

func (f *fakeSnapshotStore) Create(ctx context.Context, s *models.LockSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeSnapshotStore) ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LockSnapshot
	for _, s := range f.snapshots {
		if s.LockID == lockID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stateChange struct {
	LockID string
	State  string
}

type fakeStateStore struct {
	mu      sync.Mutex
	changes []stateChange
}

func (f *fakeStateStore) Transition(ctx context.Context, lockID, state string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, stateChange{LockID: lockID, State: state})
	return nil
}

func (f *fakeStateStore) ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockStateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LockStateRecord
	for i := len(f.changes) - 1; i >= 0; i-- {
		if f.changes[i].LockID == lockID {
			out = append(out, &models.LockStateRecord{LockID: lockID, State: f.changes[i].State})
		}
	}
	return out, nil
}

type broadcast struct {
	Type string
	Data interface{}
}

type fakeHub struct {
	mu       sync.Mutex
	messages []broadcast
}

func (f *fakeHub) BroadcastMessage(msgType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, broadcast{Type: msgType, Data: data})
}

func (f *fakeHub) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		out = append(out, m.Type)
	}
	return out
}

// fakeKeyvox 同时实现 PinAPI 与 LockAPI
type fakeKeyvox struct {
	mu sync.Mutex

	units      []keyvox.Unit
	pinList    *keyvox.PinList
	created    *keyvox.LockPin
	pinStatus  *keyvox.LockPinStatus
	lockStatus map[string]*keyvox.LockStatus
	err        error

	controls []keyvox.ControlFlag
	changes  []keyvox.ChangePinRequest
	deleted  []string
}

var errLockOffline = &keyvox.APIError{Operation: keyvox.OpGetLockStatus, Code: "1003", Msg: "lock offline"}

func (f *fakeKeyvox) ListUnits(ctx context.Context) ([]keyvox.Unit, error) {
	return f.units, f.err
}

func (f *fakeKeyvox) ListLockPinPage(ctx context.Context, q keyvox.PinListQuery) (*keyvox.PinList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pinList, nil
}

func (f *fakeKeyvox) CreateLockPin(ctx context.Context, req keyvox.CreatePinRequest) (*keyvox.LockPin, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func (f *fakeKeyvox) ChangeLockPin(ctx context.Context, req keyvox.ChangePinRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, req)
	return f.err
}

func (f *fakeKeyvox) DeleteLockPin(ctx context.Context, pinID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pinID)
	return f.err
}

func (f *fakeKeyvox) GetLockPinStatus(ctx context.Context, pinID string) (*keyvox.LockPinStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pinStatus, nil
}

func (f *fakeKeyvox) GetLockStatus(ctx context.Context, lockID string) (*keyvox.LockStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.lockStatus[lockID]
	if !ok {
		return nil, errLockOffline
	}
	return st, nil
}

func (f *fakeKeyvox) ControlLock(ctx context.Context, lockID string, flag keyvox.ControlFlag) error {
	if !flag.Valid() {
		return &keyvox.ValidationError{Field: "flag", Reason: "must be 0 (lock) or 1 (unlock)"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, flag)
	return f.err
}

var errStoreDown = errors.New("store down")
