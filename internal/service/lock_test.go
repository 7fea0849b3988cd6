package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/lockgazer/internal/api/keyvox"
	"github.com/langchou/lockgazer/internal/models"
	"github.com/langchou/lockgazer/internal/state"
	"github.com/langchou/lockgazer/pkg/ws"
)

type lockFixture struct {
	api       *fakeKeyvox
	snapshots *fakeSnapshotStore
	states    *fakeStateStore
	events    *fakeEventStore
	hub       *fakeHub
	svc       *LockService
}

func newLockFixture(pollIDs ...string) *lockFixture {
	f := &lockFixture{
		api: &fakeKeyvox{lockStatus: map[string]*keyvox.LockStatus{
			"L1": {Battery: "90", Wifi: "-50", Status: "1"},
		}},
		snapshots: &fakeSnapshotStore{},
		states:    &fakeStateStore{},
		events:    &fakeEventStore{},
		hub:       &fakeHub{},
	}
	f.svc = NewLockService(zap.NewNop(), f.api, f.snapshots, f.states, f.events, f.hub,
		LockServiceConfig{PollIDs: pollIDs, PollTimeout: time.Second})
	return f
}

func TestLockService_ControlUpdatesState(t *testing.T) {
	f := newLockFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.Control(ctx, "L1", keyvox.FlagUnlock))
	assert.Equal(t, state.StateUnlocked, f.svc.State("L1").CurrentState)

	require.NoError(t, f.svc.Control(ctx, "L1", keyvox.FlagLock))
	assert.Equal(t, state.StateLocked, f.svc.State("L1").CurrentState)

	assert.Equal(t, []stateChange{{"L1", state.StateUnlocked}, {"L1", state.StateLocked}}, f.states.changes)
	require.Len(t, f.events.events, 2)
	assert.Equal(t, models.ActionControlLock, f.events.events[0].Action)
	assert.Equal(t, "flag=1 (unlock)", f.events.events[0].Detail)
	assert.Contains(t, f.hub.types(), ws.MsgTypeLockState)
}

func TestLockService_ControlInvalidFlag(t *testing.T) {
	f := newLockFixture()

	err := f.svc.Control(context.Background(), "L1", keyvox.ControlFlag(2))
	assert.True(t, errors.Is(err, keyvox.ErrValidation))
	assert.Empty(t, f.api.controls)
	assert.Equal(t, state.StateUnknown, f.svc.State("L1").CurrentState)

	require.Len(t, f.events.events, 1)
	assert.False(t, f.events.events[0].Success)
}

func TestLockService_StatusRecordsSnapshot(t *testing.T) {
	f := newLockFixture()

	st, err := f.svc.Status(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, "90", st.Battery)

	require.Len(t, f.snapshots.snapshots, 1)
	assert.Equal(t, "L1", f.snapshots.snapshots[0].LockID)
	assert.Equal(t, "-50", f.snapshots.snapshots[0].Wifi)

	ls := f.svc.State("L1")
	assert.Equal(t, "90", ls.Battery)
	assert.Equal(t, "1", ls.RawStatus)
	assert.NotNil(t, ls.LastPolledAt)
	assert.Equal(t, []string{ws.MsgTypeLockStatus}, f.hub.types())
}

func TestLockService_PollOnce(t *testing.T) {
	f := newLockFixture("L1", "L2")
	require.NoError(t, f.svc.Control(context.Background(), "L2", keyvox.FlagLock))

	f.svc.PollOnce(context.Background())

	// L1 成功，L2 离线
	require.Len(t, f.snapshots.snapshots, 1)
	assert.Equal(t, "L1", f.snapshots.snapshots[0].LockID)
	assert.Equal(t, state.StateUnknown, f.svc.State("L2").CurrentState)

	states := f.svc.AllStates()
	assert.Len(t, states, 2)
}

func TestLockService_StartStop(t *testing.T) {
	f := newLockFixture("L1")

	assert.Error(t, f.svc.Start("not a spec"))
	require.NoError(t, f.svc.Start("@every 1h"))
	// 重复启动无副作用
	require.NoError(t, f.svc.Start("@every 1h"))
	f.svc.Stop()
	f.svc.Stop()
}

func TestLockService_StartWithoutLocks(t *testing.T) {
	f := newLockFixture()
	require.NoError(t, f.svc.Start("not a spec"))
	f.svc.Stop()
}

func TestLockService_Snapshots(t *testing.T) {
	f := newLockFixture()
	_, err := f.svc.Status(context.Background(), "L1")
	require.NoError(t, err)

	list, err := f.svc.Snapshots(context.Background(), "L1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLockService_StateHistory(t *testing.T) {
	f := newLockFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.Control(ctx, "L1", keyvox.FlagUnlock))
	require.NoError(t, f.svc.Control(ctx, "L1", keyvox.FlagLock))

	records, err := f.svc.StateHistory(ctx, "L1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, state.StateLocked, records[0].State)
	assert.Equal(t, state.StateUnlocked, records[1].State)
}

func TestLockService_PollRecoveryMarksOnline(t *testing.T) {
	f := newLockFixture("L1")
	ctx := context.Background()
	require.NoError(t, f.svc.Control(ctx, "L1", keyvox.FlagLock))

	f.api.err = errLockOffline
	f.svc.PollOnce(ctx)
	ls := f.svc.State("L1")
	assert.Equal(t, state.StateUnknown, ls.CurrentState)
	assert.False(t, ls.Online)

	// 状态值不透明，恢复后仍为 unknown，但 Online 记录恢复
	f.api.err = nil
	f.svc.PollOnce(ctx)
	ls = f.svc.State("L1")
	assert.Equal(t, state.StateUnknown, ls.CurrentState)
	assert.True(t, ls.Online)
	require.NotNil(t, ls.LastPolledAt)
}
