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
	"github.com/langchou/lockgazer/pkg/ws"
)

func TestPinService_CreatePinRecordsEvent(t *testing.T) {
	start := time.Unix(1700000000, 0)
	end := start.Add(time.Hour)
	api := &fakeKeyvox{created: &keyvox.LockPin{PinID: "p1", UnitID: "u1", STime: &start, ETime: &end}}
	events := &fakeEventStore{}
	hub := &fakeHub{}
	svc := NewPinService(zap.NewNop(), api, events, hub)

	ctx := WithRequestID(context.Background(), "req-1")
	pin, err := svc.CreatePin(ctx, keyvox.CreatePinRequest{UnitID: "u1", PinCode: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "p1", pin.PinID)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, models.ActionCreatePin, ev.Action)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "p1", ev.PinID)
	assert.Equal(t, "u1", ev.UnitID)
	assert.True(t, ev.Success)
	assert.Contains(t, ev.Detail, "start=")
	assert.Equal(t, []string{ws.MsgTypePinEvent}, hub.types())
}

func TestPinService_FailureRecordedAndReturned(t *testing.T) {
	apiErr := &keyvox.APIError{Operation: keyvox.OpChangeLockPin, Code: "1", Msg: "pin not found"}
	api := &fakeKeyvox{err: apiErr}
	events := &fakeEventStore{}
	hub := &fakeHub{}
	svc := NewPinService(zap.NewNop(), api, events, hub)

	code := "9999"
	err := svc.ChangePin(context.Background(), keyvox.ChangePinRequest{PinID: "p1", PinCode: &code})
	assert.Same(t, apiErr, err)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.False(t, ev.Success)
	assert.Contains(t, ev.Error, "pin not found")
	assert.Equal(t, "fields=pinCode", ev.Detail)
	assert.NotContains(t, ev.Detail, "9999")
	// 生成了请求 ID
	assert.Len(t, ev.RequestID, 36)
	// 失败不推送
	assert.Empty(t, hub.types())
}

func TestPinService_StoreFailureDoesNotFailOperation(t *testing.T) {
	api := &fakeKeyvox{}
	events := &fakeEventStore{err: errStoreDown}
	svc := NewPinService(zap.NewNop(), api, events, nil)

	require.NoError(t, svc.DeletePin(context.Background(), "p1"))
	assert.Equal(t, []string{"p1"}, api.deleted)
}

func TestPinService_ReadsPassThrough(t *testing.T) {
	api := &fakeKeyvox{
		units:     []keyvox.Unit{{UnitID: "u1", LockIDs: []string{}}},
		pinList:   &keyvox.PinList{Pins: []keyvox.LockPin{{PinID: "p1"}}},
		pinStatus: &keyvox.LockPinStatus{PinCode: "1234", Status: "valid"},
	}
	svc := NewPinService(zap.NewNop(), api, &fakeEventStore{}, nil)
	ctx := context.Background()

	units, err := svc.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 1)

	list, err := svc.ListPins(ctx, keyvox.PinListQuery{LockID: "L1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", list.Pins[0].PinID)

	st, err := svc.PinStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "valid", st.Status)
}

func TestPinService_CreatePinErrorReturnsNil(t *testing.T) {
	api := &fakeKeyvox{err: &keyvox.ShapeError{Operation: keyvox.OpCreateLockPin, Reason: "data is missing"}}
	svc := NewPinService(zap.NewNop(), api, &fakeEventStore{}, nil)

	pin, err := svc.CreatePin(context.Background(), keyvox.CreatePinRequest{UnitID: "u1", PinCode: "1"})
	assert.Nil(t, pin)
	assert.True(t, errors.Is(err, keyvox.ErrShape))
}

func TestPinService_EventsLimit(t *testing.T) {
	events := &fakeEventStore{}
	for i := 0; i < 3; i++ {
		events.events = append(events.events, &models.PinEvent{PinID: "p1"})
	}
	svc := NewPinService(zap.NewNop(), &fakeKeyvox{}, events, nil)

	list, err := svc.Events(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
