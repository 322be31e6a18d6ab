package service

import (
	"context"
	"errors"
	"testing"

	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/coordinator/noop"
	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	source "cadbridge/internal/source/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListener(src *fakeSource, exp *fakeExporter, coord coordinator.Coordinator) *NotificationListener {
	if coord == nil {
		coord = noop.NewNoopCoordinator()
	}
	return NewNotificationListener(NewCallSync(src, exp, coord, "", "listener-test", logger.NewNopLogger()), logger.NewNopLogger())
}

func TestNotificationListener_ExportsNotifiedCall(t *testing.T) {
	src := &fakeSource{recent: incidents("198513")}
	exp := &fakeExporter{}
	l := newTestListener(src, exp, nil)

	ok := l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: " 198513 "})
	assert.True(t, ok)
	assert.Equal(t, []string{"198513"}, exp.exported)
	assert.Equal(t, []string{"198513"}, src.extraCalls)
}

func TestNotificationListener_ExportFailureIsAcknowledged(t *testing.T) {
	src := &fakeSource{recent: incidents("1")}
	exp := &fakeExporter{outcomes: map[string]ExportOutcome{
		"1": {IncidentID: "1", DeliveryError: "E_TIMEOUT", SheetError: "unavailable"},
	}}
	l := newTestListener(src, exp, nil)

	assert.True(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "1"}))
}

func TestNotificationListener_IngestionFailureRequestsRedelivery(t *testing.T) {
	t.Run("incident fetch", func(t *testing.T) {
		src := &fakeSource{incidentErr: errors.New("HTTP 503")}
		exp := &fakeExporter{}
		l := newTestListener(src, exp, nil)

		assert.False(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "1"}))
		assert.Empty(t, exp.exported)
	})

	t.Run("extra fetch", func(t *testing.T) {
		src := &fakeSource{
			recent:   incidents("1"),
			extraErr: map[string]error{"1": errors.New("connection reset")},
		}
		exp := &fakeExporter{}
		l := newTestListener(src, exp, nil)

		assert.False(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "1"}))
		assert.Empty(t, exp.exported)
	})
}

func TestNotificationListener_UnknownCallIsDropped(t *testing.T) {
	exp := &fakeExporter{}
	l := newTestListener(&fakeSource{}, exp, nil)

	assert.True(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "missing"}))
	assert.True(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{}))
	assert.Empty(t, exp.exported)
}

func TestNotificationListener_MissingExtraExportsWithoutUnits(t *testing.T) {
	src := &fakeSource{
		recent:   incidents("1"),
		extraErr: map[string]error{"1": source.ErrIncidentNotFound},
	}
	exp := &fakeExporter{}
	l := newTestListener(src, exp, nil)

	assert.True(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "1"}))
	assert.Equal(t, []string{"1"}, exp.exported)
}

func TestNotificationListener_LockHeldRequestsRedelivery(t *testing.T) {
	coord := noop.NewNoopCoordinator()
	lock, ok, err := coord.TryAcquire(context.Background(), coordinator.DefaultWriterLockPath, []byte("poller"))
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Release()

	exp := &fakeExporter{}
	l := newTestListener(&fakeSource{recent: incidents("1")}, exp, coord)

	assert.False(t, l.ProcessMessage(context.Background(), domain.IncidentNotification{CallID: "1"}))
	assert.Empty(t, exp.exported)
}
