package consumer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shenikar/event_rescue/internal/client"
	"github.com/shenikar/event_rescue/internal/consumer/mocks"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRunner(t *testing.T, opts ...RunnerOption) (*Runner, *mocks.MockAPI, *View, *NotificationView) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	view := NewView(KindAuthority, 20, Filter{})
	notifications := NewNotificationView(50)
	opts = append([]RunnerOption{WithNotifications(notifications)}, opts...)
	r := NewRunner(api, []*View{view}, DefaultRunnerConfig(), logger, opts...)
	return r, api, view, notifications
}

func TestPullIncidents_ReconcilesViews(t *testing.T) {
	// Подготовка
	r, api, view, _ := newTestRunner(t)
	api.EXPECT().ListIncidents(gomock.Any()).Return([]models.Incident{inc("a", models.StatusActive, 0.5)}, nil)

	// Действие
	err := r.PullIncidents(context.Background())

	// Проверка
	require.NoError(t, err)
	assert.Len(t, view.Visible(), 1)
}

func TestPullIncidents_FailureKeepsStaleData(t *testing.T) {
	r, api, view, _ := newTestRunner(t)
	gomock.InOrder(
		api.EXPECT().ListIncidents(gomock.Any()).Return([]models.Incident{inc("a", models.StatusActive, 0.5)}, nil),
		api.EXPECT().ListIncidents(gomock.Any()).Return(nil, errors.New("connection refused")),
	)

	require.NoError(t, r.PullIncidents(context.Background()))
	assert.Error(t, r.PullIncidents(context.Background()))

	assert.Len(t, view.Visible(), 1)
}

func TestPullSummaryAndLostFound(t *testing.T) {
	r, api, _, _ := newTestRunner(t)
	api.EXPECT().Summary(gomock.Any()).Return("No incidents yet. Monitoring active.", nil)
	api.EXPECT().ListLostFound(gomock.Any()).Return([]models.LostFoundItem{{ID: "l1", Description: "keys"}}, nil)

	require.NoError(t, r.PullSummary(context.Background()))
	require.NoError(t, r.PullLostFound(context.Background()))

	assert.Equal(t, "No incidents yet. Monitoring active.", r.Summary())
	require.Len(t, r.LostFound(), 1)
	assert.Equal(t, "keys", r.LostFound()[0].Description)
}

func TestPushEndToEnd_CriticalNotificationAndDerivedConfidence(t *testing.T) {
	r, _, view, notifications := newTestRunner(t)
	raw := []byte(`{"type":"incident","incident":{"type":"fire_detected","zone":"A","severity":0.9}}`)

	pushed, err := client.DecodePush(normalizer.New(), raw)
	require.NoError(t, err)
	r.HandlePush(pushed)

	entries := notifications.Entries(false, "")
	require.Len(t, entries, 1)
	assert.Equal(t, models.PriorityCritical, entries[0].Priority)
	assert.Equal(t, "A", entries[0].Zone)

	feed := view.Visible()
	require.Len(t, feed, 1)
	assert.Equal(t, 90, feed[0].Confidence)
	assert.Equal(t, models.TypeFireDetected, feed[0].Type)
}

func TestSetStatus_ForwardsAndKeepsOptimisticEdit(t *testing.T) {
	r, api, view, _ := newTestRunner(t)
	view.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, time.Now())

	api.EXPECT().UpdateStatus(gomock.Any(), "a", models.StatusResolved).
		Return(models.Incident{}, errors.New("server unavailable"))

	require.NoError(t, r.SetStatus(context.Background(), view, "a", models.StatusResolved))
	r.Stop()

	assert.Equal(t, models.StatusResolved, view.Visible()[0].Status)
}

func TestSetStatus_RegressionIsNotForwarded(t *testing.T) {
	r, _, view, _ := newTestRunner(t)
	view.Reconcile([]models.Incident{inc("a", models.StatusResolved, 0.5)}, time.Now())

	err := r.SetStatus(context.Background(), view, "a", models.StatusAcknowledged)
	assert.ErrorIs(t, err, models.ErrStatusRegression)
}

func TestRunner_StartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	push := mocks.NewMockPushSource(ctrl)
	r, api, view, _ := newTestRunner(t, WithPush(push))

	api.EXPECT().ListIncidents(gomock.Any()).Return(nil, nil).AnyTimes()
	api.EXPECT().Summary(gomock.Any()).Return("", nil).AnyTimes()
	api.EXPECT().ListLostFound(gomock.Any()).Return(nil, nil).AnyTimes()
	handled := make(chan struct{})
	push.EXPECT().Run(gomock.Any(), gomock.Any()).Do(func(ctx context.Context, handle func(models.Incident)) {
		handle(inc("p", models.StatusActive, 0.6))
		close(handled)
		<-ctx.Done()
	})

	r.Start(context.Background())
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("push source not started")
	}
	assert.LessOrEqual(t, view.Len(), 1)

	r.Stop()
	r.Stop()
}
