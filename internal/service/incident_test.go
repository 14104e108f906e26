package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/dispatch"
	dispatch_mocks "github.com/shenikar/event_rescue/internal/dispatch/mocks"
	"github.com/shenikar/event_rescue/internal/feed"
	"github.com/shenikar/event_rescue/internal/metrics"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/shenikar/event_rescue/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testDeps struct {
	repo      *mocks.MockIncidentRepository
	publisher *dispatch_mocks.MockPublisher
	vision    *mocks.MockVisionClient
	feed      *feed.Distributor
	metrics   *metrics.Metrics
}

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, testDeps) {
	ctrl := gomock.NewController(t)
	deps := testDeps{
		repo:      mocks.NewMockIncidentRepository(ctrl),
		publisher: dispatch_mocks.NewMockPublisher(ctrl),
		vision:    mocks.NewMockVisionClient(ctrl),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	deps.feed = feed.New(10, feed.WithHooks(deps.metrics.FeedHooks()))

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DispatchConfidence: 70,
	}

	n := 0
	norm := normalizer.New(normalizer.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}))

	service := NewIncidentService(deps.feed, deps.repo, logger, cfg, deps.publisher,
		WithVision(deps.vision), WithMetrics(deps.metrics), WithNormalizer(norm))
	return service.(*incidentService), deps
}

func sev(v float64) *float64 { return &v }

func TestIngest_StoresArchivesAndSkipsDispatchForMinorIncident(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil).Times(1)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, "gen-1").Return(nil).Times(1)

	// Действие
	inc, err := service.Ingest(ctx, normalizer.VisionPayload{Type: models.TypeCrowdSurge, Severity: sev(0.5), Zone: "North"})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, "gen-1", inc.ID)
	assert.Equal(t, 50, inc.Confidence)
	assert.Equal(t, 1, deps.feed.Len())
}

func TestIngest_CriticalIncidentIsDispatched(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, ev dispatch.Event) error {
		assert.Equal(t, dispatch.ReasonCritical, ev.Reason)
		assert.Equal(t, dispatch.TeamFire, ev.Team)
		assert.Contains(t, ev.Responders, dispatch.ResponderParamedic)
		return nil
	}).Times(1)

	_, err := service.Ingest(ctx, normalizer.VisionPayload{Type: models.TypeFireDetected, Severity: sev(0.95), Zone: "Stage"})
	require.NoError(t, err)
}

func TestIngest_UpdateIsNotDispatchedTwice(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil).Times(2)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, "fire-1").Return(nil).Times(2)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	p := normalizer.VisionPayload{ID: "fire-1", Type: models.TypeFireDetected, Severity: sev(0.9)}
	_, err := service.Ingest(ctx, p)
	require.NoError(t, err)
	_, err = service.Ingest(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, 1, deps.feed.Len())
}

func TestIngest_ArchiveAndQueueFailuresDoNotFailIngest(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(errors.New("connection refused"))
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down"))

	inc, err := service.Ingest(ctx, normalizer.VisionPayload{Type: models.TypePanic, Severity: sev(0.8)})

	require.NoError(t, err)
	_, ok := deps.feed.Get(inc.ID)
	assert.True(t, ok)
}

func TestIngest_RejectsUnknownType(t *testing.T) {
	service, deps := newTestIncidentService(t)

	_, err := service.Ingest(context.Background(), normalizer.VisionPayload{Type: "meteor_strike"})

	require.Error(t, err)
	assert.ErrorIs(t, err, normalizer.ErrUnknownType)
	assert.Equal(t, 0, deps.feed.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.metrics.NormalizeFailures.WithLabelValues("vision")))
}

func TestIngestBatch_BadRecordDoesNotBlockOthers(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil).Times(2)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, gomock.Any()).Return(nil).Times(2)

	stored, err := service.IngestBatch(ctx, []normalizer.Payload{
		normalizer.ManualPayload{Type: models.TypeCrowdSurge, Severity: sev(0.3)},
		normalizer.ManualPayload{},
		normalizer.ManualPayload{Type: models.TypePanic, Severity: sev(0.2)},
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "record 1")
	assert.Len(t, stored, 2)
}

func TestSubmitVoiceAlert_AutoDispatchAboveThreshold(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, "va-1").Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, ev dispatch.Event) error {
		assert.Equal(t, dispatch.ReasonVoiceAlert, ev.Reason)
		assert.Equal(t, dispatch.TeamSecurity, ev.Team)
		return nil
	})

	inc, err := service.SubmitVoiceAlert(ctx, models.VoiceAlertSubmission{
		VoiceAlert: models.VoiceAlert{ID: "va-1", Category: models.VoiceHelp, Confidence: 72, Timestamp: time.Now()},
		DeviceID:   "phone-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.TypeVoiceHelp, inc.Type)
	assert.Equal(t, "Mobile Device", inc.Zone)
	assert.Equal(t, "phone-1", inc.SourceDeviceID)
	assert.Equal(t, 72, inc.Confidence)
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.metrics.VoiceAlertsTotal.WithLabelValues("help")))
}

func TestSubmitVoiceAlert_AtThresholdIsNotDispatched(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, gomock.Any()).Return(nil)

	_, err := service.SubmitVoiceAlert(ctx, models.VoiceAlertSubmission{
		VoiceAlert: models.VoiceAlert{Category: models.VoiceDistress, Confidence: 70},
	})
	require.NoError(t, err)
}

func TestGetIncident_FromFeed(t *testing.T) {
	service, deps := newTestIncidentService(t)
	deps.feed.Ingest(models.Incident{ID: "a", Type: models.TypePanic, Status: models.StatusActive})

	inc, err := service.GetIncident(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, "a", inc.ID)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{ID: "old", Type: models.TypePanic}

	// Ожидания
	deps.repo.EXPECT().GetIncidentFromCache(ctx, "old").Return(expectedIncident, nil).Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, "old")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, *expectedIncident, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{ID: "old", Type: models.TypePanic}

	// 1. Промах кеша
	deps.repo.EXPECT().GetIncidentFromCache(ctx, "old").Return(nil, nil).Times(1)
	// 2. Попадание в БД
	deps.repo.EXPECT().GetByID(ctx, "old").Return(expectedIncident, nil).Times(1)
	// 3. Запись в кеш
	deps.repo.EXPECT().SetIncidentCache(ctx, expectedIncident).Return(nil).Times(1)

	incident, err := service.GetIncident(ctx, "old")

	require.NoError(t, err)
	assert.Equal(t, "old", incident.ID)
}

func TestGetIncident_NotFound(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().GetIncidentFromCache(ctx, "missing").Return(nil, nil)
	deps.repo.EXPECT().GetByID(ctx, "missing").Return(nil, fmt.Errorf("%w: missing", ErrIncidentNotFound))

	_, err := service.GetIncident(ctx, "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestUpdateStatus_AdvancesFeedAndArchive(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	deps.feed.Ingest(models.Incident{ID: "a", Type: models.TypePanic, Status: models.StatusActive})

	deps.repo.EXPECT().UpdateStatus(ctx, "a", models.StatusAcknowledged).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, "a").Return(nil)

	inc, err := service.UpdateStatus(ctx, "a", models.StatusAcknowledged)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, inc.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.metrics.StatusTransitionTotal.WithLabelValues("acknowledged")))
}

func TestUpdateStatus_RegressionRejected(t *testing.T) {
	service, deps := newTestIncidentService(t)
	deps.feed.Ingest(models.Incident{ID: "a", Type: models.TypePanic, Status: models.StatusResolved})

	_, err := service.UpdateStatus(context.Background(), "a", models.StatusActive)

	assert.ErrorIs(t, err, models.ErrStatusRegression)
}

func TestUpdateStatus_EvictedIncidentUpdatedInArchive(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().GetIncidentFromCache(ctx, "old").Return(nil, nil)
	deps.repo.EXPECT().GetByID(ctx, "old").Return(&models.Incident{ID: "old", Status: models.StatusActive}, nil)
	deps.repo.EXPECT().SetIncidentCache(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().UpdateStatus(ctx, "old", models.StatusResolved).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, "old").Return(nil)

	inc, err := service.UpdateStatus(ctx, "old", models.StatusResolved)

	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, inc.Status)
}

func TestDispatch_Manual(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()
	deps.feed.Ingest(models.Incident{ID: "a", Type: models.TypeSmokeDetected, Status: models.StatusActive})

	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	ev, err := service.Dispatch(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, dispatch.ReasonManual, ev.Reason)
	assert.Equal(t, dispatch.TeamFire, ev.Team)
}

func TestDispatch_Disabled(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	service := NewIncidentService(feed.New(10), nil, logger, &config.Config{}, nil)

	_, err := service.Dispatch(context.Background(), "a")
	assert.ErrorIs(t, err, ErrDispatchDisabled)
}

func TestAnalyzeFrame_FirePromotedToIncident(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.vision.EXPECT().Analyze(ctx, []byte("jpeg")).Return(models.FrameAnalysis{FireDetected: true, SafetyScore: 2}, nil)
	deps.repo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
	deps.repo.EXPECT().InvalidateIncidentCache(ctx, gomock.Any()).Return(nil)
	deps.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	analysis, inc, err := service.AnalyzeFrame(ctx, []byte("jpeg"), "Stage")

	require.NoError(t, err)
	assert.True(t, analysis.FireDetected)
	require.NotNil(t, inc)
	assert.Equal(t, models.TypeFireDetected, inc.Type)
	assert.Equal(t, "Stage", inc.Zone)
	assert.Equal(t, 80, inc.Confidence)
}

func TestAnalyzeFrame_QuietSceneCreatesNothing(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.vision.EXPECT().Analyze(ctx, gomock.Any()).Return(models.FrameAnalysis{SafetyScore: 10}, nil)

	_, inc, err := service.AnalyzeFrame(ctx, []byte("jpeg"), "Stage")

	require.NoError(t, err)
	assert.Nil(t, inc)
	assert.Equal(t, 0, deps.feed.Len())
}

func TestWarm_LoadsOldestFirst(t *testing.T) {
	service, deps := newTestIncidentService(t)
	ctx := context.Background()

	deps.repo.EXPECT().ListRecent(ctx, 10).Return([]models.Incident{
		{ID: "newest", Type: models.TypePanic, Status: models.StatusActive},
		{ID: "oldest", Type: models.TypePanic, Status: models.StatusResolved},
	}, nil)

	require.NoError(t, service.Warm(ctx))

	snapshot := deps.feed.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "newest", snapshot[0].ID)
	assert.Equal(t, models.StatusResolved, snapshot[1].Status)
}

func TestSummary(t *testing.T) {
	service, deps := newTestIncidentService(t)
	assert.Equal(t, "No incidents yet. Monitoring active.", service.Summary(context.Background()))

	deps.feed.Ingest(models.Incident{ID: "a", Type: models.TypePanic})
	assert.Contains(t, service.Summary(context.Background()), "panic x1")
}
