package vision_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/shenikar/event_rescue/internal/vision"
	"github.com/shenikar/event_rescue/internal/vision/mocks"
	"github.com/shenikar/event_rescue/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSubscriber_Handle(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := mocks.NewMockIngester(ctrl)
	dropped := 0
	s := vision.NewSubscriber(nil, "vision.events", ingester, logger.Discard(),
		vision.WithDroppedHook(func() { dropped++ }))

	ingester.EXPECT().Ingest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p normalizer.Payload) (models.Incident, error) {
			v, ok := p.(normalizer.VisionPayload)
			require.True(t, ok)
			assert.Equal(t, models.TypeCrowdSurge, v.Type)
			assert.Equal(t, "cam-3", v.CameraID)
			return models.Incident{ID: "inc-1"}, nil
		})

	s.Handle(context.Background(), []byte(`{"type":"crowd_surge","severity":0.6,"zone":"B","camera_id":"cam-3"}`))
	assert.Equal(t, 0, dropped)
}

func TestSubscriber_HandleDropsBadMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingester := mocks.NewMockIngester(ctrl)
	dropped := 0
	s := vision.NewSubscriber(nil, "vision.events", ingester, logger.Discard(),
		vision.WithDroppedHook(func() { dropped++ }))

	ingester.EXPECT().Ingest(gomock.Any(), gomock.Any()).Return(models.Incident{}, normalizer.ErrUnknownType)

	s.Handle(context.Background(), []byte(`not json`))
	s.Handle(context.Background(), []byte(`{"type":"alien_invasion"}`))
	assert.Equal(t, 2, dropped)
}

func TestPayloadFromAnalysis(t *testing.T) {
	p, ok := vision.PayloadFromAnalysis(models.FrameAnalysis{FireDetected: true, SmokeDetected: true, SafetyScore: 4}, "Stage")
	require.True(t, ok)
	assert.Equal(t, models.TypeFireDetected, p.Type)
	assert.InDelta(t, 0.6, *p.Severity, 1e-9)
	assert.Equal(t, "Stage", p.Zone)

	p, ok = vision.PayloadFromAnalysis(models.FrameAnalysis{SmokeDetected: true, SafetyScore: 8}, "Stage")
	require.True(t, ok)
	assert.Equal(t, models.TypeSmokeDetected, p.Type)

	_, ok = vision.PayloadFromAnalysis(models.FrameAnalysis{SafetyScore: 10, CrowdDensity: "High"}, "Stage")
	assert.False(t, ok)
}

func TestClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/camera/analyze", r.URL.Path)
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("jpeg"), data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","analysis":{"fire_detected":true,"safety_score":6,"crowd_density":"Low"}}`))
	}))
	defer srv.Close()

	a, err := vision.NewClient(srv.URL, time.Second).Analyze(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.True(t, a.FireDetected)
	assert.Equal(t, 6.0, a.SafetyScore)
}

func TestClient_StartStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/camera/start":
			_, _ = w.Write([]byte(`{"status":"started","zone":"A"}`))
		case "/camera/stop/A":
			_, _ = w.Write([]byte(`{"status":"stopped","zone":"A"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := vision.NewClient(srv.URL, time.Second)
	st, err := c.Start(context.Background(), "A", "webcam")
	require.NoError(t, err)
	assert.Equal(t, "started", st.Status)

	st, err = c.Stop(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "stopped", st.Status)
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := vision.NewClient("", time.Second).Analyze(context.Background(), nil)
	assert.True(t, errors.Is(err, vision.ErrNotConfigured))
}
