package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shenikar/event_rescue/internal/capture"
	"github.com/shenikar/event_rescue/internal/matcher/mocks"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestPromoter(t *testing.T) (*Promoter, *mocks.MockMatcher, *mocks.MockIncidentSink, *mocks.MockFrameSource) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockMatcher(ctrl)
	sink := mocks.NewMockIncidentSink(ctrl)
	frames := mocks.NewMockFrameSource(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return NewPromoter(m, sink, DefaultThreshold, "Gate B", "device-1", logger), m, sink, frames
}

func TestScan_NoFrameSkipsNetwork(t *testing.T) {
	// Подготовка
	p, _, _, frames := newTestPromoter(t)
	frames.EXPECT().Frame().Return(nil, capture.ErrNoActiveStream)

	// Действие
	_, err := p.Scan(context.Background(), frames)

	// Проверка: Match не ожидается, gomock упадет при вызове
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestScan_ThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		promoted bool
	}{
		{"at threshold", 0.85, false},
		{"just above", 0.850001, true},
		{"below", 0.4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, m, sink, frames := newTestPromoter(t)
			frame := []byte{0xff, 0xd8}
			frames.EXPECT().Frame().Return(frame, nil)
			m.EXPECT().Match(gomock.Any(), frame).Return([]models.MatchCandidate{
				{Score: 0.1, Description: "umbrella"},
				{Score: tt.score, Description: "red backpack"},
			}, nil)
			if tt.promoted {
				sink.EXPECT().Ingest(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, pl normalizer.Payload) (models.Incident, error) {
						mp, ok := pl.(normalizer.MatchPayload)
						require.True(t, ok)
						assert.Equal(t, tt.score, mp.Candidate.Score)
						assert.Equal(t, "Gate B", mp.Zone)
						return models.Incident{ID: "inc-1", Type: models.TypeLostFoundMatch}, nil
					})
			}

			res, err := p.Scan(context.Background(), frames)

			require.NoError(t, err)
			assert.Equal(t, tt.promoted, res.Promoted())
			require.NotNil(t, res.Top)
			assert.Equal(t, "red backpack", res.Top.Description)
		})
	}
}

func TestScan_NoCandidates(t *testing.T) {
	p, m, _, frames := newTestPromoter(t)
	frames.EXPECT().Frame().Return([]byte{1}, nil)
	m.EXPECT().Match(gomock.Any(), gomock.Any()).Return(nil, nil)

	res, err := p.Scan(context.Background(), frames)

	require.NoError(t, err)
	assert.False(t, res.Promoted())
	assert.Nil(t, res.Top)
}

func TestScan_MatcherError(t *testing.T) {
	p, m, _, frames := newTestPromoter(t)
	frames.EXPECT().Frame().Return([]byte{1}, nil)
	m.EXPECT().Match(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := p.Scan(context.Background(), frames)
	assert.Error(t, err)
}

func TestHTTPMatcher_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lostfound/match", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{{"score": 0.91, "description": "blue jacket"}},
		})
	}))
	defer srv.Close()

	m := NewHTTPMatcher(srv.URL+"/api/v1/", "key", 0)
	got, err := m.Match(context.Background(), []byte{0xff, 0xd8})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.91, got[0].Score)
	assert.Equal(t, "blue jacket", got[0].Description)
}

func TestHTTPMatcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPMatcher(srv.URL, "", 0).Match(context.Background(), []byte{1})
	assert.Error(t, err)
}
