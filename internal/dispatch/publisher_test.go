package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shenikar/event_rescue/internal/dispatch"
	"github.com/shenikar/event_rescue/internal/dispatch/mocks"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestQueuePublisher_Publish(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockQueue(ctrl)
	publisher := dispatch.NewQueuePublisher(queue)

	event := dispatch.Event{
		Incident: models.Incident{ID: "inc-1", Type: models.TypeFireDetected},
		Reason:   dispatch.ReasonCritical,
		Team:     dispatch.TeamFire,
	}

	queue.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, payload []byte) error {
		var got dispatch.Event
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "inc-1", got.Incident.ID)
		assert.Equal(t, dispatch.TeamFire, got.Team)
		return nil
	})

	assert.NoError(t, publisher.Publish(context.Background(), event))
}

func TestQueuePublisher_PushError(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockQueue(ctrl)
	queue.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	err := dispatch.NewQueuePublisher(queue).Publish(context.Background(), dispatch.Event{})
	assert.Error(t, err)
}
