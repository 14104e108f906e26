package consumer

import (
	"fmt"
	"testing"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func inc(id string, status models.Status, severity float64) models.Incident {
	return models.Incident{
		ID:        id,
		Type:      models.TypeCrowdSurge,
		Severity:  severity,
		Zone:      "North Gate",
		Status:    status,
		Timestamp: base,
	}
}

// newClockedView возвращает представление и функцию сдвига его часов
func newClockedView(kind Kind) (*View, func(time.Duration) time.Time) {
	v := NewView(kind, 20, DefaultFilter(kind))
	now := base
	v.now = func() time.Time { return now }
	return v, func(d time.Duration) time.Time {
		now = now.Add(d)
		return now
	}
}

func TestReconcile_ReplacesAndTruncates(t *testing.T) {
	v := NewView(KindAuthority, 3, Filter{})
	var pulled []models.Incident
	for i := 0; i < 5; i++ {
		pulled = append(pulled, inc(fmt.Sprintf("i%d", i), models.StatusActive, 0.5))
	}

	v.Reconcile(pulled, base)
	got := v.Visible()

	require.Len(t, got, 3)
	assert.Equal(t, "i0", got[0].ID)
	assert.Equal(t, "i2", got[2].ID)

	v.Reconcile(pulled[4:], base)
	assert.Equal(t, 1, v.Len())
}

func TestAcknowledge_IsOptimistic(t *testing.T) {
	v, _ := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)

	require.NoError(t, v.Acknowledge("a"))

	assert.Equal(t, models.StatusAcknowledged, v.Visible()[0].Status)
	pending, ok := v.Pending("a")
	assert.True(t, ok)
	assert.Equal(t, models.StatusAcknowledged, pending)
}

func TestReconcile_AuthoritativeWinsOverPendingEdit(t *testing.T) {
	v, advance := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)
	advance(time.Second)
	require.NoError(t, v.Acknowledge("a"))

	// другой оператор уже закрыл инцидент
	pullStart := advance(time.Second)
	v.Reconcile([]models.Incident{inc("a", models.StatusResolved, 0.5)}, pullStart)

	assert.Equal(t, models.StatusResolved, v.Visible()[0].Status)
	_, ok := v.Pending("a")
	assert.False(t, ok)
}

func TestReconcile_UnconfirmedEditIsSuperseded(t *testing.T) {
	v, advance := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)
	advance(time.Second)
	require.NoError(t, v.Acknowledge("a"))

	pullStart := advance(3 * time.Second)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, pullStart)

	assert.Equal(t, models.StatusActive, v.Visible()[0].Status)
}

func TestReconcile_KeepsEditIssuedDuringPull(t *testing.T) {
	v, advance := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)

	pullStart := advance(time.Second)
	advance(100 * time.Millisecond)
	require.NoError(t, v.Resolve("a"))
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, pullStart)

	assert.Equal(t, models.StatusResolved, v.Visible()[0].Status)
}

func TestReconcile_StalePullDoesNotUndoPush(t *testing.T) {
	v, advance := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)

	pullStart := advance(time.Second)
	advance(100 * time.Millisecond)
	v.ApplyPush(inc("a", models.StatusResolved, 0.5))
	v.ApplyPush(inc("n", models.StatusActive, 0.7))
	assert.Equal(t, models.StatusResolved, v.Visible()[1].Status)

	v.Reconcile([]models.Incident{inc("a", models.StatusAcknowledged, 0.5)}, pullStart)

	got := v.Visible()
	require.Len(t, got, 2)
	assert.Equal(t, "n", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.StatusResolved, got[1].Status)

	// следующий pull начат после push и снова авторитетен
	v.Reconcile([]models.Incident{inc("a", models.StatusResolved, 0.5)}, advance(time.Second))
	got = v.Visible()
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusResolved, got[0].Status)
}

func TestEdit_Errors(t *testing.T) {
	v, _ := newClockedView(KindAuthority)
	v.Reconcile([]models.Incident{inc("a", models.StatusActive, 0.5)}, base)

	assert.ErrorIs(t, v.Acknowledge("missing"), ErrUnknownIncident)

	require.NoError(t, v.Resolve("a"))
	assert.ErrorIs(t, v.Acknowledge("a"), models.ErrStatusRegression)
}

func TestApplyPush_UpsertsWithoutReplacingList(t *testing.T) {
	v := NewView(KindAuthority, 3, Filter{})
	v.Reconcile([]models.Incident{
		inc("a", models.StatusResolved, 0.5),
		inc("b", models.StatusActive, 0.5),
		inc("c", models.StatusActive, 0.5),
	}, base)

	stale := inc("a", models.StatusActive, 0.8)
	v.ApplyPush(stale)
	got := v.Visible()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, models.StatusResolved, got[0].Status)
	assert.Equal(t, 80, got[0].Confidence)

	v.ApplyPush(inc("d", models.StatusActive, 0.2))
	got = v.Visible()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestFilter(t *testing.T) {
	v := NewView(KindParticipant, 20, DefaultFilter(KindParticipant))
	fire := inc("f", models.StatusActive, 0.9)
	fire.Type = models.TypeFireDetected
	v.Reconcile([]models.Incident{
		fire,
		inc("r", models.StatusResolved, 0.9),
		inc("low", models.StatusActive, 0.1),
	}, base)

	assert.Len(t, v.Visible(), 2)

	v.SetFilter(Filter{MinSeverity: 0.5, Types: []models.IncidentType{models.TypeFireDetected}})
	got := v.Visible()
	require.Len(t, got, 1)
	assert.Equal(t, "f", got[0].ID)
	// фильтр не трогает хранимые данные
	assert.Equal(t, 3, v.Len())
}

func TestNotificationView(t *testing.T) {
	n := NewNotificationView(10)
	assert.Equal(t, 0, n.Reconcile([]models.Incident{inc("old", models.StatusActive, 0.5)}))
	assert.Empty(t, n.Entries(false, ""))

	fire := inc("f", models.StatusActive, 0.9)
	fire.Type = models.TypeFireDetected
	fire.Zone = "A"
	assert.True(t, n.Notify(fire))
	assert.False(t, n.Notify(fire))

	added := n.Reconcile([]models.Incident{fire, inc("missed", models.StatusActive, 0.3), inc("old", models.StatusActive, 0.5)})
	assert.Equal(t, 1, added)

	entries := n.Entries(false, "")
	require.Len(t, entries, 2)
	assert.Equal(t, "missed", entries[0].IncidentID)
	assert.Equal(t, models.PriorityMedium, entries[0].Priority)
	assert.Equal(t, "fire detected", entries[1].Title)
	assert.Equal(t, "Live incident in A (severity 0.9)", entries[1].Message)
	assert.Equal(t, models.PriorityCritical, entries[1].Priority)

	assert.True(t, n.MarkRead("f"))
	assert.Equal(t, 1, n.Unread())
	assert.Len(t, n.Entries(true, ""), 1)
	assert.Len(t, n.Entries(false, models.PriorityCritical), 1)
}

func TestNotificationView_SeenSetStaysBounded(t *testing.T) {
	n := NewNotificationView(2)
	n.Reconcile(nil)

	for i := 0; i < 100; i++ {
		n.Reconcile([]models.Incident{inc(fmt.Sprintf("i%d", i), models.StatusActive, 0.5)})
	}

	n.mu.RLock()
	seen := len(n.seen)
	n.mu.RUnlock()
	assert.LessOrEqual(t, seen, 3)
	require.Len(t, n.Entries(false, ""), 2)
	assert.Equal(t, "i99", n.Entries(false, "")[0].IncidentID)

	// инцидент из текущего pull не дает повторного уведомления
	assert.Equal(t, 0, n.Reconcile([]models.Incident{inc("i99", models.StatusActive, 0.5)}))
}
