package consumer

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

// Notification - запись ленты уведомлений
type Notification struct {
	ID         string          `json:"id"`
	IncidentID string          `json:"incidentId"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	Priority   models.Priority `json:"priority"`
	Zone       string          `json:"zone"`
	Timestamp  time.Time       `json:"timestamp"`
	Read       bool            `json:"read"`
}

// NotificationView строит уведомления из новых инцидентов.
// Каждый инцидент дает не больше одного уведомления.
type NotificationView struct {
	limit int

	mu       sync.RWMutex
	entries  []Notification
	seen     map[string]bool
	baseline bool
}

// NewNotificationView создает ленту уведомлений на limit записей
func NewNotificationView(limit int) *NotificationView {
	if limit <= 0 {
		limit = 50
	}
	return &NotificationView{
		limit: limit,
		seen:  make(map[string]bool),
	}
}

// Notify добавляет уведомление для еще не виденного инцидента
func (n *NotificationView) Notify(inc models.Incident) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseline = true
	return n.add(inc)
}

// Reconcile догоняет пропущенные push по результату pull. Первый pull только
// запоминает уже существующие инциденты, чтобы не засыпать оператора историей.
func (n *NotificationView) Reconcile(pulled []models.Incident) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.baseline {
		for _, inc := range pulled {
			n.seen[inc.ID] = true
		}
		n.baseline = true
		return 0
	}
	added := 0
	// pull отсортирован от новых к старым, добавляем со старых
	for i := len(pulled) - 1; i >= 0; i-- {
		if n.add(pulled[i]) {
			added++
		}
	}
	n.prune(pulled)
	return added
}

// prune оставляет в seen только инциденты последнего pull и текущих записей
func (n *NotificationView) prune(pulled []models.Incident) {
	keep := make(map[string]bool, len(pulled)+len(n.entries))
	for _, inc := range pulled {
		keep[inc.ID] = true
	}
	for _, e := range n.entries {
		keep[e.IncidentID] = true
	}
	for id := range n.seen {
		if !keep[id] {
			delete(n.seen, id)
		}
	}
}

func (n *NotificationView) add(inc models.Incident) bool {
	if inc.ID == "" || n.seen[inc.ID] {
		return false
	}
	n.seen[inc.ID] = true

	severity := models.ClampSeverity(inc.Severity)
	ts := inc.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	entry := Notification{
		ID:         "live-" + inc.ID,
		IncidentID: inc.ID,
		Title:      strings.ReplaceAll(string(inc.Type), "_", " "),
		Message:    fmt.Sprintf("Live incident in %s (severity %s)", inc.Zone, strconv.FormatFloat(severity, 'f', -1, 64)),
		Priority:   models.PriorityFor(severity),
		Zone:       inc.Zone,
		Timestamp:  ts,
	}
	n.entries = append([]Notification{entry}, n.entries...)
	if len(n.entries) > n.limit {
		n.entries = n.entries[:n.limit]
	}
	return true
}

// MarkRead помечает уведомление прочитанным
func (n *NotificationView) MarkRead(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.entries {
		if n.entries[i].ID == id || n.entries[i].IncidentID == id {
			n.entries[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead помечает все уведомления прочитанными
func (n *NotificationView) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.entries {
		n.entries[i].Read = true
	}
}

// Entries - уведомления, новые первыми; priority пустой - без фильтра
func (n *NotificationView) Entries(unreadOnly bool, priority models.Priority) []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Notification, 0, len(n.entries))
	for _, e := range n.entries {
		if unreadOnly && e.Read {
			continue
		}
		if priority != "" && e.Priority != priority {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Unread - число непрочитанных
func (n *NotificationView) Unread() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, e := range n.entries {
		if !e.Read {
			count++
		}
	}
	return count
}
