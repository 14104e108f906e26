// Package consumer синхронизирует локальные представления ленты (панель властей,
// участник, уведомления) с сервером: периодический pull плюс push.
package consumer

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
)

// ErrUnknownIncident - инцидента нет в локальном представлении
var ErrUnknownIncident = errors.New("incident not in view")

// Kind - вид представления
type Kind string

const (
	KindAuthority    Kind = "authority"
	KindParticipant  Kind = "participant"
	KindNotification Kind = "notification"
)

// Filter - пользовательский фильтр. Пустые списки пропускают все.
type Filter struct {
	Statuses    []models.Status
	Types       []models.IncidentType
	MinSeverity float64
}

// Match проверяет инцидент по фильтру
func (f Filter) Match(inc models.Incident) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inc.Status) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, inc.Type) {
		return false
	}
	return inc.Severity >= f.MinSeverity
}

// DefaultFilter - фильтр по умолчанию для вида: участник не видит закрытые инциденты
func DefaultFilter(kind Kind) Filter {
	if kind == KindParticipant {
		return Filter{Statuses: []models.Status{models.StatusActive, models.StatusAcknowledged}}
	}
	return Filter{}
}

type pendingEdit struct {
	status models.Status
	issued time.Time
}

// View - кэш ленты на стороне потребителя с локальными оптимистичными правками.
// Каноническое состояние принадлежит серверу; View его только отражает.
type View struct {
	kind  Kind
	limit int
	now   func() time.Time

	mu      sync.RWMutex
	filter  Filter
	items   []models.Incident
	pending map[string]pendingEdit
	pushed  map[string]time.Time
}

// NewView создает представление на limit инцидентов
func NewView(kind Kind, limit int, filter Filter) *View {
	if limit <= 0 {
		limit = 20
	}
	return &View{
		kind:    kind,
		limit:   limit,
		now:     time.Now,
		filter:  filter,
		pending: make(map[string]pendingEdit),
		pushed:  make(map[string]time.Time),
	}
}

func (v *View) Kind() Kind { return v.kind }

// SetFilter меняет фильтр, хранимые данные не затрагиваются
func (v *View) SetFilter(f Filter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
}

func (v *View) Filter() Filter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter
}

// Reconcile применяет авторитетный pull: список заменяется целиком, правки,
// сделанные до начала запроса, снимаются. Если сервер уже ушел дальше локальной
// правки, побеждает сервер, конфликт не показывается. Push, пришедший после
// startedAt, новее ответа: его статус не откатывается, а новый инцидент остается.
func (v *View) Reconcile(pulled []models.Incident, startedAt time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	items := make([]models.Incident, 0, min(len(pulled), v.limit))
	seen := make(map[string]bool, len(pulled))
	for _, cur := range v.items {
		at, ok := v.pushed[cur.ID]
		if !ok || !at.After(startedAt) || len(items) == v.limit ||
			slices.ContainsFunc(pulled, func(inc models.Incident) bool { return inc.ID == cur.ID }) {
			continue
		}
		seen[cur.ID] = true
		items = append(items, cur)
	}
	for _, inc := range pulled {
		if seen[inc.ID] || len(items) == v.limit {
			continue
		}
		seen[inc.ID] = true
		inc = canonical(inc)
		if at, ok := v.pushed[inc.ID]; ok && at.After(startedAt) {
			if idx := v.indexOf(inc.ID); idx >= 0 {
				inc.Status = models.Latest(v.items[idx].Status, inc.Status)
			}
		}
		items = append(items, inc)
	}

	v.items = items
	for id, at := range v.pushed {
		if !at.After(startedAt) || !seen[id] {
			delete(v.pushed, id)
		}
	}
	for id, edit := range v.pending {
		idx := v.indexOf(id)
		if idx < 0 || !edit.issued.After(startedAt) || items[idx].Status.Rank() >= edit.status.Rank() {
			delete(v.pending, id)
		}
	}
}

// ApplyPush выполняет upsert одного инцидента, список целиком не заменяется
func (v *View) ApplyPush(inc models.Incident) {
	inc = canonical(inc)

	v.mu.Lock()
	defer v.mu.Unlock()

	if idx := v.indexOf(inc.ID); idx >= 0 {
		inc.Status = models.Latest(v.items[idx].Status, inc.Status)
		next := slices.Clone(v.items)
		next[idx] = inc
		v.items = next
	} else {
		next := make([]models.Incident, 0, v.limit)
		next = append(next, inc)
		next = append(next, v.items[:min(len(v.items), v.limit-1)]...)
		v.items = next
	}
	v.pushed[inc.ID] = v.now()
	if edit, ok := v.pending[inc.ID]; ok && inc.Status.Rank() >= edit.status.Rank() {
		delete(v.pending, inc.ID)
	}
}

// Acknowledge - оптимистичная локальная правка
func (v *View) Acknowledge(id string) error {
	return v.edit(id, models.StatusAcknowledged)
}

// Resolve - оптимистичная локальная правка
func (v *View) Resolve(id string) error {
	return v.edit(id, models.StatusResolved)
}

func (v *View) edit(id string, status models.Status) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := v.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownIncident, id)
	}
	current := v.effectiveStatus(v.items[idx])
	next, err := current.Advance(status)
	if err != nil {
		return err
	}
	if next == current {
		return nil
	}
	v.pending[id] = pendingEdit{status: next, issued: v.now()}
	return nil
}

// Pending возвращает неподтвержденную правку статуса
func (v *View) Pending(id string) (models.Status, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	edit, ok := v.pending[id]
	return edit.status, ok
}

// Visible - отфильтрованный список с примененными локальными правками
func (v *View) Visible() []models.Incident {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]models.Incident, 0, len(v.items))
	for _, inc := range v.items {
		inc.Status = v.effectiveStatus(inc)
		if !v.filter.Match(inc) {
			continue
		}
		if inc.Location != nil {
			loc := *inc.Location
			inc.Location = &loc
		}
		out = append(out, inc)
	}
	return out
}

// Len - число инцидентов в кэше без учета фильтра
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

func (v *View) effectiveStatus(inc models.Incident) models.Status {
	if edit, ok := v.pending[inc.ID]; ok {
		return models.Latest(inc.Status, edit.status)
	}
	return inc.Status
}

func (v *View) indexOf(id string) int {
	for i := range v.items {
		if v.items[i].ID == id {
			return i
		}
	}
	return -1
}

// canonical восстанавливает инварианты на случай устаревшего или чужого сервера
func canonical(inc models.Incident) models.Incident {
	inc.Severity = models.ClampSeverity(inc.Severity)
	inc.Confidence = models.ConfidenceFor(inc.Severity)
	if !inc.Status.Valid() {
		inc.Status = models.StatusActive
	}
	return inc
}
