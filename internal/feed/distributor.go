// Package feed владеет канонической лентой инцидентов: ограниченной,
// упорядоченной от новых к старым и без дублей по id.
package feed

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shenikar/event_rescue/internal/models"
)

const DefaultSize = 20

var ErrNotFound = errors.New("incident not found in feed")

// Hooks - необязательные обратные вызовы для метрик
type Hooks struct {
	OnIngest      func(t models.IncidentType, created bool)
	OnEvict       func(id string)
	OnPushDropped func()
	OnSize        func(n int)
}

// Distributor - единственный владелец канонического состояния инцидентов.
// Список заменяется целиком под мьютексом, читатели получают копию.
type Distributor struct {
	mu      sync.RWMutex
	size    int
	items   []models.Incident
	subs    map[uint64]*Subscription
	nextSub uint64
	hooks   Hooks
}

// Option настраивает Distributor
type Option func(*Distributor)

// WithHooks подключает обратные вызовы
func WithHooks(h Hooks) Option {
	return func(d *Distributor) { d.hooks = h }
}

// New создает ленту на size последних инцидентов
func New(size int, opts ...Option) *Distributor {
	if size <= 0 {
		size = DefaultSize
	}
	d := &Distributor{
		size:  size,
		items: make([]models.Incident, 0, size),
		subs:  make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Size возвращает максимальную длину ленты
func (d *Distributor) Size() int { return d.size }

// Ingest выполняет upsert по id. Существующая запись заменяется на месте
// (последняя запись побеждает для severity/zone/description), но статус
// никогда не откатывается. Новая запись добавляется в начало, лента обрезается до size.
func (d *Distributor) Ingest(inc models.Incident) (models.Incident, bool) {
	inc.Severity = models.ClampSeverity(inc.Severity)
	inc.Confidence = models.ConfidenceFor(inc.Severity)
	if !inc.Status.Valid() {
		inc.Status = models.StatusActive
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(inc.ID)
	var next []models.Incident
	created := idx < 0
	if created {
		keep := len(d.items)
		if keep > d.size-1 {
			keep = d.size - 1
		}
		next = make([]models.Incident, 0, d.size)
		next = append(next, inc)
		next = append(next, d.items[:keep]...)
		if d.hooks.OnEvict != nil {
			for _, evicted := range d.items[keep:] {
				d.hooks.OnEvict(evicted.ID)
			}
		}
	} else {
		inc.Status = models.Latest(d.items[idx].Status, inc.Status)
		next = make([]models.Incident, len(d.items), d.size)
		copy(next, d.items)
		next[idx] = inc
	}
	d.items = next

	if d.hooks.OnIngest != nil {
		d.hooks.OnIngest(inc.Type, created)
	}
	if d.hooks.OnSize != nil {
		d.hooks.OnSize(len(d.items))
	}
	d.publish(inc)
	return cloneIncident(inc), created
}

// UpdateStatus продвигает статус инцидента вперед
func (d *Distributor) UpdateStatus(id string, status models.Status) (models.Incident, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(id)
	if idx < 0 {
		return models.Incident{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := d.items[idx]
	advanced, err := current.Status.Advance(status)
	if err != nil {
		return cloneIncident(current), err
	}
	if advanced == current.Status {
		return cloneIncident(current), nil
	}

	current.Status = advanced
	next := make([]models.Incident, len(d.items), d.size)
	copy(next, d.items)
	next[idx] = current
	d.items = next

	d.publish(current)
	return cloneIncident(current), nil
}

// Snapshot возвращает копию текущей ленты, новые первыми
func (d *Distributor) Snapshot() []models.Incident {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Incident, len(d.items))
	for i, inc := range d.items {
		out[i] = cloneIncident(inc)
	}
	return out
}

// Get возвращает инцидент по id
func (d *Distributor) Get(id string) (models.Incident, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := d.indexOf(id)
	if idx < 0 {
		return models.Incident{}, false
	}
	return cloneIncident(d.items[idx]), true
}

// Len возвращает текущее количество инцидентов
func (d *Distributor) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

func (d *Distributor) indexOf(id string) int {
	for i := range d.items {
		if d.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneIncident(inc models.Incident) models.Incident {
	if inc.Location != nil {
		loc := *inc.Location
		inc.Location = &loc
	}
	return inc
}
