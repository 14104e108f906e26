package feed

import "github.com/shenikar/event_rescue/internal/models"

// Subscription получает каждое сохраненное изменение ленты.
// Доставка best-effort: при заполненном буфере событие отбрасывается,
// подписчик восстанавливается следующим pull.
type Subscription struct {
	id     uint64
	ch     chan models.Incident
	d      *Distributor
	closed bool
}

// C возвращает канал событий. Закрывается после Close.
func (s *Subscription) C() <-chan models.Incident { return s.ch }

// Close отписывает подписчика. Повторный вызов безопасен.
func (s *Subscription) Close() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.d.subs, s.id)
	close(s.ch)
}

// Subscribe регистрирует подписчика с буфером buffer
func (d *Distributor) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	sub := &Subscription{
		id: d.nextSub,
		ch: make(chan models.Incident, buffer),
		d:  d,
	}
	d.subs[sub.id] = sub
	return sub
}

// publish вызывается под d.mu и никогда не блокируется
func (d *Distributor) publish(inc models.Incident) {
	for _, sub := range d.subs {
		select {
		case sub.ch <- cloneIncident(inc):
		default:
			if d.hooks.OnPushDropped != nil {
				d.hooks.OnPushDropped()
			}
		}
	}
}
