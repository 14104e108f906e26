// Package lostfound хранит заявки бюро находок в памяти процесса.
package lostfound

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/event_rescue/internal/models"
)

const (
	StatusReported = "reported"
	DefaultLimit   = 200
)

var ErrMissingReporter = errors.New("reporter is required")

// Registry - список заявок, новые первыми
type Registry struct {
	limit int
	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	items []models.LostFoundItem
}

// NewRegistry создает реестр на limit заявок
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Registry{
		limit: limit,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Report регистрирует заявку
func (r *Registry) Report(reporter, description, imageRef string) (models.LostFoundItem, error) {
	reporter = strings.TrimSpace(reporter)
	if reporter == "" {
		return models.LostFoundItem{}, ErrMissingReporter
	}
	item := models.LostFoundItem{
		ID:          r.newID(),
		Reporter:    reporter,
		Description: strings.TrimSpace(description),
		ImageRef:    imageRef,
		Status:      StatusReported,
		Timestamp:   r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]models.LostFoundItem, 0, min(len(r.items)+1, r.limit))
	next = append(next, item)
	next = append(next, r.items[:min(len(r.items), r.limit-1)]...)
	r.items = next
	return item, nil
}

// List возвращает копию списка заявок
func (r *Registry) List() []models.LostFoundItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LostFoundItem, len(r.items))
	copy(out, r.items)
	return out
}
