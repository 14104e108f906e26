package consumer

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultIncidentInterval  = 3 * time.Second
	DefaultSummaryInterval   = 5 * time.Second
	DefaultLostFoundInterval = 5 * time.Second
)

// API - серверные вызовы, нужные потребителю
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type API interface {
	ListIncidents(ctx context.Context) ([]models.Incident, error)
	Summary(ctx context.Context) (string, error)
	ListLostFound(ctx context.Context) ([]models.LostFoundItem, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (models.Incident, error)
}

// PushSource доставляет push-сообщения до отмены ctx
type PushSource interface {
	Run(ctx context.Context, handle func(models.Incident))
}

// RunnerConfig - интервалы плановых задач. Нулевой интервал отключает задачу.
type RunnerConfig struct {
	IncidentInterval  time.Duration
	SummaryInterval   time.Duration
	LostFoundInterval time.Duration
}

// DefaultRunnerConfig - интервалы панели властей
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		IncidentInterval:  DefaultIncidentInterval,
		SummaryInterval:   DefaultSummaryInterval,
		LostFoundInterval: DefaultLostFoundInterval,
	}
}

// Runner владеет плановыми задачами потребителя и push-слушателем.
// Ошибка задачи логируется, повтор происходит на следующем тике без backoff.
type Runner struct {
	api           API
	push          PushSource
	views         []*View
	notifications *NotificationView
	cfg           RunnerConfig
	logger        *logrus.Logger
	now           func() time.Time
	onChange      func()

	mu        sync.RWMutex
	summary   string
	lostFound []models.LostFoundItem
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	forwards  sync.WaitGroup
}

// RunnerOption настраивает Runner
type RunnerOption func(*Runner)

// WithPush подключает push-канал
func WithPush(p PushSource) RunnerOption {
	return func(r *Runner) { r.push = p }
}

// WithNotifications подключает ленту уведомлений
func WithNotifications(n *NotificationView) RunnerOption {
	return func(r *Runner) { r.notifications = n }
}

// WithOnChange вызывается после каждого обновления локальных данных
func WithOnChange(fn func()) RunnerOption {
	return func(r *Runner) { r.onChange = fn }
}

// NewRunner создает синхронизатор для набора представлений
func NewRunner(api API, views []*View, cfg RunnerConfig, logger *logrus.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		api:    api,
		views:  views,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start запускает плановые задачи; каждая делает первый pull сразу
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.schedule(runCtx, r.cfg.IncidentInterval, r.PullIncidents)
	r.schedule(runCtx, r.cfg.SummaryInterval, r.PullSummary)
	r.schedule(runCtx, r.cfg.LostFoundInterval, r.PullLostFound)
	if r.push != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.push.Run(runCtx, r.HandlePush)
		}()
	}
}

// Stop отменяет все задачи и ждет их завершения. Повторный вызов безопасен.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.forwards.Wait()
}

func (r *Runner) schedule(ctx context.Context, interval time.Duration, task func(context.Context) error) {
	if interval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			_ = task(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// PullIncidents - авторитетный pull ленты во все представления
func (r *Runner) PullIncidents(ctx context.Context) error {
	started := r.now()
	incidents, err := r.api.ListIncidents(ctx)
	if err != nil {
		r.warn(ctx, err, "PullIncidents")
		return err
	}
	for _, v := range r.views {
		v.Reconcile(incidents, started)
	}
	if r.notifications != nil {
		r.notifications.Reconcile(incidents)
	}
	r.changed()
	return nil
}

// PullSummary обновляет текстовую сводку
func (r *Runner) PullSummary(ctx context.Context) error {
	summary, err := r.api.Summary(ctx)
	if err != nil {
		r.warn(ctx, err, "PullSummary")
		return err
	}
	r.mu.Lock()
	r.summary = summary
	r.mu.Unlock()
	r.changed()
	return nil
}

// PullLostFound обновляет список бюро находок
func (r *Runner) PullLostFound(ctx context.Context) error {
	items, err := r.api.ListLostFound(ctx)
	if err != nil {
		r.warn(ctx, err, "PullLostFound")
		return err
	}
	r.mu.Lock()
	r.lostFound = items
	r.mu.Unlock()
	r.changed()
	return nil
}

// HandlePush применяет одно push-сообщение ко всем представлениям
func (r *Runner) HandlePush(inc models.Incident) {
	for _, v := range r.views {
		v.ApplyPush(inc)
	}
	if r.notifications != nil {
		r.notifications.Notify(inc)
	}
	r.changed()
}

// SetStatus применяет правку локально и отправляет ее на сервер без ожидания.
// Ошибка отправки только логируется: следующий pull покажет авторитетное значение.
func (r *Runner) SetStatus(ctx context.Context, v *View, id string, status models.Status) error {
	var err error
	switch status {
	case models.StatusAcknowledged:
		err = v.Acknowledge(id)
	case models.StatusResolved:
		err = v.Resolve(id)
	default:
		err = v.edit(id, status)
	}
	if err != nil {
		return err
	}
	r.changed()

	sendCtx := context.WithoutCancel(ctx)
	r.forwards.Add(1)
	go func() {
		defer r.forwards.Done()
		if _, err := r.api.UpdateStatus(sendCtx, id, status); err != nil {
			r.logger.WithFields(logrus.Fields{
				"component":   "consumer",
				"method":      "SetStatus",
				"incident_id": id,
			}).WithError(err).Warn("Failed to forward status change")
		}
	}()
	return nil
}

// Summary - последняя полученная сводка
func (r *Runner) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary
}

// LostFound - последний полученный список бюро находок
func (r *Runner) LostFound() []models.LostFoundItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.lostFound)
}

func (r *Runner) warn(ctx context.Context, err error, method string) {
	if ctx.Err() != nil {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"component": "consumer",
		"method":    method,
	}).WithError(err).Warn("Scheduled pull failed, keeping stale data until next tick")
}

func (r *Runner) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}
