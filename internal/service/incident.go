package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/dispatch"
	"github.com/shenikar/event_rescue/internal/feed"
	"github.com/shenikar/event_rescue/internal/metrics"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/shenikar/event_rescue/internal/vision"
	"github.com/sirupsen/logrus"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrDispatchDisabled = errors.New("dispatch queue is not configured")
	ErrVisionDisabled   = errors.New("vision service is not configured")
)

// ErrUpstream - внешний сервис (зрение, сопоставление) ответил ошибкой
var ErrUpstream = errors.New("upstream service failed")

// IncidentRepository определяет контракт архива инцидентов
//
//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks
type IncidentRepository interface {
	Save(ctx context.Context, incident models.Incident) error
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	GetByID(ctx context.Context, id string) (*models.Incident, error)
	ListRecent(ctx context.Context, limit int) ([]models.Incident, error)
	GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id string) error
}

// VisionClient - внешний сервис анализа кадров и управления камерами
type VisionClient interface {
	Analyze(ctx context.Context, frame []byte) (models.FrameAnalysis, error)
	Start(ctx context.Context, zone, source string) (vision.CameraStatus, error)
	Stop(ctx context.Context, zone string) (vision.CameraStatus, error)
}

// IncidentService определяет контракт приема и ведения инцидентов
type IncidentService interface {
	Ingest(ctx context.Context, p normalizer.Payload) (models.Incident, error)
	IngestBatch(ctx context.Context, payloads []normalizer.Payload) ([]models.Incident, error)
	SubmitVoiceAlert(ctx context.Context, submission models.VoiceAlertSubmission) (models.Incident, error)
	ListIncidents(ctx context.Context) []models.Incident
	GetIncident(ctx context.Context, id string) (models.Incident, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (models.Incident, error)
	Summary(ctx context.Context) string
	Dispatch(ctx context.Context, id string) (dispatch.Event, error)
	AnalyzeFrame(ctx context.Context, frame []byte, zone string) (models.FrameAnalysis, *models.Incident, error)
	StartCamera(ctx context.Context, zone, source string) (vision.CameraStatus, error)
	StopCamera(ctx context.Context, zone string) (vision.CameraStatus, error)
	Warm(ctx context.Context) error
}

type incidentService struct {
	feed       *feed.Distributor
	repo       IncidentRepository
	publisher  dispatch.Publisher
	policy     dispatch.Policy
	vision     VisionClient
	normalizer *normalizer.Normalizer
	metrics    *metrics.Metrics
	logger     *logrus.Logger
	now        func() time.Time
}

// Option настраивает сервис
type Option func(*incidentService)

// WithVision подключает сервис зрения
func WithVision(v VisionClient) Option {
	return func(s *incidentService) { s.vision = v }
}

// WithMetrics подключает метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *incidentService) { s.metrics = m }
}

// WithNormalizer подменяет нормализатор
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(s *incidentService) { s.normalizer = n }
}

// NewIncidentService создает сервис. repo и publisher могут быть nil:
// без них архив и диспетчеризация отключены.
func NewIncidentService(d *feed.Distributor, repo IncidentRepository, logger *logrus.Logger, cfg *config.Config, publisher dispatch.Publisher, opts ...Option) IncidentService {
	s := &incidentService{
		feed:       d,
		repo:       repo,
		publisher:  publisher,
		policy:     dispatch.Policy{VoiceConfidence: cfg.DispatchConfidence},
		normalizer: normalizer.New(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest нормализует полезную нагрузку и сохраняет инцидент в ленте.
// Сбой архива или очереди диспетчеризации логируется и не отменяет прием.
func (s *incidentService) Ingest(ctx context.Context, p normalizer.Payload) (models.Incident, error) {
	start := s.now()
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Ingest",
	})

	incident, err := s.normalizer.Normalize(p)
	if err != nil {
		if s.metrics != nil && p != nil {
			s.metrics.NormalizeFailures.WithLabelValues(string(p.Source())).Inc()
		}
		log.WithError(err).Warn("Rejected payload")
		return models.Incident{}, fmt.Errorf("service: could not normalize payload: %w", err)
	}

	stored, created := s.feed.Ingest(incident)
	log = log.WithFields(logrus.Fields{
		"incident_id": stored.ID,
		"type":        stored.Type,
		"created":     created,
	})

	s.archive(ctx, log, stored)
	if created {
		if reason, ok := s.policy.Evaluate(stored); ok {
			s.enqueueDispatch(ctx, log, stored, reason)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveIngest(start)
	}
	log.Info("Incident ingested")
	return stored, nil
}

// IngestBatch принимает пачку. Плохая запись не блокирует остальные.
func (s *incidentService) IngestBatch(ctx context.Context, payloads []normalizer.Payload) ([]models.Incident, error) {
	stored := make([]models.Incident, 0, len(payloads))
	var errs []error
	for i, p := range payloads {
		inc, err := s.Ingest(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		stored = append(stored, inc)
	}
	return stored, errors.Join(errs...)
}

// SubmitVoiceAlert принимает сигнал детектора голоса с устройства участника
func (s *incidentService) SubmitVoiceAlert(ctx context.Context, submission models.VoiceAlertSubmission) (models.Incident, error) {
	deviceID := submission.DeviceID
	if deviceID == "" && submission.DeviceInfo != nil {
		deviceID = submission.DeviceInfo.DeviceID
	}
	s.logger.WithFields(logrus.Fields{
		"service":    "incident",
		"method":     "SubmitVoiceAlert",
		"category":   submission.Category,
		"device_id":  deviceID,
		"confidence": submission.Confidence,
	}).Info("Voice alert received")

	if s.metrics != nil && submission.Category.Valid() {
		s.metrics.VoiceAlertsTotal.WithLabelValues(string(submission.Category)).Inc()
	}
	return s.Ingest(ctx, normalizer.VoicePayload{Alert: submission.VoiceAlert, DeviceID: deviceID})
}

// ListIncidents возвращает ленту, новые первыми
func (s *incidentService) ListIncidents(_ context.Context) []models.Incident {
	return s.feed.Snapshot()
}

// GetIncident ищет инцидент в ленте, затем в кэше и архиве
func (s *incidentService) GetIncident(ctx context.Context, id string) (models.Incident, error) {
	if inc, ok := s.feed.Get(id); ok {
		return inc, nil
	}
	if s.repo == nil {
		return models.Incident{}, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return *cached, nil
	}

	archived, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Info("Failed to get incident from archive")
		return models.Incident{}, fmt.Errorf("service: could not get incident: %w", err)
	}
	if err := s.repo.SetIncidentCache(ctx, archived); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return *archived, nil
}

// UpdateStatus продвигает статус вперед. Откат дает models.ErrStatusRegression.
func (s *incidentService) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": id,
		"status":      status,
	})

	updated, err := s.feed.UpdateStatus(id, status)
	switch {
	case errors.Is(err, feed.ErrNotFound):
		// инцидент вытеснен из ленты, но может быть в архиве
		updated, err = s.updateArchived(ctx, id, status)
		if err != nil {
			return models.Incident{}, err
		}
	case err != nil:
		log.WithError(err).Warn("Status change rejected")
		return updated, fmt.Errorf("service: could not update status: %w", err)
	default:
		if s.repo != nil {
			if err := s.repo.UpdateStatus(ctx, id, updated.Status); err != nil {
				log.WithError(err).Error("Failed to archive status change")
			}
			s.invalidate(ctx, log, id)
		}
	}

	if s.metrics != nil {
		s.metrics.StatusTransitionTotal.WithLabelValues(string(updated.Status)).Inc()
	}
	log.Info("Incident status updated")
	return updated, nil
}

func (s *incidentService) updateArchived(ctx context.Context, id string, status models.Status) (models.Incident, error) {
	current, err := s.GetIncident(ctx, id)
	if err != nil {
		return models.Incident{}, err
	}
	next, err := current.Status.Advance(status)
	if err != nil {
		return current, fmt.Errorf("service: could not update status: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return current, fmt.Errorf("service: could not update archived status: %w", err)
	}
	s.invalidate(ctx, s.logger.WithField("incident_id", id), id)
	current.Status = next
	return current, nil
}

// Summary - текстовая сводка по ленте
func (s *incidentService) Summary(_ context.Context) string {
	return s.feed.Summary()
}

// Dispatch вручную вызывает службу к инциденту
func (s *incidentService) Dispatch(ctx context.Context, id string) (dispatch.Event, error) {
	if s.publisher == nil {
		return dispatch.Event{}, ErrDispatchDisabled
	}
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return dispatch.Event{}, err
	}
	event := s.newEvent(inc, dispatch.ReasonManual)
	if err := s.publisher.Publish(ctx, event); err != nil {
		return dispatch.Event{}, fmt.Errorf("service: could not enqueue dispatch: %w", err)
	}
	return event, nil
}

// AnalyzeFrame отправляет кадр в сервис зрения. Огонь или дым становятся инцидентом зоны.
func (s *incidentService) AnalyzeFrame(ctx context.Context, frame []byte, zone string) (models.FrameAnalysis, *models.Incident, error) {
	if s.vision == nil {
		return models.FrameAnalysis{}, nil, ErrVisionDisabled
	}
	analysis, err := s.vision.Analyze(ctx, frame)
	if err != nil {
		return models.FrameAnalysis{}, nil, fmt.Errorf("service: could not analyze frame: %w: %w", ErrUpstream, err)
	}
	payload, ok := vision.PayloadFromAnalysis(analysis, zone)
	if !ok {
		return analysis, nil, nil
	}
	inc, err := s.Ingest(ctx, payload)
	if err != nil {
		return analysis, nil, err
	}
	return analysis, &inc, nil
}

// StartCamera запускает анализ потока камеры
func (s *incidentService) StartCamera(ctx context.Context, zone, source string) (vision.CameraStatus, error) {
	if s.vision == nil {
		return vision.CameraStatus{}, ErrVisionDisabled
	}
	status, err := s.vision.Start(ctx, zone, source)
	if err != nil {
		return status, fmt.Errorf("service: could not start camera: %w: %w", ErrUpstream, err)
	}
	return status, nil
}

// StopCamera останавливает анализ потока камеры
func (s *incidentService) StopCamera(ctx context.Context, zone string) (vision.CameraStatus, error) {
	if s.vision == nil {
		return vision.CameraStatus{}, ErrVisionDisabled
	}
	status, err := s.vision.Stop(ctx, zone)
	if err != nil {
		return status, fmt.Errorf("service: could not stop camera: %w: %w", ErrUpstream, err)
	}
	return status, nil
}

// Warm загружает последние инциденты архива в ленту, старые первыми
func (s *incidentService) Warm(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	recent, err := s.repo.ListRecent(ctx, s.feed.Size())
	if err != nil {
		return fmt.Errorf("service: could not load archive: %w", err)
	}
	for i := len(recent) - 1; i >= 0; i-- {
		s.feed.Ingest(recent[i])
	}
	s.logger.WithField("count", len(recent)).Info("Feed warmed from archive")
	return nil
}

func (s *incidentService) archive(ctx context.Context, log *logrus.Entry, inc models.Incident) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, inc); err != nil {
		log.WithError(err).Error("Failed to archive incident")
		return
	}
	s.invalidate(ctx, log, inc.ID)
}

func (s *incidentService) invalidate(ctx context.Context, log *logrus.Entry, id string) {
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
}

func (s *incidentService) enqueueDispatch(ctx context.Context, log *logrus.Entry, inc models.Incident, reason dispatch.Reason) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.newEvent(inc, reason)); err != nil {
		log.WithError(err).Error("Failed to enqueue dispatch event")
		return
	}
	log.WithField("reason", reason).Info("Dispatch event enqueued")
}

func (s *incidentService) newEvent(inc models.Incident, reason dispatch.Reason) dispatch.Event {
	return dispatch.Event{
		Incident:   inc,
		Reason:     reason,
		Team:       dispatch.TeamFor(inc.Type),
		Responders: dispatch.Responders(inc),
		Timestamp:  s.now().UTC(),
	}
}
