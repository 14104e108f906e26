package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
)

// DefaultThreshold - минимальный score (строго больше) для поднятия совпадения
const DefaultThreshold = 0.85

// ErrNoFrame - кадра нет, сканирование завершено без сетевого вызова
var ErrNoFrame = errors.New("no frame available for scan")

// FrameSource отдает текущий кадр
type FrameSource interface {
	Frame() ([]byte, error)
}

// IncidentSink принимает производный инцидент
//
//go:generate mockgen -source=promoter.go -destination=mocks/mock_promoter.go -package=mocks
type IncidentSink interface {
	Ingest(ctx context.Context, p normalizer.Payload) (models.Incident, error)
}

// Result - итог одного сканирования
type Result struct {
	Candidates []models.MatchCandidate
	Top        *models.MatchCandidate
	Incident   *models.Incident
}

// Promoted сообщает, был ли создан инцидент
func (r Result) Promoted() bool { return r.Incident != nil }

// Promoter выполняет одно сканирование за вызов, по действию пользователя
type Promoter struct {
	matcher   Matcher
	sink      IncidentSink
	threshold float64
	zone      string
	deviceID  string
	logger    *logrus.Logger
	onResult  func(promoted bool)
}

// NewPromoter создает промоутер. threshold вне (0,1) заменяется на DefaultThreshold.
func NewPromoter(m Matcher, sink IncidentSink, threshold float64, zone, deviceID string, logger *logrus.Logger) *Promoter {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Promoter{
		matcher:   m,
		sink:      sink,
		threshold: threshold,
		zone:      zone,
		deviceID:  deviceID,
		logger:    logger,
	}
}

// OnResult подключает счетчик исходов сканирования
func (p *Promoter) OnResult(fn func(promoted bool)) { p.onResult = fn }

// Scan берет кадр, запрашивает кандидатов и поднимает лучшего, если его score строго выше порога
func (p *Promoter) Scan(ctx context.Context, frames FrameSource) (Result, error) {
	log := p.logger.WithFields(logrus.Fields{
		"component": "matcher",
		"method":    "Scan",
	})

	frame, err := frames.Frame()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	if len(frame) == 0 {
		return Result{}, ErrNoFrame
	}

	candidates, err := p.matcher.Match(ctx, frame)
	if err != nil {
		return Result{}, fmt.Errorf("matcher: scan: %w", err)
	}

	res := Result{Candidates: candidates}
	top, ok := Top(candidates)
	if !ok {
		p.report(false)
		return res, nil
	}
	res.Top = &top

	if top.Score <= p.threshold {
		log.WithField("score", top.Score).Debug("Best candidate below threshold")
		p.report(false)
		return res, nil
	}

	inc, err := p.sink.Ingest(ctx, normalizer.MatchPayload{
		Candidate: top,
		Zone:      p.zone,
		DeviceID:  p.deviceID,
	})
	if err != nil {
		return res, fmt.Errorf("matcher: could not submit match incident: %w", err)
	}
	res.Incident = &inc
	p.report(true)

	log.WithFields(logrus.Fields{
		"score":       top.Score,
		"incident_id": inc.ID,
	}).Info("Lost-and-found match promoted to incident")
	return res, nil
}

func (p *Promoter) report(promoted bool) {
	if p.onResult != nil {
		p.onResult(promoted)
	}
}
