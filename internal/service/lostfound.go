package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shenikar/event_rescue/internal/lostfound"
	"github.com/shenikar/event_rescue/internal/matcher"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

var ErrMatcherDisabled = errors.New("matcher service is not configured")

// LostFoundService определяет контракт бюро находок
//
//go:generate mockgen -source=lostfound.go -destination=mocks/mock_lostfound.go -package=mocks
type LostFoundService interface {
	Report(ctx context.Context, reporter, description, imageRef string) (models.LostFoundItem, error)
	List(ctx context.Context) []models.LostFoundItem
	Match(ctx context.Context, image []byte) ([]models.MatchCandidate, error)
}

type lostFoundService struct {
	registry *lostfound.Registry
	matcher  matcher.Matcher
	logger   *logrus.Logger
}

// NewLostFoundService создает сервис; без matcher поиск совпадений недоступен
func NewLostFoundService(registry *lostfound.Registry, m matcher.Matcher, logger *logrus.Logger) LostFoundService {
	return &lostFoundService{
		registry: registry,
		matcher:  m,
		logger:   logger,
	}
}

// Report регистрирует заявку
func (s *lostFoundService) Report(_ context.Context, reporter, description, imageRef string) (models.LostFoundItem, error) {
	item, err := s.registry.Report(reporter, description, imageRef)
	if err != nil {
		return models.LostFoundItem{}, fmt.Errorf("service: could not report item: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"service": "lostfound",
		"method":  "Report",
		"item_id": item.ID,
	}).Info("Lost-and-found item reported")
	return item, nil
}

// List возвращает заявки, новые первыми
func (s *lostFoundService) List(_ context.Context) []models.LostFoundItem {
	return s.registry.List()
}

// Match передает изображение внешнему сервису сравнения
func (s *lostFoundService) Match(ctx context.Context, image []byte) ([]models.MatchCandidate, error) {
	if s.matcher == nil {
		return nil, ErrMatcherDisabled
	}
	candidates, err := s.matcher.Match(ctx, image)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "lostfound",
			"method":  "Match",
		}).WithError(err).Warn("Matcher call failed")
		return nil, fmt.Errorf("service: could not match image: %w: %w", ErrUpstream, err)
	}
	return candidates, nil
}
