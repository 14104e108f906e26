// Package vision принимает события анализа сцены от камерных воркеров (NATS)
// и проксирует управление камерами во внешний сервис зрения.
package vision

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
)

const queueGroup = "rescue-server"

// Ingester принимает нормализуемую полезную нагрузку
//
//go:generate mockgen -source=subscriber.go -destination=mocks/mock_subscriber.go -package=mocks
type Ingester interface {
	Ingest(ctx context.Context, p normalizer.Payload) (models.Incident, error)
}

// Subscriber читает события сцены из NATS и передает их в ленту
type Subscriber struct {
	conn      *nats.Conn
	subject   string
	ingester  Ingester
	logger    *logrus.Logger
	onDropped func()
}

// SubscriberOption настраивает Subscriber
type SubscriberOption func(*Subscriber)

// WithDroppedHook вызывается для каждого отброшенного сообщения
func WithDroppedHook(fn func()) SubscriberOption {
	return func(s *Subscriber) { s.onDropped = fn }
}

// NewSubscriber создает подписчика на subject
func NewSubscriber(conn *nats.Conn, subject string, ingester Ingester, logger *logrus.Logger, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		conn:     conn,
		subject:  subject,
		ingester: ingester,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start подписывается в группе очереди: каждое событие получает один экземпляр сервера.
// Подписка снимается при отмене ctx.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.subject, queueGroup, func(msg *nats.Msg) {
		s.Handle(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("vision: could not subscribe to %s: %w", s.subject, err)
	}
	s.logger.WithField("subject", s.subject).Info("Subscribed to vision events")

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			s.logger.WithError(err).Warn("vision: could not unsubscribe")
		}
	}()
	return nil
}

// Handle разбирает одно сообщение. Плохое сообщение логируется и отбрасывается.
func (s *Subscriber) Handle(ctx context.Context, data []byte) {
	log := s.logger.WithFields(logrus.Fields{
		"component": "vision-subscriber",
		"subject":   s.subject,
	})

	payload, err := normalizer.DecodeRaw(normalizer.SourceVision, data)
	if err != nil {
		log.WithError(err).Warn("Dropping malformed vision event")
		s.dropped()
		return
	}
	inc, err := s.ingester.Ingest(ctx, payload)
	if err != nil {
		log.WithError(err).Warn("Dropping rejected vision event")
		s.dropped()
		return
	}
	log.WithField("incident_id", inc.ID).Debug("Vision event ingested")
}

func (s *Subscriber) dropped() {
	if s.onDropped != nil {
		s.onDropped()
	}
}
