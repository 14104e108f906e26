package push

import (
	"context"

	"github.com/shenikar/event_rescue/internal/feed"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

const subscriptionBuffer = 64

// Bridge связывает ленту с Hub. Без relay изменения идут в Hub напрямую,
// с relay - через канал Redis, чтобы их получили клиенты всех экземпляров.
type Bridge struct {
	feed   *feed.Distributor
	hub    *Hub
	relay  Relay
	logger *logrus.Logger
}

// NewBridge создает мост; relay может быть nil
func NewBridge(d *feed.Distributor, hub *Hub, relay Relay, logger *logrus.Logger) *Bridge {
	return &Bridge{
		feed:   d,
		hub:    hub,
		relay:  relay,
		logger: logger,
	}
}

// Run блокируется до отмены ctx
func (b *Bridge) Run(ctx context.Context) {
	sub := b.feed.Subscribe(subscriptionBuffer)
	defer sub.Close()

	forward := b.hub.Broadcast
	if b.relay != nil {
		go b.runRelay(ctx)
		forward = func(inc models.Incident) {
			if err := b.relay.Publish(ctx, inc); err != nil {
				b.logger.WithFields(logrus.Fields{
					"component":   "push-bridge",
					"incident_id": inc.ID,
				}).WithError(err).Warn("Relay publish failed, pushing locally")
				b.hub.Broadcast(inc)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case inc, ok := <-sub.C():
			if !ok {
				return
			}
			forward(inc)
		}
	}
}

func (b *Bridge) runRelay(ctx context.Context) {
	if err := b.relay.Run(ctx, b.hub.Broadcast); err != nil && ctx.Err() == nil {
		b.logger.WithError(err).Error("push: relay subscription stopped")
	}
}
