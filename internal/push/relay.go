package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

const DefaultChannel = "incidents:push"

// Relay разносит изменения ленты между экземплярами сервера
//
//go:generate mockgen -source=relay.go -destination=mocks/mock_relay.go -package=mocks
type Relay interface {
	Publish(ctx context.Context, inc models.Incident) error
	// Run блокируется до отмены ctx, передавая каждое полученное сообщение в handle
	Run(ctx context.Context, handle func(models.Incident)) error
}

// RedisRelay - реализация Relay на Redis pub/sub
type RedisRelay struct {
	redisClient *redis.Client
	channel     string
	logger      *logrus.Logger
}

// NewRedisRelay создает новый RedisRelay
func NewRedisRelay(client *redis.Client, channel string, logger *logrus.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		redisClient: client,
		channel:     channel,
		logger:      logger,
	}
}

// Publish публикует инцидент в канал Redis
func (r *RedisRelay) Publish(ctx context.Context, inc models.Incident) error {
	payload, err := json.Marshal(Message{Type: MessageTypeIncident, Incident: inc})
	if err != nil {
		return fmt.Errorf("push: could not marshal message: %w", err)
	}
	if err := r.redisClient.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("push: could not publish to Redis: %w", err)
	}
	return nil
}

// Run подписывается на канал и передает инциденты в handle
func (r *RedisRelay) Run(ctx context.Context, handle func(models.Incident)) error {
	sub := r.redisClient.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("push: could not subscribe to %s: %w", r.channel, err)
	}

	log := r.logger.WithFields(logrus.Fields{"component": "push-relay", "channel": r.channel})
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.Type != MessageTypeIncident {
				log.WithError(err).Warn("Dropping malformed relay message")
				continue
			}
			handle(m.Incident)
		}
	}
}
