// Package dispatch ставит критические инциденты в очередь Redis и доставляет
// их ответственным службам подписанными вебхуками.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/event_rescue/internal/models"
)

const DefaultQueueKey = "dispatch_events"

// Event - структура для данных вебхука диспетчеризации
type Event struct {
	Incident   models.Incident `json:"incident"`
	Reason     Reason          `json:"reason"`
	Team       Team            `json:"team"`
	Responders []Responder     `json:"responders,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Publisher - интерфейс для постановки событий в очередь
//
//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Queue - очередь сырых событий между Publisher и Worker
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	// Pop блокируется до появления события или отмены ctx
	Pop(ctx context.Context) ([]byte, error)
}

// RedisQueue - реализация Queue на списке Redis
type RedisQueue struct {
	redisClient *redis.Client
	key         string
}

// NewRedisQueue создает очередь на ключе key
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{
		redisClient: client,
		key:         key,
	}
}

// Push использует LPUSH для добавления события в левую часть списка
func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	if err := q.redisClient.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("dispatch: could not push event to Redis: %w", err)
	}
	return nil
}

// Pop забирает событие из правой части списка, 0 означает бесконечное ожидание
func (q *RedisQueue) Pop(ctx context.Context) ([]byte, error) {
	result, err := q.redisClient.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return nil, err
	}
	// result[0] - ключ, result[1] - значение
	return []byte(result[1]), nil
}

// QueuePublisher - реализация Publisher поверх Queue
type QueuePublisher struct {
	queue Queue
}

// NewQueuePublisher создает новый QueuePublisher
func NewQueuePublisher(queue Queue) *QueuePublisher {
	return &QueuePublisher{queue: queue}
}

// Publish публикует событие в очередь
func (p *QueuePublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("dispatch: could not marshal event: %w", err)
	}
	return p.queue.Push(ctx, payload)
}
