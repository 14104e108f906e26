package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const SignatureHeader = "X-Webhook-Signature"

// Результаты доставки для метрик
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
	ResultMalformed = "malformed"
)

// WorkerConfig - параметры доставки вебхуков
type WorkerConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// Worker - структура для обработки и отправки событий диспетчеризации
type Worker struct {
	queue      Queue
	logger     *logrus.Logger
	cfg        WorkerConfig
	httpClient *http.Client
	onResult   func(result string)
	wg         sync.WaitGroup
}

// WorkerOption настраивает Worker
type WorkerOption func(*Worker)

// WithResultHook вызывается после обработки каждого события
func WithResultHook(fn func(result string)) WorkerOption {
	return func(w *Worker) { w.onResult = fn }
}

// WithHTTPClient подменяет HTTP клиент
func WithHTTPClient(c *http.Client) WorkerOption {
	return func(w *Worker) { w.httpClient = c }
}

// NewWorker создает новый Worker
func NewWorker(queue Queue, cfg WorkerConfig, logger *logrus.Logger, opts ...WorkerOption) *Worker {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	w := &Worker{
		queue:  queue,
		logger: logger,
		cfg:    cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start запускает горутину для обработки очереди до отмены ctx
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting dispatch worker...")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			payload, err := w.queue.Pop(ctx)
			if ctx.Err() != nil {
				w.logger.Info("Stopping dispatch worker.")
				return
			}
			if err != nil {
				w.logger.WithError(err).Error("Failed to pop dispatch event from queue")
				if !sleepCtx(ctx, w.cfg.Timeout) {
					return
				}
				continue
			}
			w.Process(ctx, payload)
		}
	}()
}

// Wait ждет завершения горутины после отмены ctx
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Process разбирает и доставляет одно событие
func (w *Worker) Process(ctx context.Context, payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.WithError(err).Error("Failed to unmarshal dispatch event")
		w.result(ResultMalformed)
		return
	}

	log := w.logger.WithFields(logrus.Fields{
		"component":   "dispatch",
		"incident_id": event.Incident.ID,
		"reason":      event.Reason,
		"team":        event.Team,
		"responders":  event.Responders,
	})
	log.Debug("Processing dispatch event...")

	if w.cfg.URL == "" {
		log.Warn("Webhook URL is not configured. Skipping dispatch delivery.")
		w.result(ResultSkipped)
		return
	}

	if err := w.deliver(ctx, log, payload); err != nil {
		log.WithError(err).Error("Failed to deliver dispatch event")
		w.result(ResultFailed)
		return
	}
	log.Info("Dispatch event delivered successfully.")
	w.result(ResultDelivered)
}

func (w *Worker) deliver(ctx context.Context, log *logrus.Entry, payload []byte) error {
	delay := w.cfg.BaseDelay
	var lastErr error
	for i := 0; i < w.cfg.MaxRetries; i++ {
		if i > 0 {
			log.WithError(lastErr).Warnf("Retrying in %v. Retries left: %d", delay, w.cfg.MaxRetries-i)
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2 // Экспоненциальная задержка
		}
		lastErr = w.send(ctx, payload)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("dispatch: gave up after %d attempts: %w", w.cfg.MaxRetries, lastErr)
}

func (w *Worker) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("dispatch: could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Добавляем HMAC подпись, если секрет задан
	if w.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, w.cfg.Secret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: could not send webhook: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("dispatch: webhook responded with " + resp.Status)
	}
	return nil
}

func (w *Worker) result(r string) {
	if w.onResult != nil {
		w.onResult(r)
	}
}

// Sign генерирует HMAC-SHA256 подпись для данных
func Sign(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
