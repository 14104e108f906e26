package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
)

const (
	pushMessageType     = "incident"
	defaultRedialDelay  = 3 * time.Second
	pushReadLimit       = 1 << 20
	pushKeepalivePeriod = 30 * time.Second
)

var errMalformedPush = errors.New("malformed push message")

// PushMessage - сообщение сервера о сохраненном изменении ленты
type PushMessage struct {
	Type     string         `json:"type"`
	Incident map[string]any `json:"incident"`
}

// DecodePush разбирает сообщение push-канала и приводит инцидент к канонической форме
// (severity ограничена, confidence пересчитана, пустой id заменен сгенерированным).
func DecodePush(n *normalizer.Normalizer, data []byte) (models.Incident, error) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.Incident{}, fmt.Errorf("%w: %v", errMalformedPush, err)
	}
	if msg.Type != pushMessageType || msg.Incident == nil {
		return models.Incident{}, fmt.Errorf("%w: unexpected type %q", errMalformedPush, msg.Type)
	}
	p, err := normalizer.FromMap(normalizer.SourceManual, msg.Incident)
	if err != nil {
		return models.Incident{}, fmt.Errorf("%w: %v", errMalformedPush, err)
	}
	inc, err := n.Normalize(p)
	if err != nil {
		return models.Incident{}, fmt.Errorf("%w: %v", errMalformedPush, err)
	}
	return inc, nil
}

// PushListener держит WebSocket-соединение с сервером и передает инциденты обработчику.
// Обрыв соединения не фатален: повторное подключение через фиксированную паузу.
type PushListener struct {
	url         string
	apiKey      string
	redialDelay time.Duration
	dialer      *websocket.Dialer
	normalizer  *normalizer.Normalizer
	logger      *logrus.Logger
}

// NewPushListener строит адрес ws(s)://.../ws из базового URL API
func NewPushListener(baseURL, apiKey string, redialDelay time.Duration, logger *logrus.Logger) *PushListener {
	if redialDelay <= 0 {
		redialDelay = defaultRedialDelay
	}
	u := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &PushListener{
		url:         u,
		apiKey:      apiKey,
		redialDelay: redialDelay,
		dialer:      websocket.DefaultDialer,
		normalizer:  normalizer.New(),
		logger:      logger,
	}
}

// Run блокируется до отмены ctx
func (l *PushListener) Run(ctx context.Context, handle func(models.Incident)) {
	log := l.logger.WithFields(logrus.Fields{"component": "push-listener", "url": l.url})
	for {
		if err := l.session(ctx, handle, log); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Push channel lost, will reconnect")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.redialDelay):
		}
	}
}

func (l *PushListener) session(ctx context.Context, handle func(models.Incident), log *logrus.Entry) error {
	header := http.Header{}
	if l.apiKey != "" {
		header.Set("X-API-Key", l.apiKey)
	}
	conn, _, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(pushReadLimit)
	log.Info("Push channel connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pushKeepalivePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if string(data) == "pong" {
			continue
		}
		inc, err := DecodePush(l.normalizer, data)
		if err != nil {
			log.WithError(err).Warn("Dropping malformed push message")
			continue
		}
		handle(inc)
	}
}
