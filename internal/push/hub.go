// Package push рассылает сохраненные изменения ленты подключенным WebSocket-клиентам.
// Доставка best-effort: медленный клиент теряет сообщение и догоняет следующим pull.
package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	MessageTypeIncident = "incident"

	defaultSendBuffer = 16
	writeWait         = 5 * time.Second
	readLimit         = 4096
)

// Message - сообщение push-канала
type Message struct {
	Type     string          `json:"type"`
	Incident models.Incident `json:"incident"`
}

// HubHooks - необязательные обратные вызовы для метрик
type HubHooks struct {
	OnClients func(n int)
	OnDropped func()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Hub держит реестр подключенных клиентов
type Hub struct {
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
	hooks      HubHooks
	sendBuffer int

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// HubOption настраивает Hub
type HubOption func(*Hub)

// WithHubHooks подключает обратные вызовы
func WithHubHooks(h HubHooks) HubOption {
	return func(hub *Hub) { hub.hooks = h }
}

// WithSendBuffer задает размер очереди отправки на клиента
func WithSendBuffer(n int) HubOption {
	return func(hub *Hub) {
		if n > 0 {
			hub.sendBuffer = n
		}
	}
}

// NewHub создает новый Hub
func NewHub(logger *logrus.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// дашборды открываются с других origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:     logger,
		sendBuffer: defaultSendBuffer,
		clients:    make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS переводит запрос в WebSocket и регистрирует клиента
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("push: could not upgrade connection")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast отправляет инцидент всем клиентам не блокируясь
func (h *Hub) Broadcast(inc models.Incident) {
	data, err := json.Marshal(Message{Type: MessageTypeIncident, Incident: inc})
	if err != nil {
		h.logger.WithError(err).Error("push: could not marshal message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			if h.hooks.OnDropped != nil {
				h.hooks.OnDropped()
			}
		}
	}
}

// Clients возвращает число подключенных клиентов
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов и больше не принимает новых
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.reportClients(n)
	return true
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		close(c.send)
		n := len(h.clients)
		h.mu.Unlock()

		h.reportClients(n)
	})
}

func (h *Hub) reportClients(n int) {
	if h.hooks.OnClients != nil {
		h.hooks.OnClients(n)
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(c)
			// дочитываем канал до закрытия в unregister
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readPump отвечает на "ping" и замечает отключение клиента
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(readLimit)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if string(data) != "ping" {
			continue
		}
		h.mu.RLock()
		if _, ok := h.clients[c]; ok {
			select {
			case c.send <- []byte("pong"):
			default:
			}
		}
		h.mu.RUnlock()
	}
}
