package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	connectTimeout = 5 * time.Second
	reconnectWait  = 2 * time.Second
	maxReconnects  = -1
)

// NewConn подключается к NATS и логирует переподключения
func NewConn(url, name string, logger *logrus.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.WithField("url", c.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.WithField("url", url).Info("NATS connection established")
	return conn, nil
}

// Close пытается дослать буферизованные сообщения и закрывает соединение
func Close(conn *nats.Conn, logger *logrus.Logger) {
	if conn == nil {
		return
	}
	if err := conn.Drain(); err != nil {
		logger.WithError(err).Warn("Failed to drain NATS connection gracefully, closing immediately")
		conn.Close()
	}
}
