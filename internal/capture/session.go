// Package capture управляет захватом медиа-устройств (камера, микрофон)
// через сессии с явными Start/Stop.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrPermissionDenied - пользователь или ОС запретили доступ к устройству
	ErrPermissionDenied = errors.New("device permission denied")
	// ErrUnavailable - устройство не удалось открыть
	ErrUnavailable = errors.New("device unavailable")
	// ErrNoActiveStream - действие требует активного потока, а его нет
	ErrNoActiveStream = errors.New("no active media stream")
)

// State - состояние сессии устройства
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
)

// Device - захватываемое устройство
type Device interface {
	Open() error
	Close() error
}

// Session владеет одним устройством для одной цели (превью, сканирование, мониторинг голоса).
// Ошибка открытия переводит сессию в inactive; автоматического повтора нет, только Retry.
type Session struct {
	name   string
	device Device
	logger *logrus.Logger

	mu      sync.Mutex
	state   State
	lastErr error
}

// NewSession создает неактивную сессию
func NewSession(name string, device Device, logger *logrus.Logger) *Session {
	return &Session{
		name:   name,
		device: device,
		logger: logger,
		state:  StateInactive,
	}
}

// Start освобождает ранее удерживаемое устройство и открывает его заново
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"component": "capture",
		"session":   s.name,
	})

	if s.state == StateActive {
		if err := s.device.Close(); err != nil {
			log.WithError(err).Warn("Failed to release previous stream")
		}
		s.state = StateInactive
	}

	if err := s.device.Open(); err != nil {
		s.lastErr = err
		s.state = StateInactive
		log.WithError(err).Warn("Failed to open device, session stays inactive until retry")
		return fmt.Errorf("capture: start %s: %w", s.name, err)
	}

	s.lastErr = nil
	s.state = StateActive
	log.Info("Device session started")
	return nil
}

// Retry - явный повтор после отказа, без перезапуска процесса
func (s *Session) Retry() error {
	return s.Start()
}

// Stop освобождает устройство. Повторный вызов безопасен.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil
	}
	s.state = StateInactive
	if err := s.device.Close(); err != nil {
		return fmt.Errorf("capture: stop %s: %w", s.name, err)
	}
	s.logger.WithFields(logrus.Fields{"component": "capture", "session": s.name}).Info("Device session stopped")
	return nil
}

// State возвращает текущее состояние
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active сообщает, удерживается ли устройство
func (s *Session) Active() bool {
	return s.State() == StateActive
}

// LastError возвращает причину последнего отказа открытия
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Do выполняет fn, только если сессия активна; иначе ErrNoActiveStream без вызова fn
func (s *Session) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrNoActiveStream
	}
	return fn()
}
