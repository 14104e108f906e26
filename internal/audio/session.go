package audio

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/event_rescue/internal/capture"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDetectInterval = time.Second
	DefaultMeterInterval  = 16 * time.Millisecond

	recentLimit         = 10
	emergencyLevel      = 255.0
	emergencyConfidence = 100.0
)

// Sink принимает сигналы. Ошибки не повторяются.
type Sink interface {
	SubmitVoiceAlert(ctx context.Context, alert models.VoiceAlert) error
}

// SessionConfig - интервалы циклов и источник координат
type SessionConfig struct {
	DetectInterval time.Duration
	MeterInterval  time.Duration
	Location       func() *models.Location
}

// Session - сеанс мониторинга голоса: цикл индикатора уровня и цикл классификации
type Session struct {
	device   *capture.Session
	input    Input
	detector *Detector
	sink     Sink
	cfg      SessionConfig
	logger   *logrus.Logger
	now      func() time.Time

	level atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	pending sync.WaitGroup
	recent  []models.VoiceAlert
}

// NewSession создает неактивный сеанс
func NewSession(input Input, detector *Detector, sink Sink, cfg SessionConfig, logger *logrus.Logger) *Session {
	if cfg.DetectInterval <= 0 {
		cfg.DetectInterval = DefaultDetectInterval
	}
	if cfg.MeterInterval <= 0 {
		cfg.MeterInterval = DefaultMeterInterval
	}
	if cfg.Location == nil {
		cfg.Location = func() *models.Location { return nil }
	}
	return &Session{
		device:   capture.NewSession("microphone", input, logger),
		input:    input,
		detector: detector,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start открывает микрофон и запускает оба цикла. При отказе сеанс остается
// неактивным до явного Retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.detector.Reset()

	s.loops.Add(2)
	go s.run(loopCtx, s.cfg.MeterInterval, s.meterOnce)
	go s.run(loopCtx, s.cfg.DetectInterval, func(now time.Time) { s.detectOnce(loopCtx, now) })

	s.logger.WithFields(logrus.Fields{
		"component": "audio",
		"method":    "Start",
	}).Info("Voice monitoring started")
	return nil
}

// Retry повторяет попытку открыть микрофон после отказа
func (s *Session) Retry(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// Stop останавливает циклы и освобождает микрофон. Повторный вызов безопасен.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.loops.Wait()
	}
	if err := s.device.Stop(); err != nil {
		s.logger.WithError(err).Warn("Failed to release microphone")
	}
	s.level.Store(0)
}

// State - состояние микрофона
func (s *Session) State() capture.State { return s.device.State() }

// LastError - причина последнего отказа открытия микрофона
func (s *Session) LastError() error { return s.device.LastError() }

// Level - последнее значение индикатора уровня (0..255)
func (s *Session) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// Recent возвращает последние сигналы, новые первыми
func (s *Session) Recent() []models.VoiceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.VoiceAlert, len(s.recent))
	copy(out, s.recent)
	return out
}

// Emergency отправляет ручной сигнал SOS в обход cooldown
func (s *Session) Emergency(ctx context.Context) models.VoiceAlert {
	alert := models.VoiceAlert{
		ID:         uuid.NewString(),
		Category:   models.VoiceHelp,
		Confidence: emergencyConfidence,
		Timestamp:  s.now().UTC(),
		Location:   s.cfg.Location(),
		AudioLevel: emergencyLevel,
	}
	s.emit(ctx, alert)
	return alert
}

func (s *Session) run(ctx context.Context, interval time.Duration, tick func(time.Time)) {
	defer s.loops.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(s.now())
		}
	}
}

func (s *Session) meterOnce(time.Time) {
	buf := make([]uint8, s.bins())
	if err := s.input.Frequencies(buf); err != nil {
		return
	}
	s.level.Store(math.Float64bits(AverageMagnitude(buf)))
}

func (s *Session) detectOnce(ctx context.Context, now time.Time) {
	buf := make([]uint8, s.bins())
	if err := s.input.Frequencies(buf); err != nil {
		s.logger.WithError(err).Debug("Failed to read spectrum")
		return
	}
	alert, ok := s.detector.Observe(now, AverageMagnitude(buf))
	if !ok {
		return
	}
	alert.Location = s.cfg.Location()
	s.emit(ctx, alert)
}

// emit не ждет отправки: ошибка логируется и сигнал теряется
func (s *Session) emit(ctx context.Context, alert models.VoiceAlert) {
	s.mu.Lock()
	s.recent = append([]models.VoiceAlert{alert}, s.recent...)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[:recentLimit]
	}
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"component":  "audio",
		"alert_id":   alert.ID,
		"category":   alert.Category,
		"confidence": alert.Confidence,
	})
	log.Info("Voice distress detected")

	sendCtx := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.sink.SubmitVoiceAlert(sendCtx, alert); err != nil {
			log.WithError(err).Warn("Failed to submit voice alert, dropping")
		}
	}()
}

func (s *Session) bins() int {
	return DefaultFFTSize / 2
}
