package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shenikar/event_rescue/internal/audio"
	"github.com/shenikar/event_rescue/internal/capture"
	"github.com/shenikar/event_rescue/internal/client"
	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/consumer"
	"github.com/shenikar/event_rescue/internal/matcher"
	"github.com/shenikar/event_rescue/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	fftSize      = 256
	pushRedial   = 3 * time.Second
	clientWait   = 10 * time.Second
	cameraWidth  = 640
	cameraHeight = 480
)

// Приложение участника: детектор голоса, сканер бюро находок и лента уведомлений.
// Команды со стандартного ввода: sos, scan, retry, status, quit.
func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey := ""
	if len(cfg.APIKeys) > 0 {
		apiKey = cfg.APIKeys[0]
	}
	api := client.New(cfg.APIBaseURL, apiKey, clientWait, client.WithDeviceID(cfg.DeviceID))

	// Детектор голоса
	var input audio.Input = audio.NewMicrophone(audio.DefaultSampleRate, fftSize)
	if cfg.AudioWAVPath != "" {
		input = audio.NewWAVSource(cfg.AudioWAVPath, fftSize)
	}
	detector := audio.NewDetector(audio.NewThresholdClassifier(audio.Thresholds{
		Min:    cfg.AudioMinMagnitude,
		Help:   cfg.AudioHelpMagnitude,
		Scream: cfg.AudioScreamMagnitude,
	}), cfg.AudioCooldown)
	voice := audio.NewSession(input, detector, api, audio.SessionConfig{
		DetectInterval: cfg.AudioDetectInterval,
		MeterInterval:  cfg.AudioMeterInterval,
	}, log)
	if err := voice.Start(ctx); err != nil {
		log.WithError(err).Warn("Voice monitoring is not available")
	}
	defer voice.Stop()

	// Камера и поиск совпадений
	camera := capture.NewCamera("camera", capture.NewOpenCVDevice(cfg.CameraDevice, cameraWidth, cameraHeight), log)
	promoter := matcher.NewPromoter(matcher.NewHTTPMatcher(api.BaseURL(), apiKey, clientWait), api,
		cfg.PromotionThreshold, cfg.Zone, cfg.DeviceID, log)
	defer func() { _ = camera.Stop() }()

	// Лента участника
	view := consumer.NewView(consumer.KindParticipant, 20, consumer.DefaultFilter(consumer.KindParticipant))
	notifications := consumer.NewNotificationView(50)
	runner := consumer.NewRunner(api, []*consumer.View{view}, consumer.RunnerConfig{
		IncidentInterval: cfg.IncidentPollInterval,
	}, log,
		consumer.WithNotifications(notifications),
		consumer.WithPush(client.NewPushListener(api.BaseURL(), apiKey, pushRedial, log)),
	)
	runner.Start(ctx)
	defer runner.Stop()

	log.Info("Participant started. Commands: sos, scan, retry, status, quit")
	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- strings.TrimSpace(scanner.Text())
		}
		close(commands)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Participant stopped")
			return
		case cmd, ok := <-commands:
			if !ok || cmd == "quit" {
				log.Info("Participant stopped")
				return
			}
			handleCommand(ctx, cmd, voice, camera, promoter, notifications, log)
		}
	}
}

func handleCommand(ctx context.Context, cmd string, voice *audio.Session, camera *capture.Camera,
	promoter *matcher.Promoter, notifications *consumer.NotificationView, log *logrus.Logger) {
	switch cmd {
	case "sos":
		alert := voice.Emergency(ctx)
		log.WithField("alert_id", alert.ID).Info("Emergency alert sent")
	case "scan":
		if !camera.Active() {
			if err := camera.Start(); err != nil {
				log.WithError(err).Error("Camera is not available")
				return
			}
		}
		res, err := promoter.Scan(ctx, camera)
		switch {
		case errors.Is(err, matcher.ErrNoFrame):
			log.WithError(err).Warn("No frame captured")
		case err != nil:
			log.WithError(err).Error("Scan failed")
		case res.Promoted():
			log.WithField("incident_id", res.Incident.ID).Info("Match reported to security")
		default:
			log.WithField("candidates", len(res.Candidates)).Info("No confident match")
		}
	case "retry":
		retryDevices(ctx, voice, camera, log)
	case "status":
		log.WithFields(logrus.Fields{
			"voice_state":  voice.State(),
			"voice_level":  voice.Level(),
			"camera_state": camera.State(),
			"unread":       notifications.Unread(),
		}).Info("Participant status")
		for _, n := range notifications.Entries(true, "") {
			log.WithFields(logrus.Fields{
				"priority": n.Priority,
				"zone":     n.Zone,
			}).Info(n.Title + ": " + n.Message)
			notifications.MarkRead(n.ID)
		}
	case "":
	default:
		log.WithField("command", cmd).Warn("Unknown command")
	}
}

// retryDevices - явный повтор доступа к микрофону и камере после отказа
func retryDevices(ctx context.Context, voice *audio.Session, camera *capture.Camera, log *logrus.Logger) {
	if voice.State() != capture.StateActive {
		if err := voice.Retry(ctx); err != nil {
			log.WithError(err).Warn("Voice monitoring is still not available")
		}
	}
	if camera.LastError() != nil {
		if err := camera.Retry(); err != nil {
			log.WithError(err).Warn("Camera is still not available")
		}
	}

	entry := log.WithFields(logrus.Fields{
		"voice_state":  voice.State(),
		"camera_state": camera.State(),
	})
	if err := voice.LastError(); err != nil {
		entry = entry.WithField("voice_error", err.Error())
	}
	entry.Info("Device retry finished")
}
