package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shenikar/event_rescue/internal/client"
	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/consumer"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	pushRedial = 3 * time.Second
	clientWait = 10 * time.Second
)

// Панель властей: лента с подтверждением и закрытием инцидентов, сводка,
// бюро находок и уведомления. Команды: list, ack <id>, resolve <id>, summary,
// lostfound, notifications, quit.
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
	api := client.New(cfg.APIBaseURL, apiKey, clientWait)

	view := consumer.NewView(consumer.KindAuthority, 20, consumer.DefaultFilter(consumer.KindAuthority))
	notifications := consumer.NewNotificationView(50)
	runner := consumer.NewRunner(api, []*consumer.View{view}, consumer.RunnerConfig{
		IncidentInterval:  cfg.IncidentPollInterval,
		SummaryInterval:   cfg.SummaryPollInterval,
		LostFoundInterval: cfg.LostFoundPollInterval,
	}, log,
		consumer.WithNotifications(notifications),
		consumer.WithPush(client.NewPushListener(api.BaseURL(), apiKey, pushRedial, log)),
	)
	runner.Start(ctx)
	defer runner.Stop()

	log.Info("Authority panel started. Commands: list, ack <id>, resolve <id>, summary, lostfound, notifications, quit")
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
			log.Info("Authority panel stopped")
			return
		case cmd, ok := <-commands:
			if !ok || cmd == "quit" {
				log.Info("Authority panel stopped")
				return
			}
			handleCommand(ctx, cmd, runner, view, notifications, log)
		}
	}
}

func handleCommand(ctx context.Context, line string, runner *consumer.Runner, view *consumer.View,
	notifications *consumer.NotificationView, log *logrus.Logger) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "list":
		incidents := view.Visible()
		log.WithField("count", len(incidents)).Info("Live feed")
		for _, inc := range incidents {
			entry := log.WithFields(logrus.Fields{
				"id":         inc.ID,
				"type":       inc.Type,
				"zone":       inc.Zone,
				"status":     inc.Status,
				"confidence": inc.Confidence,
			})
			if _, pending := view.Pending(inc.ID); pending {
				entry = entry.WithField("pending", true)
			}
			entry.Info(inc.Description)
		}
	case "ack", "resolve":
		if len(fields) < 2 {
			log.Warn("Usage: ack <id> | resolve <id>")
			return
		}
		status := models.StatusAcknowledged
		if fields[0] == "resolve" {
			status = models.StatusResolved
		}
		if err := runner.SetStatus(ctx, view, fields[1], status); err != nil {
			log.WithError(err).WithField("id", fields[1]).Warn("Status change rejected")
			return
		}
		log.WithFields(logrus.Fields{"id": fields[1], "status": status}).Info("Status change sent")
	case "summary":
		log.Info(runner.Summary())
	case "lostfound":
		items := runner.LostFound()
		log.WithField("count", len(items)).Info("Lost and found")
		for _, item := range items {
			log.WithFields(logrus.Fields{
				"id":       item.ID,
				"reporter": item.Reporter,
				"status":   item.Status,
			}).Info(item.Description)
		}
	case "notifications":
		for _, n := range notifications.Entries(true, "") {
			log.WithFields(logrus.Fields{
				"priority": n.Priority,
				"zone":     n.Zone,
			}).Info(n.Title + ": " + n.Message)
		}
		notifications.MarkAllRead()
	default:
		log.WithField("command", fields[0]).Warn("Unknown command")
	}
}
