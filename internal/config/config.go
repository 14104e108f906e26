package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Архив инцидентов, пустое значение отключает архив и миграции
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis Config, пустой адрес отключает relay и очередь диспетчеризации
	RedisAddr    string `env:"REDIS_ADDR"`
	RedisPass    string `env:"REDIS_PASSWORD"`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`
	PushChannel  string `env:"PUSH_CHANNEL" envDefault:"incidents:push"`
	DispatchList string `env:"DISPATCH_QUEUE" envDefault:"dispatch_events"`

	// Источники событий
	NatsURL          string `env:"NATS_URL"`
	VisionSubject    string `env:"VISION_SUBJECT" envDefault:"vision.events"`
	VisionServiceURL string `env:"VISION_SERVICE_URL"`
	MatcherURL       string `env:"MATCHER_SERVICE_URL"`

	// Лента
	FeedSize           int     `env:"FEED_SIZE" envDefault:"20"`
	PromotionThreshold float64 `env:"PROMOTION_THRESHOLD" envDefault:"0.85"`
	DispatchConfidence int     `env:"DISPATCH_CONFIDENCE" envDefault:"70"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Периоды опроса на стороне клиента
	IncidentPollInterval  time.Duration `env:"INCIDENT_POLL_INTERVAL" envDefault:"3s"`
	SummaryPollInterval   time.Duration `env:"SUMMARY_POLL_INTERVAL" envDefault:"5s"`
	LostFoundPollInterval time.Duration `env:"LOSTFOUND_POLL_INTERVAL" envDefault:"5s"`

	// Детектор голоса
	AudioDetectInterval  time.Duration `env:"AUDIO_DETECT_INTERVAL" envDefault:"1s"`
	AudioMeterInterval   time.Duration `env:"AUDIO_METER_INTERVAL" envDefault:"16ms"`
	AudioCooldown        time.Duration `env:"AUDIO_COOLDOWN" envDefault:"2500ms"`
	AudioMinMagnitude    float64       `env:"AUDIO_MIN_MAGNITUDE" envDefault:"90"`
	AudioHelpMagnitude   float64       `env:"AUDIO_HELP_MAGNITUDE" envDefault:"120"`
	AudioScreamMagnitude float64       `env:"AUDIO_SCREAM_MAGNITUDE" envDefault:"150"`
	AudioWAVPath         string        `env:"AUDIO_WAV_PATH"`

	// Клиентские настройки устройства
	APIBaseURL   string `env:"API_BASE_URL" envDefault:"http://localhost:8080/api/v1"`
	DeviceID     string `env:"DEVICE_ID"`
	CameraDevice string `env:"CAMERA_DEVICE" envDefault:"0"`
	Zone         string `env:"ZONE" envDefault:"Participant"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPass:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		PushChannel:           getEnv("PUSH_CHANNEL", "incidents:push"),
		DispatchList:          getEnv("DISPATCH_QUEUE", "dispatch_events"),
		NatsURL:               os.Getenv("NATS_URL"),
		VisionSubject:         getEnv("VISION_SUBJECT", "vision.events"),
		VisionServiceURL:      os.Getenv("VISION_SERVICE_URL"),
		MatcherURL:            os.Getenv("MATCHER_SERVICE_URL"),
		FeedSize:              getEnvAsInt("FEED_SIZE", 20),
		PromotionThreshold:    getEnvAsFloat("PROMOTION_THRESHOLD", 0.85),
		DispatchConfidence:    getEnvAsInt("DISPATCH_CONFIDENCE", 70),
		WebhookURL:            os.Getenv("WEBHOOK_URL"),
		WebhookSecret:         os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:        getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:     getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:      getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		IncidentPollInterval:  getEnvAsDuration("INCIDENT_POLL_INTERVAL", 3*time.Second),
		SummaryPollInterval:   getEnvAsDuration("SUMMARY_POLL_INTERVAL", 5*time.Second),
		LostFoundPollInterval: getEnvAsDuration("LOSTFOUND_POLL_INTERVAL", 5*time.Second),
		AudioDetectInterval:   getEnvAsDuration("AUDIO_DETECT_INTERVAL", time.Second),
		AudioMeterInterval:    getEnvAsDuration("AUDIO_METER_INTERVAL", 16*time.Millisecond),
		AudioCooldown:         getEnvAsDuration("AUDIO_COOLDOWN", 2500*time.Millisecond),
		AudioMinMagnitude:     getEnvAsFloat("AUDIO_MIN_MAGNITUDE", 90),
		AudioHelpMagnitude:    getEnvAsFloat("AUDIO_HELP_MAGNITUDE", 120),
		AudioScreamMagnitude:  getEnvAsFloat("AUDIO_SCREAM_MAGNITUDE", 150),
		AudioWAVPath:          os.Getenv("AUDIO_WAV_PATH"),
		APIBaseURL:            getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		DeviceID:              os.Getenv("DEVICE_ID"),
		CameraDevice:          getEnv("CAMERA_DEVICE", "0"),
		Zone:                  getEnv("ZONE", "Participant"),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения конфигурации и возвращает все найденные ошибки разом
func (c *Config) Validate() error {
	var errs []error

	if c.FeedSize < 10 || c.FeedSize > 20 {
		errs = append(errs, fmt.Errorf("invalid FEED_SIZE %d (must be 10..20)", c.FeedSize))
	}
	if c.PromotionThreshold <= 0 || c.PromotionThreshold >= 1 {
		errs = append(errs, fmt.Errorf("invalid PROMOTION_THRESHOLD %v (must be in (0,1))", c.PromotionThreshold))
	}
	if c.DispatchConfidence < 0 || c.DispatchConfidence > 100 {
		errs = append(errs, fmt.Errorf("invalid DISPATCH_CONFIDENCE %d (must be 0..100)", c.DispatchConfidence))
	}
	if !(c.AudioMinMagnitude < c.AudioHelpMagnitude && c.AudioHelpMagnitude < c.AudioScreamMagnitude) {
		errs = append(errs, fmt.Errorf("audio magnitudes must be increasing: min %v, help %v, scream %v",
			c.AudioMinMagnitude, c.AudioHelpMagnitude, c.AudioScreamMagnitude))
	}
	if c.AudioCooldown < 0 {
		errs = append(errs, errors.New("AUDIO_COOLDOWN must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"INCIDENT_POLL_INTERVAL":  c.IncidentPollInterval,
		"SUMMARY_POLL_INTERVAL":   c.SummaryPollInterval,
		"LOSTFOUND_POLL_INTERVAL": c.LostFoundPollInterval,
		"AUDIO_DETECT_INTERVAL":   c.AudioDetectInterval,
		"AUDIO_METER_INTERVAL":    c.AudioMeterInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
