package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development" validate:"oneof=development production test"`
	AppPort  string `envconfig:"APP_PORT" default:"3000" validate:"required,numeric"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug" validate:"oneof=trace debug info warn error"`
	LogDir   string `envconfig:"LOG_DIR" default:"./storage/logs"`

	// Адрес сервиса детекции повреждений
	DetectorURL string `envconfig:"DETECTOR_API_URL" default:"http://localhost:5000" validate:"required,url"`

	ImageAccept   string `envconfig:"IMAGE_ACCEPT" default:"image/jpeg,image/png" validate:"required"`
	ImageMaxBytes int64  `envconfig:"IMAGE_MAX_BYTES" default:"10485760" validate:"gt=0"`
	VideoAccept   string `envconfig:"VIDEO_ACCEPT" default:"video/mp4" validate:"required"`
	VideoMaxBytes int64  `envconfig:"VIDEO_MAX_BYTES" default:"10485760" validate:"gt=0"`

	RateLimit float64 `envconfig:"RATE_LIMIT" default:"2" validate:"gt=0"`
	RateBurst int     `envconfig:"RATE_BURST" default:"5" validate:"gt=0"`

	// Сессии без активности дольше SESSION_TTL удаляются из памяти
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m" validate:"gt=0"`

	// Бот запускается только если задан токен
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
}

// Load читает .env и переменные окружения.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// TelegramEnabled сообщает, нужно ли запускать бота.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
