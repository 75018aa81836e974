package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config структура конфигурации приложения
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Logging   LoggingConfig
	Gateway   GatewayConfig
	Customer  CustomerConfig
	Plan      PlanConfig
	Telegram  TelegramConfig
	Webhook   WebhookConfig
	Sweeper   SweeperConfig
	Extractor ExtractorConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	APIKey          string
}

// StorageConfig выбор хранилища: postgres или memory
type StorageConfig struct {
	Driver string
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig конфигурация кэша; пустой Addr отключает Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig конфигурация публикации событий; пустой список брокеров отключает Kafka
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string
}

// GatewayConfig конфигурация Invictus Pay
type GatewayConfig struct {
	BaseURL      string
	APIToken     string
	PostbackURL  string
	OfferHash    string
	ProductHash  string
	ProductTitle string
	ExpireInDays int
	Timeout      time.Duration
}

// CustomerConfig фиксированный профиль покупателя, отправляемый в шлюз
type CustomerConfig struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// PlanConfig цена и длительность единственного тарифа
type PlanConfig struct {
	PriceCents int
	PeriodDays int
}

// TelegramConfig бот и способ выдачи доступа
type TelegramConfig struct {
	BotToken        string
	GroupInviteLink string
	GroupChatID     int64
	InviteTTL       time.Duration
}

// WebhookConfig путь постбэка и необязательный общий секрет
type WebhookConfig struct {
	Path            string
	Secret          string
	NotifyMarkerTTL time.Duration
}

// SweeperConfig периодичность проверки истекших подписок
type SweeperConfig struct {
	Interval    time.Duration
	Concurrency int
}

// ExtractorConfig параметры эвристик разбора ответа шлюза
type ExtractorConfig struct {
	MinImageLength int
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Period длительность оплаченного периода
func (p PlanConfig) Period() time.Duration {
	return time.Duration(p.PeriodDays) * 24 * time.Hour
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("APP_HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "10000"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30),
			APIKey:          getEnv("API_KEY", ""),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "vip_subscriptions"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "vip.subscriptions"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gateway: GatewayConfig{
			BaseURL:      getEnv("INVICTUS_BASE_URL", "https://api.invictuspay.app.br"),
			APIToken:     getEnv("INVICTUS_API_TOKEN", ""),
			PostbackURL:  getEnv("POSTBACK_URL", ""),
			OfferHash:    getEnv("OFFER_HASH", ""),
			ProductHash:  getEnv("PRODUCT_HASH", ""),
			ProductTitle: getEnv("PRODUCT_TITLE", "Assinatura VIP - 30 dias"),
			ExpireInDays: getEnvAsInt("CHARGE_EXPIRE_DAYS", 1),
			Timeout:      getEnvAsDuration("INVICTUS_TIMEOUT", 30*time.Second),
		},
		Customer: CustomerConfig{
			Name:     getEnv("FIXED_NAME", "Cliente VIP"),
			Email:    getEnv("FIXED_EMAIL", "cliente@exemplo.com"),
			Phone:    getEnv("FIXED_PHONE", "11999999999"),
			Document: getEnv("FIXED_DOCUMENT", "00000000000"),
		},
		Plan: PlanConfig{
			PriceCents: getEnvAsInt("PRICE_CENTS", 599),
			PeriodDays: getEnvAsInt("PLAN_PERIOD_DAYS", 30),
		},
		Telegram: TelegramConfig{
			BotToken:        getEnv("BOT_TOKEN", ""),
			GroupInviteLink: getEnv("GROUP_INVITE_LINK", ""),
			GroupChatID:     getEnvAsInt64("GROUP_CHAT_ID", 0),
			InviteTTL:       getEnvAsDuration("GROUP_INVITE_TTL", 30*time.Minute),
		},
		Webhook: WebhookConfig{
			Path:            getEnv("WEBHOOK_PATH", "/invictus/postback"),
			Secret:          getEnv("WEBHOOK_SECRET", ""),
			NotifyMarkerTTL: getEnvAsDuration("WEBHOOK_NOTIFY_MARKER_TTL", 72*time.Hour),
		},
		Sweeper: SweeperConfig{
			Interval:    getEnvAsDuration("SWEEP_INTERVAL", 10*time.Minute),
			Concurrency: getEnvAsInt("SWEEP_CONCURRENCY", 8),
		},
		Extractor: ExtractorConfig{
			MinImageLength: getEnvAsInt("QR_MIN_BASE64_LENGTH", 200),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate сообщает обо всех отсутствующих и некорректных значениях сразу
func (c *Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		name  string
		value string
	}{
		{"BOT_TOKEN", c.Telegram.BotToken},
		{"INVICTUS_API_TOKEN", c.Gateway.APIToken},
		{"POSTBACK_URL", c.Gateway.PostbackURL},
		{"OFFER_HASH", c.Gateway.OfferHash},
		{"PRODUCT_HASH", c.Gateway.ProductHash},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, fmt.Errorf("missing required variable %s", r.name))
		}
	}

	if c.Plan.PriceCents <= 0 {
		result = multierror.Append(result, errors.New("PRICE_CENTS must be positive"))
	}
	if c.Plan.PeriodDays <= 0 {
		result = multierror.Append(result, errors.New("PLAN_PERIOD_DAYS must be positive"))
	}
	if c.Sweeper.Interval <= 0 {
		result = multierror.Append(result, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		result = multierror.Append(result, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		result = multierror.Append(result, errors.New("WEBHOOK_PATH must start with /"))
	}

	return result.ErrorOrNil()
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int или возвращает значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration принимает "10m", "30s" и т.п.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList разбирает список через запятую
func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
