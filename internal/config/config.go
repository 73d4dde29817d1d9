package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	StorageDriver string
	PostgresDSN   string
	// RedisAddr empty selects the in-process cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// KafkaBrokers empty selects the in-process event bus.
	KafkaBrokers []string
	KafkaGroupID string

	WhatsAppBaseURL       string
	WhatsAppAPIVersion    string
	WhatsAppPhoneNumberID string
	WhatsAppAccessToken   string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string

	TopUpMateBaseURL string
	TopUpMateAPIKey  string

	PayrantBaseURL       string
	PayrantAPIKey        string
	PayrantWebhookSecret string
	PayrantWebhookURL    string
	AccountPrefix        string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration

	OTLPEndpoint string

	MinAirtime     int64
	MaxAirtime     int64
	MinElectricity int64
	MaxElectricity int64
	ReferralBonus  decimal.Decimal
	PendingTTL     time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		PostgresDSN:           getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=forbill sslmode=disable"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               int(getInt("REDIS_DB", 0)),
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "forbill-service"),
		WhatsAppBaseURL:       os.Getenv("WHATSAPP_BASE_URL"),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v18.0"),
		WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppVerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		WhatsAppAppSecret:     os.Getenv("WHATSAPP_APP_SECRET"),
		TopUpMateBaseURL:      getEnv("TOPUPMATE_BASE_URL", "https://connect.topupmate.com/api"),
		TopUpMateAPIKey:       os.Getenv("TOPUPMATE_API_KEY"),
		PayrantBaseURL:        getEnv("PAYRANT_BASE_URL", "https://api-core.payrant.com"),
		PayrantAPIKey:         os.Getenv("PAYRANT_API_KEY"),
		PayrantWebhookSecret:  os.Getenv("PAYRANT_WEBHOOK_SECRET"),
		PayrantWebhookURL:     os.Getenv("PAYRANT_WEBHOOK_URL"),
		AccountPrefix:         getEnv("ACCOUNT_PREFIX", "FORBILL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminTokenTTL:         getDuration("ADMIN_TOKEN_TTL", time.Hour),
		OTLPEndpoint:          os.Getenv("OTLP_ENDPOINT"),
		MinAirtime:            getInt("MIN_AIRTIME", 50),
		MaxAirtime:            getInt("MAX_AIRTIME", 50000),
		MinElectricity:        getInt("MIN_ELECTRICITY", 1000),
		MaxElectricity:        getInt("MAX_ELECTRICITY", 100000),
		ReferralBonus:         getDecimal("REFERRAL_BONUS", decimal.NewFromInt(100)),
		PendingTTL:            getDuration("PENDING_ACTION_TTL", 10*time.Minute),
	}

	if cfg.StorageDriver != StorageMemory && cfg.StorageDriver != StoragePostgres {
		slog.Warn("unknown storage driver, using postgres", "driver", cfg.StorageDriver)
		cfg.StorageDriver = StoragePostgres
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set, admin login is disabled")
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"storage", cfg.StorageDriver,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"otlp_endpoint", cfg.OTLPEndpoint)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("invalid integer setting, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid duration setting, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		slog.Warn("invalid amount setting, using default", "key", key, "value", raw)
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
