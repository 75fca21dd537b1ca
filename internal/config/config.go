package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	BotToken    string
	OperatorID  int64
	WebhookURL  string
	VideoFileID string
	DefaultLang string

	StoreDriver string
	StorePath   string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ConversationIdleTTL clears unfinished dialogs after this long without input. Zero keeps them forever.
	ConversationIdleTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	APIJWTSecret    string
	DeliveryTimeout time.Duration
}

// Load reads .env (if present) and the process environment.
// Malformed numeric or duration values are reported; missing required keys are left to Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARN: no .env file loaded, using process environment")
	}

	cfg := &Config{
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		VideoFileID:   getEnv("VIDEO_GUIDE_FILE_ID", ""),
		DefaultLang:   getEnv("DEFAULT_LANG", "kk"),
		StoreDriver:   getEnv("STORE_DRIVER", StoreDriverFile),
		StorePath:     getEnv("STORE_PATH", "complaints_db.jsonl"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  ParseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "complaints"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		APIJWTSecret:  getEnv("API_JWT_SECRET", ""),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "complaints")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	var err error
	if raw := getEnv("ADMIN_CHAT_ID", ""); raw != "" {
		if cfg.OperatorID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("config: ADMIN_CHAT_ID must be an integer: %w", err)
		}
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	if cfg.ConversationIdleTTL, err = time.ParseDuration(getEnv("CONVERSATION_IDLE_TTL", "0s")); err != nil {
		return nil, fmt.Errorf("config: CONVERSATION_IDLE_TTL: %w", err)
	}
	if cfg.DeliveryTimeout, err = time.ParseDuration(getEnv("DELIVERY_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("config: DELIVERY_TIMEOUT: %w", err)
	}
	return cfg, nil
}

// Validate checks the mandatory settings and warns about disabled optional features.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("config: TELEGRAM_BOT_TOKEN is required")
	}
	if c.OperatorID == 0 {
		return errors.New("config: ADMIN_CHAT_ID is required")
	}
	switch c.StoreDriver {
	case StoreDriverFile:
		if c.StorePath == "" {
			return errors.New("config: STORE_PATH is required for the file store")
		}
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ConversationIdleTTL < 0 || c.DeliveryTimeout <= 0 {
		return errors.New("config: durations must not be negative")
	}

	if c.WebhookURL == "" {
		log.Println("WARN: WEBHOOK_URL is not set, complaints will not be forwarded")
	}
	if c.VideoFileID == "" {
		log.Println("WARN: VIDEO_GUIDE_FILE_ID is not set, /help will not send the video guide")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

// ParseList splits "a,b , c" into its non-empty trimmed parts.
func ParseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
