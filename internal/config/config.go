package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

type Config struct {
	// Telegram
	BotToken    string
	BotUsername string
	AdminChatID int64

	// Webhook
	WebhookURL  string
	WebhookPort int

	// Storage
	StoreDriver string
	DBPath      string
	DBSource    string
	UsersFile   string

	// Ledger policy
	EarnCooldown    time.Duration
	EarnAmount      int64
	ReferralBonus   int64
	MinWithdraw     int64
	LeaderboardSize int

	// Behaviour
	ReplyUnknownText bool
	ReloadPerEvent   bool
	SendTimeout      time.Duration

	// Dedup
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration

	// Backups
	BackupInterval    time.Duration
	BackupDir         string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	LogLevel slog.Level
}

func Load() *Config {
	defaults := ledger.DefaultPolicy()

	cfg := &Config{
		// Telegram
		BotToken:    getEnv("BOT_TOKEN", ""),
		BotUsername: strings.TrimPrefix(getEnv("BOT_USERNAME", "earn_points_bot"), "@"),
		AdminChatID: getEnvInt64("ADMIN_CHAT_ID", 0),

		// Webhook
		WebhookURL:  getEnv("WEBHOOK_URL", getEnv("RENDER_EXTERNAL_URL", "")),
		WebhookPort: getEnvInt("WEBHOOK_PORT", 8080),

		// Storage
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", "./ledger.db"),
		DBSource:    getEnv("DB_SOURCE", ""),
		UsersFile:   getEnv("USERS_FILE", "./users.json"),

		// Ledger policy
		EarnCooldown:    getEnvDuration("EARN_COOLDOWN", defaults.Cooldown),
		EarnAmount:      getEnvInt64("EARN_AMOUNT", defaults.EarnAmount),
		ReferralBonus:   getEnvInt64("REFERRAL_BONUS", defaults.ReferralBonus),
		MinWithdraw:     getEnvInt64("MIN_WITHDRAW", defaults.MinWithdraw),
		LeaderboardSize: getEnvInt("LEADERBOARD_SIZE", defaults.LeaderboardSize),

		// Behaviour
		ReplyUnknownText: getEnvBool("REPLY_UNKNOWN_TEXT", false),
		ReloadPerEvent:   getEnvBool("RELOAD_PER_EVENT", false),
		SendTimeout:      getEnvDuration("SEND_TIMEOUT", 10*time.Second),

		// Dedup
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DedupTTL:      getEnvDuration("DEDUP_TTL", 24*time.Hour),

		// Backups
		BackupInterval:    getEnvDuration("BACKUP_INTERVAL", 0),
		BackupDir:         getEnv("BACKUP_DIR", "./backups"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	// Render exposes the bare service URL; updates are posted to /webhook
	if cfg.WebhookURL != "" && os.Getenv("WEBHOOK_URL") == "" {
		cfg.WebhookURL = strings.TrimSuffix(cfg.WebhookURL, "/") + "/webhook"
	}

	return cfg
}

// Validate reports every missing or out of range value at once
func (c *Config) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}

	switch c.StoreDriver {
	case "sqlite", "json":
	case "postgres":
		if c.DBSource == "" {
			errs = append(errs, errors.New("DB_SOURCE is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be sqlite, postgres or json, got %q", c.StoreDriver))
	}

	if c.EarnCooldown < 0 || (c.EarnCooldown > 0 && c.EarnCooldown < time.Second) {
		errs = append(errs, errors.New("EARN_COOLDOWN must be 0 or at least 1s"))
	}
	if c.EarnAmount <= 0 {
		errs = append(errs, errors.New("EARN_AMOUNT must be positive"))
	}
	if c.ReferralBonus < 0 {
		errs = append(errs, errors.New("REFERRAL_BONUS must not be negative"))
	}
	if c.MinWithdraw <= 0 {
		errs = append(errs, errors.New("MIN_WITHDRAW must be positive"))
	}
	if c.LeaderboardSize <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_SIZE must be positive"))
	}
	if c.BackupInterval < 0 {
		errs = append(errs, errors.New("BACKUP_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

// Policy returns the ledger constants
func (c *Config) Policy() ledger.Policy {
	return ledger.Policy{
		Cooldown:        c.EarnCooldown,
		EarnAmount:      c.EarnAmount,
		ReferralBonus:   c.ReferralBonus,
		MinWithdraw:     c.MinWithdraw,
		LeaderboardSize: c.LeaderboardSize,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
