package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache driver names accepted by CACHE_DRIVER.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	CacheDriver         string
	CachePrefix         string
	NATSURL             string
	EventsSubjectPrefix string
	EventsQueueGroup    string
	JWTSecret           string
	JWTTTL              time.Duration
	BcryptCost          int
	MessageRateLimit    int
	MessageRateWindow   time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	AvatarMaxSizeMB     int
	SeedAdminUsername   string
	SeedAdminEmail      string
	SeedAdminPassword   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether avatar uploads can be pushed to Cloudinary.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SeedAdminEnabled reports whether a bootstrap admin account was configured.
func (c Config) SeedAdminEnabled() bool {
	return c.SeedAdminUsername != "" && c.SeedAdminEmail != "" && c.SeedAdminPassword != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WEBCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "WebChat API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cache.driver", CacheDriverMemory)
	v.SetDefault("cache.prefix", "webchat:cache")
	v.SetDefault("events.subject_prefix", "webchat")
	v.SetDefault("events.queue_group", "messagesId")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("bcrypt.cost", 0)
	v.SetDefault("message.rate_limit", 30)
	v.SetDefault("message.rate_window", "1m")
	v.SetDefault("cloudinary.folder", "webchat/avatars")
	v.SetDefault("avatar.max_size_mb", 2)

	jwtTTL, err := parseDuration(v.GetString("jwt.ttl"), 24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	rateWindow, err := parseDuration(v.GetString("message.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid message rate window: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		LogLevel:            strings.ToLower(v.GetString("log.level")),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		CacheDriver:         strings.ToLower(strings.TrimSpace(v.GetString("cache.driver"))),
		CachePrefix:         v.GetString("cache.prefix"),
		NATSURL:             v.GetString("nats.url"),
		EventsSubjectPrefix: v.GetString("events.subject_prefix"),
		EventsQueueGroup:    v.GetString("events.queue_group"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTTTL:              jwtTTL,
		BcryptCost:          v.GetInt("bcrypt.cost"),
		MessageRateLimit:    v.GetInt("message.rate_limit"),
		MessageRateWindow:   rateWindow,
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		AvatarMaxSizeMB:     v.GetInt("avatar.max_size_mb"),
		SeedAdminUsername:   v.GetString("seed.admin_username"),
		SeedAdminEmail:      v.GetString("seed.admin_email"),
		SeedAdminPassword:   v.GetString("seed.admin_password"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.CacheDriver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis cache driver requires a redis url")
		}
	default:
		return Config{}, fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}

	if cfg.MessageRateLimit <= 0 {
		cfg.MessageRateLimit = 30
	}

	if cfg.AvatarMaxSizeMB <= 0 {
		cfg.AvatarMaxSizeMB = 2
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
