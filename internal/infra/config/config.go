package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration values loaded from the
// environment and an optional config.yaml.
type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	StorageMode        string
	FixturesPath       string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	RedisURL           string
	LockTTL            time.Duration
	LockWait           time.Duration
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	ICalFetchTimeout   time.Duration
	ICalSyncInterval   time.Duration
	ICalSyncWorkers    int
	ICalFeedSecret     string
	PublicBaseURL      string
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
}

// Load reads configuration from the current environment and, when present,
// ./config.yaml or ./config/config.yaml. Environment values win.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Env:              v.GetString("APP_ENV"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		StorageMode:      strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_MODE"))),
		FixturesPath:     v.GetString("FIXTURES_PATH"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		KafkaBrokers:     splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		RedisURL:         v.GetString("REDIS_URL"),
		ICalSyncWorkers:  v.GetInt("ICAL_SYNC_WORKERS"),
		ICalFeedSecret:   v.GetString("ICAL_FEED_SECRET"),
		PublicBaseURL:    strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		S3PublicEndpoint: v.GetString("S3_PUBLIC_ENDPOINT"),
		S3AccessKey:      v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:      v.GetString("S3_SECRET_KEY"),
		S3Bucket:         v.GetString("S3_BUCKET"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LOCK_TTL", &cfg.LockTTL},
		{"LOCK_WAIT", &cfg.LockWait},
		{"IDEMP_TTL", &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval},
		{"ICAL_FETCH_TIMEOUT", &cfg.ICalFetchTimeout},
		{"ICAL_SYNC_INTERVAL", &cfg.ICalSyncInterval},
	}
	for _, d := range durations {
		parsed, err := parseDuration(v, d.key)
		if err != nil {
			return Config{}, err
		}
		*d.dst = parsed
	}

	for _, raw := range splitList(v.GetString("RETRY_BACKOFF")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	useSSL, err := parseBool(v, "S3_USE_SSL")
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	switch cfg.StorageMode {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=%s", StorageMongo)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE %q", cfg.StorageMode)
	}
	if cfg.ICalSyncWorkers < 1 {
		cfg.ICalSyncWorkers = 1
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORAGE_MODE", StorageMemory)
	v.SetDefault("FIXTURES_PATH", "data/fixtures.json")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DB", "villasaas")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "5s")
	v.SetDefault("IDEMP_TTL", "168h")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
	v.SetDefault("ICAL_FETCH_TIMEOUT", "5s")
	v.SetDefault("ICAL_SYNC_INTERVAL", "15m")
	v.SetDefault("ICAL_SYNC_WORKERS", 4)
	v.SetDefault("ICAL_FEED_SECRET", "")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PUBLIC_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_SECRET_KEY", "minioadmin")
	v.SetDefault("S3_BUCKET", "villasaas-feeds")
	v.SetDefault("S3_USE_SSL", "false")
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

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	raw := v.GetString(key)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "", "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
