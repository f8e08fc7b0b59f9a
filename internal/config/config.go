package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all daemon settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string
	KafkaJobsTopic     string
	KafkaProductsTopic string
	KafkaGroupID       string
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Processing configuration. When WatchDirectory is set the daemon takes
	// jobs from incoming files there instead of the Kafka jobs topic.
	ProductID       string
	ConfigDir       string
	ModelDir        string
	SaveDirectory   string
	WatchDirectory  string
	DateDirectories bool
	Overwrite       bool

	// WAVEWATCH-III collocation service configuration.
	HindcastURL       string
	HindcastEnabled   bool
	HindcastTimeout   time.Duration
	HindcastCacheSize int
	HindcastWeight    float64
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	hindcastTimeout, err := parseDuration("HINDCAST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	hindcastCacheSize, err := parseInt("HINDCAST_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	hindcastWeight, err := parseFloat("HINDCAST_WEIGHT", 0.2)
	if err != nil {
		return nil, err
	}

	hindcastURL := os.Getenv("HINDCAST_URL")
	hindcastEnabled := hindcastURL != ""
	if v := os.Getenv("HINDCAST_ENABLED"); v != "" {
		hindcastEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaJobsTopic:     envOrDefault("KAFKA_JOBS_TOPIC", "asar-l1-jobs"),
		KafkaProductsTopic: envOrDefault("KAFKA_PRODUCTS_TOPIC", "asar-l2-products"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "asar-seastate-processor"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ProductID:       envOrDefault("PRODUCT_ID", ""),
		ConfigDir:       envOrDefault("CONFIG_DIR", "config"),
		ModelDir:        envOrDefault("MODEL_DIR", "models"),
		SaveDirectory:   envOrDefault("SAVE_DIRECTORY", ""),
		WatchDirectory:  os.Getenv("WATCH_DIRECTORY"),
		DateDirectories: envOrDefault("DATE_DIRECTORIES", "true") == "true",
		Overwrite:       os.Getenv("OVERWRITE") == "true",

		HindcastURL:       hindcastURL,
		HindcastEnabled:   hindcastEnabled,
		HindcastTimeout:   hindcastTimeout,
		HindcastCacheSize: hindcastCacheSize,
		HindcastWeight:    hindcastWeight,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.ProductID == "" {
		return nil, errors.New("PRODUCT_ID is required")
	}
	if len(cfg.ProductID) != 3 {
		return nil, fmt.Errorf("PRODUCT_ID must be a 3-character processing ID, got %q", cfg.ProductID)
	}
	if cfg.SaveDirectory == "" {
		return nil, errors.New("SAVE_DIRECTORY is required")
	}
	if cfg.HindcastEnabled && cfg.HindcastURL == "" {
		return nil, errors.New("HINDCAST_ENABLED is true but HINDCAST_URL is not set")
	}
	if cfg.HindcastWeight < 0 || cfg.HindcastWeight > 1 {
		return nil, fmt.Errorf("HINDCAST_WEIGHT must be within [0,1], got %g", cfg.HindcastWeight)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	v := envOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
