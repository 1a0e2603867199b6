package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"golang.org/x/text/language"
)

// ErrMissingAPIKey is returned by RequireAPIKey when GOOGLE_MAPS_API_KEY is unset.
var ErrMissingAPIKey = errors.New("GOOGLE_MAPS_API_KEY is required")

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Google Places and Geocoding configuration.
	GoogleAPIKey          string
	PlacesBaseURL         string
	PlacesLanguage        string
	PlacesResolveLanguage string
	PlacesCountry         string
	PlacesTimeout         time.Duration
	PlacesRateLimit       float64

	// Search behavior. QueryCacheSize bounds the per-process cache of the
	// terminal commands; ServeQueryCacheSize bounds the cache that serve
	// shares across all HTTP clients. 0 means unbounded.
	QueryCacheSize      int
	ServeQueryCacheSize int
	SearchDebounce time.Duration
	MessagesLocale string

	// Location sink.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaLocationTopic string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	placesTimeout, err := parseDuration("PLACES_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	debounce, err := parseDuration("SEARCH_DEBOUNCE", "0s", true)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("PLACES_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid PLACES_RATE_LIMIT: must be a non-negative number")
	}

	cacheSize, err := parseCacheSize("QUERY_CACHE_SIZE", "0")
	if err != nil {
		return nil, err
	}

	serveCacheSize, err := parseCacheSize("SERVE_QUERY_CACHE_SIZE", "10000")
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_ENABLED: must be true or false")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GoogleAPIKey:          os.Getenv("GOOGLE_MAPS_API_KEY"),
		PlacesBaseURL:         strings.TrimRight(sharedcfg.EnvOrDefault("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api"), "/"),
		PlacesLanguage:        sharedcfg.EnvOrDefault("PLACES_LANGUAGE", "PT"),
		PlacesResolveLanguage: sharedcfg.EnvOrDefault("PLACES_RESOLVE_LANGUAGE", "pt-BR"),
		PlacesCountry:         strings.ToLower(os.Getenv("PLACES_COUNTRY")),
		PlacesTimeout:         placesTimeout,
		PlacesRateLimit:       rateLimit,

		QueryCacheSize:      cacheSize,
		ServeQueryCacheSize: serveCacheSize,
		SearchDebounce:      debounce,
		MessagesLocale:      sharedcfg.EnvOrDefault("MESSAGES_LOCALE", "pt"),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLocationTopic: sharedcfg.EnvOrDefault("KAFKA_LOCATION_TOPIC", "selected-locations"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	for _, v := range []struct{ key, tag string }{
		{"PLACES_LANGUAGE", cfg.PlacesLanguage},
		{"PLACES_RESOLVE_LANGUAGE", cfg.PlacesResolveLanguage},
		{"MESSAGES_LOCALE", cfg.MessagesLocale},
	} {
		if _, err := language.Parse(v.tag); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", v.key, v.tag, err)
		}
	}
	if cfg.PlacesCountry != "" {
		if _, err := language.ParseRegion(cfg.PlacesCountry); err != nil {
			return nil, fmt.Errorf("invalid PLACES_COUNTRY %q: %w", cfg.PlacesCountry, err)
		}
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaLocationTopic == "" {
			return nil, errors.New("KAFKA_LOCATION_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// RequireAPIKey reports ErrMissingAPIKey for commands that call Google.
func (c *Config) RequireAPIKey() error {
	if c.GoogleAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCacheSize(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}
