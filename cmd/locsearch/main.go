// Command locsearch searches and resolves places through the Google Places
// and Geocoding APIs, either as an HTTP service or from the terminal.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/location-search/internal/adapter/google"
	"github.com/couchcryptid/location-search/internal/config"
	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
	"github.com/couchcryptid/location-search/internal/querycache"
	"github.com/couchcryptid/location-search/internal/search"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "locsearch",
	Short: "Place autocomplete and resolution on Google Maps",
	Long: `
locsearch looks up place suggestions as text is typed and resolves a chosen
suggestion, or a coordinate pair, into a full location.

Configuration is read from the environment; GOOGLE_MAPS_API_KEY is required.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported marks a failure the handlers already printed.
var errReported = errors.New("failure already reported")

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app holds the dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	client   *google.Client
	cache    *querycache.Cache
	messages search.Messages
}

// loggerFactory builds a logger from LOG_LEVEL and LOG_FORMAT.
type loggerFactory func(level, format string) *slog.Logger

// cacheSizer picks the query cache bound for a command.
type cacheSizer func(*config.Config) int

// localCacheSize bounds the cache of a single terminal session.
func localCacheSize(c *config.Config) int { return c.QueryCacheSize }

// sharedCacheSize bounds the cache serve shares across HTTP clients.
func sharedCacheSize(c *config.Config) int { return c.ServeQueryCacheSize }

// newApp loads configuration and builds the Google client and query cache.
func newApp(newLogger loggerFactory, cacheSize cacheSizer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	messages, err := search.MessagesFor(cfg.MessagesLocale)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	metrics := observability.NewMetrics()
	client := google.NewClient(google.Options{
		APIKey:            cfg.GoogleAPIKey,
		BaseURL:           cfg.PlacesBaseURL,
		Language:          cfg.PlacesLanguage,
		ResolveLanguage:   cfg.PlacesResolveLanguage,
		Country:           cfg.PlacesCountry,
		Timeout:           cfg.PlacesTimeout,
		RequestsPerSecond: cfg.PlacesRateLimit,
	}, metrics, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		client:   client,
		cache:    querycache.New(cacheSize(cfg), metrics),
		messages: messages,
	}, nil
}

// newController builds a search controller over the app's client and cache.
func (a *app) newController(handlers search.Handlers) *search.Controller {
	return search.New(a.client, a.client, a.cache, handlers, search.Options{
		Debounce: a.cfg.SearchDebounce,
		Messages: a.messages,
		Logger:   a.logger,
	})
}

// terminalHandlers reports notifications on stderr.
func terminalHandlers() search.Handlers {
	return search.Handlers{
		OnError: func(n search.Notification) {
			fmt.Fprintln(os.Stderr, n.Error)
		},
		OnEmptyResolution: func(t domain.Target) {
			fmt.Fprintf(os.Stderr, "no address found for %s\n", t)
		},
	}
}
