// Package pos parses POS command flags and launches the session runtime.
package pos

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/Smarticus81/bevpro-sync/internal/platform/cmd"
	posapp "github.com/Smarticus81/bevpro-sync/internal/pos/app"
)

// Config holds POS command configuration.
type Config struct {
	APIBaseURL           string        `env:"BEVPRO_API_BASE_URL" envDefault:"http://localhost:5000/api"`
	EventsURL            string        `env:"BEVPRO_EVENTS_URL" envDefault:"http://localhost:5000/api/events"`
	DBPath               string        `env:"BEVPRO_POS_DB_PATH" envDefault:"data/pos.db"`
	HTTPTimeout          time.Duration `env:"BEVPRO_HTTP_TIMEOUT" envDefault:"10s"`
	ResolveTimeout       time.Duration `env:"BEVPRO_ORDER_RESOLVE_TIMEOUT" envDefault:"30s"`
	ReconnectBase        time.Duration `env:"BEVPRO_RECONNECT_BASE" envDefault:"1s"`
	ReconnectCap         time.Duration `env:"BEVPRO_RECONNECT_CAP" envDefault:"10s"`
	MaxReconnectAttempts int           `env:"BEVPRO_RECONNECT_MAX_ATTEMPTS" envDefault:"5"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL, "POS backend API base URL")
	fs.StringVar(&cfg.EventsURL, "events-url", cfg.EventsURL, "POS event stream URL")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The POS journal SQLite database path")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "API request timeout")
	fs.DurationVar(&cfg.ResolveTimeout, "resolve-timeout", cfg.ResolveTimeout, "Order resolution wait bound")
	fs.DurationVar(&cfg.ReconnectBase, "reconnect-base", cfg.ReconnectBase, "Initial event-channel reconnect delay")
	fs.DurationVar(&cfg.ReconnectCap, "reconnect-cap", cfg.ReconnectCap, "Maximum event-channel reconnect delay")
	fs.IntVar(&cfg.MaxReconnectAttempts, "reconnect-max-attempts", cfg.MaxReconnectAttempts, "Reconnect attempts before requiring a manual refresh")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the POS session runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePOS, func(ctx context.Context) error {
		return posapp.Run(ctx, posapp.RuntimeConfig{
			APIBaseURL:           cfg.APIBaseURL,
			EventsURL:            cfg.EventsURL,
			DBPath:               cfg.DBPath,
			HTTPTimeout:          cfg.HTTPTimeout,
			ResolveTimeout:       cfg.ResolveTimeout,
			ReconnectBase:        cfg.ReconnectBase,
			ReconnectCap:         cfg.ReconnectCap,
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		})
	})
}
