package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Smarticus81/bevpro-sync/internal/platform/timeouts"
	"github.com/Smarticus81/bevpro-sync/internal/pos/api"
	"github.com/Smarticus81/bevpro-sync/internal/pos/channel"
	possqlite "github.com/Smarticus81/bevpro-sync/internal/pos/storage/sqlite"
	"github.com/Smarticus81/bevpro-sync/internal/telemetry"
)

// RuntimeConfig controls POS session startup and dependencies.
type RuntimeConfig struct {
	APIBaseURL           string
	EventsURL            string
	DBPath               string
	HTTPTimeout          time.Duration
	ResolveTimeout       time.Duration
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	MaxReconnectAttempts int

	// Presenter receives UI-bound outputs. Defaults to a log presenter for
	// headless runs.
	Presenter Presenter
}

const defaultPOSDB = "data/pos.db"

// Run composes the journal store, API client, connection manager, and
// session, then drives the manager and dispatch loop until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return fmt.Errorf("api base url is required")
	}
	if strings.TrimSpace(cfg.EventsURL) == "" {
		return fmt.Errorf("events url is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultPOSDB
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = timeouts.HTTPRequest
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pos storage dir: %w", err)
		}
	}

	journal, err := possqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open pos journal store: %w", err)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			log.Printf("close pos journal store: %v", closeErr)
		}
	}()

	apiClient := api.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})

	events := make(chan channel.Event, 16)
	manager := channel.NewManager(
		channel.NewSSEDialer(cfg.EventsURL, &http.Client{}),
		events,
		channel.Options{
			Base:        cfg.ReconnectBase,
			Cap:         cfg.ReconnectCap,
			MaxAttempts: cfg.MaxReconnectAttempts,
		},
	)

	session, err := NewSession(Deps{
		Submitter: apiClient,
		Presenter: cfg.Presenter,
		Events:    events,
		Reconnect: manager.Connect,
		Receipts:  journal,
		Emitter:   telemetry.NewEmitter(journal),
	}, Config{
		ResolveTimeout: cfg.ResolveTimeout,
	})
	if err != nil {
		return fmt.Errorf("build pos session: %w", err)
	}

	catalog, err := apiClient.FetchCatalog(ctx)
	if err != nil {
		// A drinks_refresh push will seed the cache once the channel is up.
		log.Printf("catalog bootstrap: %v", err)
	} else {
		session.Seed(catalog)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return manager.Run(ctx) })
	group.Go(func() error { return session.Run(ctx) })
	return group.Wait()
}
