package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"platen/internal/cache"
	"platen/internal/config"
	"platen/internal/controller"
	"platen/internal/health"
	"platen/internal/ledger"
	"platen/internal/logging"
	"platen/internal/prefs"
	"platen/internal/readiness"
	"platen/internal/selection"
	"platen/internal/ui"
)

// Options configure the platen application. Non-zero fields override the
// matching configuration values.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/platen/prefs.toml
	Period     string // "YYYY-MM"; empty uses config, then the current month
	ServerURL  string
	PollEvery  int // seconds; zero uses config
}

// Run boots the platen TUI until the context is cancelled or the operator
// quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ServerURL != "" {
		cfg.Server.URL = opts.ServerURL
	}
	if opts.PollEvery > 0 {
		cfg.Server.PollSeconds = opts.PollEvery
	}
	if opts.Period != "" {
		cfg.Period = opts.Period
	}

	log, err := logging.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	period, err := resolvePeriod(cfg.Period)
	if err != nil {
		return err
	}

	token, err := ReadToken(cfg.Server.TokenFile)
	if err != nil {
		return err
	}

	client, err := ledger.NewClient(cfg.Server.URL, token, log)
	if err != nil {
		return fmt.Errorf("init ledger client: %w", err)
	}
	client.WithTimeout(cfg.Timeout())

	cacheStore, err := cache.Open(cfg.Cache.File)
	if err != nil {
		// The cache is a resilience layer; run without it rather than die.
		log.Warn("offline cache unavailable", "path", cfg.Cache.File, "error", err)
		cacheStore = nil
	}
	defer cacheStore.Close()

	session := &Session{
		client:     client,
		cache:      cacheStore,
		selections: selection.NewStore(),
		readiness:  readiness.NewSet(),
		channels:   cfg.Channels,
		period:     period,
		log:        log,
	}

	orders, offline, err := session.Hydrate(ctx)
	if err != nil {
		return fmt.Errorf("load orders for %s: %w", period, err)
	}

	caps := make(map[string]controller.Capabilities, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		caps[ch.ID] = controller.Capabilities{
			BulkRun:    ch.BulkRunEnabled(),
			Completion: ch.CompletionEnabled(),
		}
	}

	ctrl := controller.New(controller.Options{
		Period:       period,
		Gateway:      client,
		Selections:   session.selections,
		Readiness:    session.readiness,
		Capabilities: caps,
		Log:          log,
	})

	healthStore := &health.Store{}
	StartPoller(ctx, healthStore, client, cfg.PollInterval(), log)

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	log.Info("platen starting",
		"period", period,
		"server", cfg.Server.URL,
		"channels", len(cfg.Channels),
		"offline", offline)

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: ctrl,
		Selections: session.selections,
		Health:     healthStore,
		Channels:   cfg.Channels,
		Reloader:   session,
		Orders:     orders,
		Offline:    offline,
		Channel:    userPrefs.Channel,
		LogPath:    cfg.Logging.File,
		PrefsPath:  opts.PrefsPath,
		PollTick:   cfg.PollInterval(),
		ThemeName:  userPrefs.Theme,
	})
}

// resolvePeriod validates the configured period, defaulting to the month
// containing now.
func resolvePeriod(raw string) (ledger.Period, error) {
	if strings.TrimSpace(raw) == "" {
		return ledger.CurrentPeriod(time.Now()), nil
	}
	return ledger.ParsePeriod(raw)
}
