package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"postbot/internal/accounts"
	"postbot/internal/config"
	"postbot/internal/dispatch"
	"postbot/internal/generator"
	"postbot/internal/pacing"
	"postbot/internal/poster"
	"postbot/internal/storage"
	"postbot/internal/templates"
	"postbot/internal/twitter"
	logx "postbot/pkg/logx"
)

func main() {
	var (
		cfgPath   string
		text      string
		sweepOnly bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.StringVar(&text, "text", "", "post this text instead of generating from a template")
	flag.BoolVar(&sweepOnly, "sweep", false, "only replay the failure queue, post nothing new")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, text, sweepOnly); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, text string, sweepOnly bool) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()
	mgr.SetLogger(log)

	// A run can sit in rate-limit waits for minutes; pick up logging
	// changes without a restart.
	go func() { _ = mgr.Watch(ctx) }()
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		for next := range updates {
			if next == nil {
				continue
			}
			logSvc.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console || !next.Logging.File.Enabled,
				File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
			})
		}
	}()

	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyWait(),
	}, log)
	if err != nil {
		// Degrade rather than abort: the run proceeds without durable
		// history, which only weakens pacing and sweep continuity.
		log.Error("storage unavailable, using in-memory store", logx.Err(err))
		store = storage.NewMemory()
	}
	defer store.Close()

	registry := accounts.NewRegistry(
		accounts.FileSource{Path: cfg.AccountsFile},
		func(cred twitter.Credential) twitter.Publisher {
			return twitter.NewClient(cred, twitter.Options{
				BaseURL:    cfg.Twitter.BaseURL,
				RatePerMin: cfg.Twitter.RatePerMin,
			})
		},
		log,
	)

	handles, err := registry.ResolveAll(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if len(handles) == 0 && !sweepOnly {
		return fmt.Errorf("no usable accounts in %s", cfg.AccountsFile)
	}

	machine := poster.NewMachine(poster.Config{
		SimulationMode: cfg.SimulationMode,
		RateLimitWait:  cfg.Twitter.RetryWait(),
	}, nil, log)

	d := dispatch.New(registry, store, machine, pacing.NewCalculator(), log, dispatch.Options{
		Budget: cfg.Twitter.Budget(),
	})

	if sweepOnly {
		if !d.Sweep(ctx) {
			log.Info("failure queue empty, nothing to sweep")
		}
		return nil
	}

	if text == "" {
		text, err = generateText(ctx, cfg, store, log)
		if err != nil {
			return err
		}
	}

	results := d.Dispatch(ctx, text, handles)
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	log.Info("dispatch complete",
		logx.Int("accounts", len(results)),
		logx.Int("succeeded", ok),
		logx.Bool("simulated", cfg.SimulationMode))

	d.Sweep(ctx)
	return nil
}

// generateText picks a template (feedback-weighted against history) and
// runs the content generator over it.
func generateText(ctx context.Context, cfg *config.Config, store storage.Store, log logx.Logger) (string, error) {
	if cfg.TemplatesFile == "" {
		return "", fmt.Errorf("no -text given and no templates_file configured")
	}
	tpls, err := templates.FileStore{Path: cfg.TemplatesFile}.List()
	if err != nil {
		return "", fmt.Errorf("load templates: %w", err)
	}

	history, err := store.ReadHistory(ctx)
	if err != nil {
		log.Warn("failed to read history for template selection", logx.Err(err))
		history = nil
	}

	tpl := templates.NewSelector().Select(tpls, history)
	if tpl == nil {
		return "", fmt.Errorf("no templates available in %s", cfg.TemplatesFile)
	}
	log.Debug("selected template", logx.String("template", tpl.ID))

	return generator.Seeded{}.Generate(ctx, tpl)
}
