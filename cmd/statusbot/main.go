package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/obsidianstack/statusbot/internal/api"
	"github.com/obsidianstack/statusbot/internal/auth"
	"github.com/obsidianstack/statusbot/internal/config"
	"github.com/obsidianstack/statusbot/internal/dispatch"
	"github.com/obsidianstack/statusbot/internal/metrics"
	"github.com/obsidianstack/statusbot/internal/publish"
	"github.com/obsidianstack/statusbot/internal/templates"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional KEY=VALUE file loaded before the config")
	templatesPath := flag.String("templates", "", "template file; overrides templates_file from the config")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	flag.Parse()

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("statusbot starting", "config", *configPath)

	if err := config.LoadEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *templatesPath != "" {
		cfg.TemplatesFile = *templatesPath
	}
	live := cfg.LiveMode()

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"publisher", cfg.Publisher.Type,
		"live", live,
	)

	store, err := templates.Load(cfg.TemplatesFile)
	if err != nil {
		slog.Error("failed to load templates", "path", cfg.TemplatesFile, "err", err)
		os.Exit(1)
	}
	slog.Info("templates loaded", "path", cfg.TemplatesFile, "overrides", store.Len())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub, closePub, err := publish.New(cfg.Publisher)
	switch {
	case err != nil && live:
		slog.Error("failed to create publisher", "type", cfg.Publisher.Type, "err", err)
		os.Exit(1)
	case err != nil:
		// Nothing is posted outside live mode, so missing credentials only
		// matter once it is switched on.
		slog.Warn("publisher unavailable, continuing without one", "type", cfg.Publisher.Type, "err", err)
		pub = publish.Nop{}
	}
	defer func() {
		if err := closePub(); err != nil {
			slog.Warn("publisher close failed", "err", err)
		}
	}()

	if live {
		verifyCtx, verifyCancel := context.WithTimeout(ctx, 15*time.Second)
		acct, err := publish.Identity(verifyCtx, pub)
		verifyCancel()
		if err != nil {
			slog.Error("failed to verify publisher credentials", "type", cfg.Publisher.Type, "err", err)
			os.Exit(1)
		}
		if acct != "" {
			slog.Info("authenticated as", "account", acct)
		}
	} else {
		slog.Warn("live mode disabled, rendered posts will not be published", "env", cfg.LiveEnv)
	}

	m := metrics.New()
	d := dispatch.New(store, pub, live, dispatch.WithMetrics(m))

	handler := api.New(d, api.Options{
		Auth: auth.APIKey(
			cfg.Server.Auth.Mode,
			cfg.Server.Auth.EffectiveHeader(),
			cfg.Server.Auth.Key(),
		),
		Metrics:   m,
		Overrides: store.Len(),
	})

	go func() {
		err := config.Watch(ctx, []string{*configPath, cfg.TemplatesFile}, func(path string) {
			slog.Warn("configuration changed on disk, restart required to apply", "path", path)
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("statusbot shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Newf("unknown log level %q", s)
}
