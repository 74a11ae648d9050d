package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/op/go-logging"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/coffersTech/logdash/internal/config"
	"github.com/coffersTech/logdash/internal/controller"
	"github.com/coffersTech/logdash/internal/engine"
	"github.com/coffersTech/logdash/internal/server"
	"github.com/coffersTech/logdash/internal/session"
	"github.com/coffersTech/logdash/internal/webhook"
	"github.com/coffersTech/logdash/internal/websocket"
)

var log = logging.MustGetLogger("main")

func main() {
	// Command-line flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	webDir := flag.String("web", "", "Directory for static web files (overrides config)")
	webhookURL := flag.String("webhook", "", "Log parsing webhook URL (overrides config and "+config.EnvWebhookURL+")")
	hashToken := flag.String("hash-token", "", "Print the bcrypt hash of a token for auth.token_hash and exit")
	flag.Parse()

	if *hashToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashToken), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *webDir != "" {
		cfg.Server.WebDir = *webDir
	}
	if *webhookURL != "" {
		cfg.Webhook.URL = *webhookURL
	}

	if err := setupLogging(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Criticalf("Invalid configuration:\n%v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Criticalf("logdash stopped: %v", err)
		os.Exit(1)
	}
	log.Infof("logdash exited gracefully.")
}

func run(cfg *config.Config) error {
	maxBytes, err := cfg.MaxUploadBytes()
	if err != nil {
		return err
	}
	granularity, err := engine.ParseGranularity(cfg.Chart.Granularity)
	if err != nil {
		return err
	}

	// 1. Data and notifications
	store := engine.NewStore()
	hub := websocket.NewHub()

	// 2. Parsing service client and controller
	client := webhook.New(webhook.Options{
		URL:           cfg.Webhook.URL,
		FetchURL:      cfg.Webhook.FetchURL,
		Timeout:       cfg.Webhook.Timeout.D(),
		FetchAttempts: cfg.Webhook.FetchAttempts,
		RetryDelay:    cfg.Webhook.RetryDelay.D(),
	})
	ctrl := controller.New(store, client, controller.Options{
		MaxBytes: maxBytes,
		Notifier: hub,
	})
	log.Infof("Parsing webhook: %s (timeout %v)", cfg.Webhook.URL, cfg.Webhook.Timeout.D())

	// 3. View sessions and HTTP
	sessions := session.NewStore()
	srv := server.New(store, ctrl, session.NewServer(sessions, store), hub, server.Options{
		WebDir:    cfg.Server.WebDir,
		TokenHash: cfg.Auth.TokenHash,
		Chart: engine.ChartOptions{
			Granularity:      granularity,
			PlaceholderSlots: cfg.Chart.PlaceholderSlots,
		},
	})
	if cfg.Auth.TokenHash != "" {
		log.Infof("Token auth enabled for /api and /ws")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error {
		return sessions.RunCleanup(ctx, cfg.Sessions.CleanupInterval.D(), cfg.Sessions.Timeout.D())
	})
	if cfg.Refresh.Enabled {
		g.Go(func() error {
			return controller.NewRefresher(ctrl, cfg.Refresh.Interval.D()).Run(ctx)
		})
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	g.Go(func() error {
		log.Infof("Dashboard available at http://localhost%s", addr)
		return srv.Start(addr)
	})

	// 4. Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		log.Infof("Shutting down...")
		ctrl.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warningf("Server shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogging(c config.Log) error {
	format := `%{time:2006-01-02 15:04:05.000} %{level:.4s} [%{module}] %{message}`
	if c.Format == "color" {
		format = `%{color}%{time:15:04:05.000} %{level:.4s} [%{module}]%{color:reset} %{message}`
	}
	formatter, err := logging.NewStringFormatter(format)
	if err != nil {
		return fmt.Errorf("log format: %w", err)
	}

	level, err := logging.LogLevel(c.Level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", c.Level, err)
	}

	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), formatter)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return nil
}
