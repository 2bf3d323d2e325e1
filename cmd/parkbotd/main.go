package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"parkbot/config"
	"parkbot/internal/api"
	"parkbot/internal/bot"
	"parkbot/internal/db"
	"parkbot/internal/directory"
	"parkbot/internal/maps"
	"parkbot/internal/notification"
	"parkbot/internal/scheduler"
	"parkbot/internal/session"
	"parkbot/internal/slack"
	"parkbot/internal/store"
)

func main() {
	cmd := &cli.Command{
		Name:  "parkbotd",
		Usage: "Slack bot that tracks parking sessions and reminds people to move their cars",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./config/config.yaml",
				Usage:   "path to the YAML configuration file",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.DurationFlag{
				Name:  "tick-interval",
				Usage: "override scheduler.interval_seconds",
			},
			&cli.DurationFlag{
				Name:  "reminder-window",
				Usage: "override scheduler.reminder_window_minutes",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Setup logger
	logger := log.New(os.Stdout, "parkbot ", log.LstdFlags)

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	if d := cmd.Duration("tick-interval"); d > 0 {
		cfg.Scheduler.Interval = d
	}
	if d := cmd.Duration("reminder-window"); d > 0 {
		cfg.Scheduler.ReminderWindow = d
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Slack.BotToken == "" {
		return errors.New("slack bot token is not configured; set slack.bot_token or SLACK_BOT_TOKEN")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	sessions := session.NewMemoryStore()

	slackClient := slack.NewClient(cfg.Slack)
	resolver := directory.NewCachedResolver(slackClient, cfg.Slack.DirectoryTTL)
	mapClient := maps.NewClient(cfg.Maps)

	var webpushOptions *webpush.Options
	var schedOpts []scheduler.Option
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		schedOpts = append(schedOpts, scheduler.WithMirror(pool))
		logger.Printf("push mirror started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; push mirroring disabled")
	}

	sched := scheduler.New(cfg.Scheduler, sessions, slackClient, schedOpts...)
	go sched.Run(ctx)

	var botOpts []bot.Option
	if cfg.Slack.BotUserID != "" {
		botOpts = append(botOpts, bot.WithSelfID(cfg.Slack.BotUserID))
	}
	handler := bot.NewHandler(cfg.Scheduler, sessions, slackClient, resolver, appStore, mapClient, botOpts...)

	if cfg.Slack.EnableRTM {
		listener := slack.NewListener(slackClient, handler.Serve)
		go listener.Run(ctx)
	}

	var events gin.HandlerFunc
	if cfg.Slack.SigningSecret != "" {
		events = slack.EventsHandler(cfg.Slack.SigningSecret, handler.Serve)
	} else {
		logger.Println("Slack signing secret not configured; /slack/events is disabled")
	}

	router := api.NewRouter(cfg.Server, api.NewHandler(sessions, appStore, webpushOptions), events)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}
