package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	dg "github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/api"
	"github.com/benjamonnguyen/pomomo-focus/discordgo"
	"github.com/benjamonnguyen/pomomo-focus/notify"
	"github.com/benjamonnguyen/pomomo-focus/settings"
	"github.com/benjamonnguyen/pomomo-focus/sqlite"
	"github.com/benjamonnguyen/pomomo-focus/timer"
)

func serveCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, if configured, the Discord bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable the fast-forward route")
	return cmd
}

func (a *app) serve(topCtx context.Context, debug bool) error {
	cfg, l := a.cfg, a.l

	// db
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close() //nolint

	tx, dbGetter := txStdLib.NewTransactor(
		db,
		txStdLib.NestedTransactionsSavepoints,
	)
	taskRepo := sqlite.NewTaskRepo(dbGetter, l)
	settingsRepo := sqlite.NewSettingsRepo(dbGetter, l)
	focusLog := sqlite.NewFocusLog(dbGetter, l)

	// settings
	var settingsProvider pomomo.SettingsProvider = settingsRepo
	var fileProvider *settings.FileProvider
	if cfg.SettingsFile != "" {
		fileProvider, err = settings.NewFileProvider(cfg.SettingsFile, settingsRepo, l)
		panicif(err)
		settingsProvider = fileProvider
	}

	// notifications
	events := notify.NewBroadcaster(l)
	sinks := notify.MultiSink{notify.NewLogSink(l), events}

	var cl *dg.Session
	if cfg.BotToken != "" {
		cl, err = dg.New("Bot " + cfg.BotToken)
		panicif(err)
		cl.ShouldRetryOnRateLimit = false
		cl.Client = &http.Client{Timeout: (20 * time.Second)}
		cl.UserAgent = fmt.Sprintf("%s (%s, v%s)", cfg.BotName, RepoURL, Version)
		cl.Identify.Intents = dg.IntentsGuilds
		sinks = append(sinks, discordgo.NewChannelSink(cl, cfg.NotifyChannelID, l))
	}

	// timers
	manager := timer.NewManager(topCtx, timer.ManagerConfig{
		Tasks:        taskRepo,
		Settings:     settingsProvider,
		Log:          focusLog,
		Sink:         sinks,
		Tx:           tx,
		TickInterval: cfg.TickInterval,
		Logger:       l,
	})

	if fileProvider != nil {
		go func() {
			err := fileProvider.Watch(topCtx, func() {
				manager.ReloadSettings(topCtx)
			})
			if err != nil {
				l.Error("stopped watching settings", "path", cfg.SettingsFile, "err", err)
			}
		}()
	}

	// discord
	if cl != nil {
		focusHandler := discordgo.NewFocusHandler(manager, l)
		cl.AddHandler(func(s *dg.Session, m *dg.InteractionCreate) {
			focusHandler.Handle(topCtx, s, m)
		})
		if err := cl.Open(); err != nil {
			return fmt.Errorf("error opening connection: %w", err)
		}
		l.Info(cfg.BotName + " connected to Discord")
	}

	// http
	server := api.NewServer(api.Config{
		Engines:  manager,
		Stats:    focusLog,
		Settings: settingsProvider,
		Events:   events,
		Logger:   l,
		Debug:    debug,
	})
	serveErr := server.Run(topCtx, cfg.HTTPAddr)
	if serveErr != nil {
		l.Error("http server stopped", "err", serveErr)
	}

	// graceful shutdown
	l.Info("terminating " + cfg.BotName)
	shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), time.Minute)
	go func() {
		// engines flush notifications through the bot before it closes
		if err := manager.Shutdown(); err != nil {
			l.Error(err)
		}
		if cl != nil {
			if err := cl.Close(); err != nil {
				l.Error(err)
			}
		}
		shutdownTimeoutC()
	}()
	<-shutdownTimeout.Done()
	if !errors.Is(shutdownTimeout.Err(), context.Canceled) {
		l.Error("failed to shut down gracefully", "err", shutdownTimeout.Err())
	}
	return serveErr
}
