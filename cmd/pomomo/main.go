package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/sqlite"
)

const (
	RepoURL = "https://github.com/benjamonnguyen/pomomo-focus"
	Version = "0.1.0"
)

func main() {
	topCtx, topCtxC := context.WithCancel(context.Background())
	go func() {
		sc := make(chan os.Signal, 1)
		signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
		<-sc
		log.Info("terminating")
		topCtxC()
	}()

	if err := newRootCmd().ExecuteContext(topCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	isProd bool
	cfg    pomomo.Config
	l      *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pomomo",
		Short:         "Focus timer with task tracking",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVar(&a.isProd, "prod", false, "load .env instead of .env.dev")

	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(registerCmd(a))
	root.AddCommand(taskCmd(a))
	root.AddCommand(settingsCmd(a))

	return root
}

func (a *app) init(w io.Writer) error {
	cfg, err := pomomo.LoadConfig(a.isProd)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid POMOMO_LOG_LEVEL: %w", err)
	}

	a.cfg = cfg
	a.l = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    !a.isProd,
	})
	log.SetDefault(a.l)
	return nil
}

// openDB opens and migrates the configured database.
func (a *app) openDB() (*sql.DB, error) {
	a.l.Info("opening db", "path", a.cfg.DatabaseURL)
	db, err := sqlite.Open(a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed database open: %w", err)
	}
	if err := sqlite.Migrate(db, a.l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed migration: %w", err)
	}
	return db, nil
}

func panicif(err error) {
	if err != nil {
		panic(err)
	}
}
