package main

import (
	"errors"
	"fmt"
	"io"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/sqlite"
)

func settingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage per-user timer settings",
	}
	cmd.AddCommand(settingsSetCmd(a))
	cmd.AddCommand(settingsShowCmd(a))
	return cmd
}

func settingsSetCmd(a *app) *cobra.Command {
	s := pomomo.DefaultSettings()
	var user string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save a user's settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.settingsRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			saved, err := repo.UpsertSettings(cmd.Context(), pomomo.SettingsRecord{
				UserID:   pomomo.UserID(user),
				Settings: s,
			})
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), saved.Settings)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user to configure")
	cmd.Flags().IntVar(&s.FocusMinutes, "focus", s.FocusMinutes, "focus minutes")
	cmd.Flags().IntVar(&s.BreakMinutes, "break", s.BreakMinutes, "break minutes")
	cmd.Flags().BoolVar(&s.AutoStartBreak, "auto-break", false, "start the break when focus ends")
	cmd.Flags().BoolVar(&s.AutoStartNextFocus, "auto-focus", false, "start the next focus when a break ends")
	cmd.Flags().BoolVar(&s.LockMode, "lock", false, "refuse pause and reset during focus")
	cmd.Flags().IntVar(&s.DailyGoalMinutes, "goal", s.DailyGoalMinutes, "daily focus goal in minutes, 0 for none")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func settingsShowCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.settingsRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			s, err := repo.GetSettings(cmd.Context(), pomomo.UserID(user))
			if errors.Is(err, pomomo.ErrNotFound) {
				s = pomomo.DefaultSettings()
			} else if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user to show")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (a *app) settingsRepo() (*sqlite.SettingsRepo, func(), error) {
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	_, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	return sqlite.NewSettingsRepo(dbGetter, a.l), func() { _ = db.Close() }, nil
}

func printSettings(w io.Writer, s pomomo.Settings) {
	fmt.Fprintf(w, "focus=%dm break=%dm auto_break=%t auto_focus=%t lock=%t goal=%dm\n",
		s.FocusMinutes, s.BreakMinutes, s.AutoStartBreak, s.AutoStartNextFocus, s.LockMode, s.DailyGoalMinutes)
}
