package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/benjamonnguyen/pomomo-focus"
)

func registerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the /focus slash command with Discord",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.BotToken == "" {
				return fmt.Errorf("provide POMOMO_BOT_TOKEN")
			}
			bot, err := discordgo.New("Bot " + a.cfg.BotToken)
			if err != nil {
				return err
			}

			application, err := bot.Application("@me")
			if err != nil {
				return fmt.Errorf("failed to get application: %w", err)
			}

			cmds := []*discordgo.ApplicationCommand{
				&pomomo.FocusCommand,
			}
			created, err := bot.ApplicationCommandBulkOverwrite(application.ID, "", cmds)
			if err != nil {
				return err
			}

			for _, c := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Name, c.Description)
			}
			return nil
		},
	}
}
