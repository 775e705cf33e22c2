package pomomo

import (
	"github.com/bwmarrin/discordgo"
)

const (
	StartSubcommand  = "start"
	PauseSubcommand  = "pause"
	ResumeSubcommand = "resume"
	ResetSubcommand  = "reset"
	StatusSubcommand = "status"

	TaskOption = "task"
)

var FocusCommand = discordgo.ApplicationCommand{
	Name:        "focus",
	Description: "control your focus timer",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        StartSubcommand,
			Description: "start or resume the timer",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        TaskOption,
					Description: "ID of the task to focus on (Default: currently selected task)",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        PauseSubcommand,
			Description: "pause the running timer",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        ResumeSubcommand,
			Description: "resume a paused timer",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        ResetSubcommand,
			Description: "discard the current session",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        StatusSubcommand,
			Description: "show the time remaining",
		},
	},
}
