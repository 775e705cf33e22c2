package discordgo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomomo-focus"
	"github.com/benjamonnguyen/pomomo-focus/timer"
)

const defaultErrorMsg = "Looks like something went wrong. Try again in a bit."

type EngineProvider interface {
	Engine(context.Context, pomomo.UserID) (*timer.Engine, error)
}

type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// FocusHandler serves the /focus slash command. Each Discord user drives
// their own timer.
type FocusHandler struct {
	engines EngineProvider
	l       *log.Logger
}

func NewFocusHandler(engines EngineProvider, l *log.Logger) *FocusHandler {
	return &FocusHandler{
		engines: engines,
		l:       l,
	}
}

// Handle reports whether the interaction was a /focus command.
func (h *FocusHandler) Handle(ctx context.Context, r interactionResponder, m *discordgo.InteractionCreate) bool {
	if m.Type != discordgo.InteractionApplicationCommand {
		return false
	}
	data := m.ApplicationCommandData()
	if data.Name != pomomo.FocusCommand.Name || len(data.Options) == 0 {
		return false
	}

	user := GetUser(m.Interaction)
	if user == nil {
		h.respond(r, m.Interaction, defaultErrorMsg)
		return true
	}
	uid := pomomo.UserID(user.ID)
	engine, err := h.engines.Engine(ctx, uid)
	if err != nil {
		h.l.Error("failed to get engine", "uid", uid, "err", err)
		h.respond(r, m.Interaction, defaultErrorMsg)
		return true
	}

	sub := data.Options[0]
	var res timer.Result
	switch sub.Name {
	case pomomo.StartSubcommand:
		var tid *pomomo.TaskID
		for _, opt := range sub.Options {
			if opt.Name == pomomo.TaskOption {
				if v := strings.TrimSpace(opt.StringValue()); v != "" {
					id := pomomo.TaskID(v)
					tid = &id
				}
			}
		}
		res, err = engine.Start(ctx, tid)
	case pomomo.PauseSubcommand:
		res, err = engine.Pause(ctx)
	case pomomo.ResumeSubcommand:
		res, err = engine.Resume(ctx)
	case pomomo.ResetSubcommand:
		res, err = engine.Reset(ctx)
	case pomomo.StatusSubcommand:
		res = timer.Result{DisplayState: engine.DisplayState()}
	default:
		return false
	}
	if err != nil {
		h.l.Error("failed focus command", "sub", sub.Name, "uid", uid, "err", err)
		h.respond(r, m.Interaction, defaultErrorMsg)
		return true
	}

	h.l.Debug("handled focus command", "sub", sub.Name, "uid", uid, "state", res.String())
	h.respond(r, m.Interaction, ResultMessage(res))
	return true
}

func (h *FocusHandler) respond(r interactionResponder, it *discordgo.Interaction, content string) {
	if err := r.InteractionRespond(it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		h.l.Error("failed to respond to interaction", "err", err)
	}
}

// ResultMessage renders a command result for chat.
func ResultMessage(res timer.Result) string {
	switch {
	case res.NeedsTaskSelection:
		return fmt.Sprintf("Pick a task first: `/%s %s %s:<id>`", pomomo.FocusCommand.Name, pomomo.StartSubcommand, pomomo.TaskOption)
	case res.Locked:
		return "Lock mode is on. Finish this focus session first."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** %s `%s`", res.Phase, res.State, res.Clock())
	if res.State != pomomo.Idle {
		sb.WriteString("\n")
		sb.WriteString(timerBar(res.DisplayState))
	}
	return sb.String()
}

const (
	timerBarFilledChar = "⣶"
	timerBarEmptyChar  = "⡀"
	timerBarWidth      = 20
)

func timerBar(d timer.DisplayState) string {
	if d.Total <= 0 {
		return strings.Repeat(timerBarEmptyChar, timerBarWidth)
	}
	elapsed := float64(d.Total-d.Remaining) / float64(d.Total)
	filled := int(math.Round(elapsed * timerBarWidth))
	filled = max(0, min(timerBarWidth, filled))
	return strings.Repeat(timerBarFilledChar, filled) + strings.Repeat(timerBarEmptyChar, timerBarWidth-filled)
}

func GetUser(m *discordgo.Interaction) *discordgo.User {
	if m.Member != nil {
		return m.Member.User
	}
	return m.User
}
