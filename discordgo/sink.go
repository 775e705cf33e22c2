// Package discordgo provides Discord API adapters using package github.com/bwmarrin/discordgo
package discordgo

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/benjamonnguyen/pomomo-focus"
)

type channelMessenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelSink posts notifications to one text channel, mentioning the user.
type ChannelSink struct {
	cl        channelMessenger
	channelID string
	l         *log.Logger
}

func NewChannelSink(cl channelMessenger, channelID string, l *log.Logger) *ChannelSink {
	return &ChannelSink{
		cl:        cl,
		channelID: channelID,
		l:         l,
	}
}

var _ pomomo.NotificationSink = (*ChannelSink)(nil)

func (s *ChannelSink) Notify(ctx context.Context, n pomomo.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", n.UserID),
		Embeds: []*discordgo.MessageEmbed{
			{
				Description: n.Message,
				Color:       *severityColor(n.Severity).ToInt(),
				Timestamp:   n.At.Format(time.RFC3339),
			},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{string(n.UserID)},
		},
	}
	if _, err := s.cl.ChannelMessageSendComplex(s.channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send notification to channel %s: %w", s.channelID, err)
	}
	s.l.Debug("sent notification", "cid", s.channelID, "uid", n.UserID)
	return nil
}

type Color int

const (
	ColorGreen  Color = 0x57f287
	ColorYellow Color = 0xfee75c
	ColorRed    Color = 0xed4245
	ColorGrey   Color = 0x95a5a6
)

func (c Color) ToInt() *int {
	i := int(c)
	return &i
}

func severityColor(s pomomo.Severity) Color {
	switch s {
	case pomomo.SeverityPositive:
		return ColorGreen
	case pomomo.SeverityWarning:
		return ColorYellow
	case pomomo.SeverityNegative:
		return ColorRed
	default:
		return ColorGrey
	}
}
