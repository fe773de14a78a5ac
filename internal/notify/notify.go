// Package notify delivers response text to the requesting user out of
// band, as a direct message alongside the spoken reply.
package notify

import (
	"github.com/bwmarrin/discordgo"

	"github.com/orallm/voicebot/internal/logging"
)

// Notifier posts a text copy of a response to a user. Implementations must
// be safe for concurrent use; failures are logged and never affect the turn.
type Notifier interface {
	Notify(userID, text string)
}

// DiscordNotifier delivers through a DM channel.
type DiscordNotifier struct {
	Session *discordgo.Session
}

func (n *DiscordNotifier) Notify(userID, text string) {
	ch, err := n.Session.UserChannelCreate(userID)
	if err != nil {
		logging.Warnw("notify: open dm channel", "user_id", userID, "err", err)
		return
	}
	if _, err := n.Session.ChannelMessageSend(ch.ID, text); err != nil {
		logging.Warnw("notify: send dm", "user_id", userID, "err", err)
	}
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Notify(userID, text string) {}
