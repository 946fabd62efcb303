package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Notifier delivers engine-produced messages. Delivery is best-effort:
// callers log failures and move on, a committed slot assignment is never
// rolled back because a message could not be sent.
type Notifier interface {
	DirectMessage(discordID string, message string) error
	Announce(message string) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// DirectMessage DMs a parent on their linked Discord account.
func (n *DiscordNotifier) DirectMessage(discordID string, message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if discordID == "" {
		return fmt.Errorf("discord ID is empty")
	}

	channel, err := n.session.UserChannelCreate(discordID)
	if err != nil {
		log.Printf("Failed to open DM channel for %s: %v", discordID, err)
		return err
	}

	_, err = n.session.ChannelMessageSend(channel.ID, message)
	if err != nil {
		log.Printf("Failed to send discord DM: %v", err)
		return err
	}

	return nil
}

// Announce posts to the staff notifications channel.
func (n *DiscordNotifier) Announce(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
