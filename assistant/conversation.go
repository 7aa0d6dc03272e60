package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

//Reserved replies
const (
	abortKeyword = "abort"
	skipKeyword  = "skip"
)

//Confirmation reactions
const (
	confirmEmoji = "✅"
	rejectEmoji  = "❌"
)

var (
	//ErrAborted is returned when the user aborts an assistant or lets a prompt time out
	ErrAborted = errors.New("assistant aborted")
	//ErrTimeout is returned by a Conversation when no reply arrived in time
	ErrTimeout = errors.New("no reply in time")
)

//Conversation is the channel between an assistant and the user who started it
type Conversation interface {
	//Say posts a message without waiting for a reply
	Say(msg *discordgo.MessageSend) error
	//Ask posts a prompt and returns the next message of the user
	Ask(ctx context.Context, prompt string) (string, error)
	//Confirm posts a yes/no prompt and returns the answer. Replying with the abort keyword returns ErrAborted.
	Confirm(ctx context.Context, prompt string) (bool, error)
}

func plain(text string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
}

//Session is a Conversation held in a discord channel and registered with a Registry
type Session struct {
	ID        uuid.UUID
	UserID    string
	ChannelID string
	GuildID   string

	api             discord.API
	registry        *Registry
	textTimeout     time.Duration
	reactionTimeout time.Duration
}

//Say posts a message to the session channel
func (s *Session) Say(msg *discordgo.MessageSend) error {
	_, err := s.api.SendMessage(s.ChannelID, msg)
	return err
}

//Ask posts a prompt and waits for the next message of the user in the session channel
func (s *Session) Ask(ctx context.Context, prompt string) (string, error) {
	replies := s.registry.awaitText(s.UserID, s.ChannelID, s.ID)
	defer s.registry.stopText(s.UserID, s.ChannelID, s.ID)
	if err := s.Say(plain(prompt)); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, s.textTimeout)
	defer cancel()
	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return "", ErrTimeout
	}
}

//Confirm posts a prompt with confirm and reject reactions. The user may also reply with yes, no or abort.
func (s *Session) Confirm(ctx context.Context, prompt string) (bool, error) {
	texts := s.registry.awaitText(s.UserID, s.ChannelID, s.ID)
	defer s.registry.stopText(s.UserID, s.ChannelID, s.ID)
	msg, err := s.api.SendMessage(s.ChannelID, plain(fmt.Sprintf("%v\nReact with %v or %v.", prompt, confirmEmoji, rejectEmoji)))
	if err != nil {
		return false, err
	}
	reactions := s.registry.awaitReaction(msg.ID, s.UserID, s.ID)
	defer s.registry.stopReaction(msg.ID, s.ID)
	for _, emoji := range []string{confirmEmoji, rejectEmoji} {
		if err := s.api.AddReaction(s.ChannelID, msg.ID, emoji); err != nil {
			logrus.Warnf("Failed to add %v to assistant prompt %v due to error %v", emoji, msg.ID, err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, s.reactionTimeout)
	defer cancel()
	for {
		select {
		case emoji := <-reactions:
			switch emoji {
			case confirmEmoji:
				return true, nil
			case rejectEmoji:
				return false, nil
			}
			reactions = s.registry.awaitReaction(msg.ID, s.UserID, s.ID)
		case text := <-texts:
			switch strings.ToLower(text) {
			case "yes", "y":
				return true, nil
			case "no", "n":
				return false, nil
			case abortKeyword:
				return false, ErrAborted
			}
			texts = s.registry.awaitText(s.UserID, s.ChannelID, s.ID)
		case <-ctx.Done():
			return false, ErrTimeout
		}
	}
}
