//Package assistant runs the interactive prompts used to set up reaction roles and chat logs
package assistant

import (
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/sirupsen/logrus"
)

const (
	defaultTextTimeout     = 120 * time.Second
	defaultReactionTimeout = 60 * time.Second
)

//Assistant owns the running sessions and the flows they can run
type Assistant struct {
	api      discord.API
	engine   *reactionroles.Engine
	chatLogs db.ChatLogStore
	registry *Registry

	textTimeout     time.Duration
	reactionTimeout time.Duration
}

//New creates an assistant. Zero timeouts fall back to two minutes for text and one minute for reactions.
func New(api discord.API, engine *reactionroles.Engine, chatLogs db.ChatLogStore, cfg config.AssistantConfig) *Assistant {
	a := &Assistant{
		api:             api,
		engine:          engine,
		chatLogs:        chatLogs,
		registry:        NewRegistry(),
		textTimeout:     cfg.TextTimeout,
		reactionTimeout: cfg.ReactionTimeout,
	}
	if a.textTimeout <= 0 {
		a.textTimeout = defaultTextTimeout
	}
	if a.reactionTimeout <= 0 {
		a.reactionTimeout = defaultReactionTimeout
	}
	return a
}

//Registry returns the registry incoming messages and reactions must be offered to
func (a *Assistant) Registry() *Registry {
	return a.registry
}

//Start opens a session for a user in a channel. Only one session per user and channel may run at a time.
func (a *Assistant) Start(guildID, channelID, userID string) (*Session, error) {
	id, err := a.registry.begin(userID, channelID)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Started assistant session %v for user %v in channel %v", id, userID, channelID)
	return &Session{
		ID:              id,
		UserID:          userID,
		ChannelID:       channelID,
		GuildID:         guildID,
		api:             a.api,
		registry:        a.registry,
		textTimeout:     a.textTimeout,
		reactionTimeout: a.reactionTimeout,
	}, nil
}

//Finish closes a session and drops any prompt still waiting
func (a *Assistant) Finish(s *Session) {
	a.registry.end(s.UserID, s.ChannelID, s.ID)
	logrus.Debugf("Finished assistant session %v", s.ID)
}

func (a *Assistant) say(conv Conversation, text string) {
	if err := conv.Say(plain(text)); err != nil {
		logrus.Warnf("Failed to post assistant message due to error %v", err)
	}
}

func (a *Assistant) sayAborted(conv Conversation) {
	a.say(conv, "Stopped. Nothing was changed.")
}
