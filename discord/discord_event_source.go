package discord

import (
	"fmt"
	"net/url"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const botScope = "bot"
const permissions = discordgo.PermissionAllText | discordgo.PermissionAllChannel | discordgo.PermissionManageRoles

//EventHandler is a struct which can handle all the events the discord listener generates.
//Handlers are called on the gateway goroutine in the order discord delivered the events, so they must not block.
type EventHandler interface {
	HandleMessage(*discordgo.MessageCreate)
	HandleReactionAdd(*discordgo.MessageReactionAdd)
	HandleReactionRemove(*discordgo.MessageReactionRemove)
}

//EventSource represents a connection to the Discord gateway
type EventSource struct {
	discordClient *discordgo.Session
	handler       EventHandler
}

//NewEventSource creates a discord client without connecting to the gateway. Its REST methods may be used right
//away; events only arrive once Listen has been called.
func NewEventSource(token string) (*EventSource, error) {
	if token == "" {
		logrus.Errorf("No discord bot token was configured.")
		return nil, fmt.Errorf("no discord bot token was configured")
	}

	//Create new client
	dc, err := discordgo.New("Bot " + token)
	if err != nil {
		logrus.Warnf("Failed to create Discord gateway client due to %v", err)
		return nil, err
	}

	//Handlers run one at a time in arrival order; anything slow is moved off the gateway goroutine by the handler
	dc.SyncEvents = true

	//Register intents
	dc.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	return &EventSource{discordClient: dc}, nil
}

//Listen registers the handler and opens the websocket connection
func (d *EventSource) Listen(handler EventHandler) error {
	d.handler = handler

	//Register event handlers
	d.discordClient.AddHandler(d.dispatchMessageCreateEvent)
	d.discordClient.AddHandler(d.dispatchReactionAddEvent)
	d.discordClient.AddHandler(d.dispatchReactionRemoveEvent)

	//Open a websocket connection
	if err := d.discordClient.Open(); err != nil {
		logrus.Errorf("Failed to connect to discord websockets gateway; encountered error %v", err)
		return err
	}
	return nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (d *EventSource) BotAddURL() (*url.URL, error) {
	user, err := d.discordClient.User("@me")
	if err != nil {
		return nil, err
	}
	clientID := user.ID

	url, err := url.Parse("https://discord.com/api/oauth2/authorize")
	if err != nil {
		return nil, err
	}
	q := url.Query()
	q.Set("client_id", clientID)
	q.Set("scope", botScope)
	q.Set("permissions", fmt.Sprintf("%d", permissions))
	url.RawQuery = q.Encode()

	return url, nil
}

//Close cleanly terminates the Discord connection
func (d *EventSource) Close() {
	logrus.Info("Terminating discord event listener...")
	_ = d.discordClient.Close()
}

//Session returns a handle to the underlying discordgo session
func (d *EventSource) Session() *discordgo.Session {
	return d.discordClient
}

//recoverHandler prevents a panic in one handler from crashing the whole bot
func recoverHandler(event string) {
	if r := recover(); r != nil {
		logrus.Errorf("Bot %v handler panicked: %v", event, r)
	}
}

func (d *EventSource) dispatchMessageCreateEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	//Ignore messages created by bot
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		logrus.Debug("Got a message from self; Ignoring.")
		return
	}
	defer recoverHandler("message")

	//Dispatch to bot handlers
	d.handler.HandleMessage(m)
	logrus.Debugf("Got message `%v`", m.Content)
}

func (d *EventSource) dispatchReactionAddEvent(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	defer recoverHandler("reaction add")
	d.handler.HandleReactionAdd(r)
}

func (d *EventSource) dispatchReactionRemoveEvent(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.MessageReaction == nil {
		return
	}
	defer recoverHandler("reaction remove")
	d.handler.HandleReactionRemove(r)
}
