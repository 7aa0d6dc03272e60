package bot

import (
	"context"
	"net/url"
	"sync"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/assistant"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/chatlog"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/pss"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//ViViBot represents an instance of the discord bot, containing handles to the various external connections.
type ViViBot struct {
	cfg       *config.Config
	api       discord.API
	store     db.Store
	engine    *reactionroles.Engine
	assistant *assistant.Assistant
	poller    *chatlog.Poller

	discordConnection *discord.EventSource

	//Tracks running commands so Close can wait for them
	commands sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

//New wires a bot around an already opened store and discord api. A nil poller disables the chat relay.
func New(cfg *config.Config, store db.Store, api discord.API, poller *chatlog.Poller) *ViViBot {
	engine := reactionroles.NewEngine(store, api)
	ctx, cancel := context.WithCancel(context.Background())
	return &ViViBot{
		cfg:       cfg,
		api:       api,
		store:     store,
		engine:    engine,
		assistant: assistant.New(api, engine, store, cfg.Assistant),
		poller:    poller,
		ctx:       ctx,
		cancel:    cancel,
	}
}

//Init creates a new ViViBot instance: it opens the database, connects to discord and starts the chat relay
func Init(cfg *config.Config) (*ViViBot, error) {
	//Start database connection
	store, err := db.Init(cfg.DB)
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing database connection: %v", err)
		return nil, err
	}

	//Prepare discord connection
	disc, err := discord.NewEventSource(cfg.Discord.Token)
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing discord connection: %v", err)
		_ = store.Close()
		return nil, err
	}

	var poller *chatlog.Poller
	switch {
	case cfg.ChatLogReady():
		poller = chatlog.NewPoller(store, pss.NewClient(cfg.PSS), disc, cfg.ChatLog)
	case cfg.ChatLog.Enabled:
		logrus.Warnf("Chat relay is enabled but no game API checksum key was configured; chat logs will not be relayed.")
	}

	res := New(cfg, store, disc, poller)
	res.discordConnection = disc
	if err := disc.Listen(res); err != nil {
		logrus.Errorf("Cannot start bot due to error initializing discord connection: %v", err)
		_ = store.Close()
		return nil, err
	}
	if poller != nil {
		if err := poller.Start(); err != nil {
			logrus.Errorf("Cannot start bot due to error starting the chat relay: %v", err)
			res.Close()
			return nil, err
		}
	}
	return res, nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (b *ViViBot) BotAddURL() (*url.URL, error) {
	return b.discordConnection.BotAddURL()
}

//HandleMessage is called upon every received message. Replies to a running assistant are handed over to it; anything
//else is checked for a command which is then executed off the gateway goroutine.
func (b *ViViBot) HandleMessage(msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}
	if b.assistant.Registry().DeliverMessage(msg.Author.ID, msg.ChannelID, msg.Content) {
		return
	}
	cmd, ok := parseCommand(b.cfg.Bot.Prefix, msg.Content)
	if !ok || !b.knowsCommand(cmd) {
		return
	}
	b.commands.Add(1)
	go func() {
		defer b.commands.Done()
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Command %v panicked: %v", cmd.raw, r)
			}
		}()
		b.runCommand(b.ctx, cmd, msg)
	}()
}

//HandleReactionAdd offers a reaction to waiting assistant confirmations before the reaction role engine sees it
func (b *ViViBot) HandleReactionAdd(r *discordgo.MessageReactionAdd) {
	if b.assistant.Registry().DeliverReaction(r.MessageID, r.UserID, r.Emoji.Name) {
		return
	}
	b.engine.EnqueueReactionAdded(reactionroles.EventFromAdd(r))
}

//HandleReactionRemove passes removed reactions on to the reaction role engine
func (b *ViViBot) HandleReactionRemove(r *discordgo.MessageReactionRemove) {
	b.engine.EnqueueReactionRemoved(reactionroles.EventFromRemove(r))
}

//Wait blocks until every running command and queued reaction has been handled
func (b *ViViBot) Wait() {
	b.commands.Wait()
	b.engine.Wait()
}

//Close cleanly terminates the bot instance
func (b *ViViBot) Close() {
	logrus.Info("Terminating bot...")
	if b.poller != nil {
		b.poller.Stop()
	}
	if b.discordConnection != nil {
		b.discordConnection.Close()
	}
	b.cancel()
	b.Wait()
	if err := b.store.Close(); err != nil {
		logrus.Warnf("Failed to close database connection due to error %v", err)
	}
}
