package bot

import (
	"context"
	"errors"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/assistant"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/chatlog"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

type commandHandler func(b *ViViBot, ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response

//Every command is restricted to admins
var commandHandlers = map[string]commandHandler{
	"reactionrole": (*ViViBot).handleReactionRoleCommand,
	"rr":           (*ViViBot).handleReactionRoleCommand,
	"chatlog":      (*ViViBot).handleChatLogCommand,
	"addadminrole": (*ViViBot).handleAddAdminRoleCommand,
}

func (b *ViViBot) handler(cmd command) commandHandler {
	return commandHandlers[cmd.key]
}

func (b *ViViBot) knowsCommand(cmd command) bool {
	return b.handler(cmd) != nil
}

//runCommand checks permissions, executes a command and replies with its result
func (b *ViViBot) runCommand(ctx context.Context, cmd command, msg *discordgo.MessageCreate) {
	result := b.execute(ctx, cmd, msg)
	if result == nil {
		return
	}
	result.WriteToLog()
	resp := result.DiscordResponse()
	resp.Reference = msg.Reference()
	if _, err := b.api.SendMessage(msg.ChannelID, resp); err != nil {
		logrus.Errorf("Failed to send response to command due to error %v", err)
	}
}

func (b *ViViBot) execute(ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response {
	handle := b.handler(cmd)
	if handle == nil {
		return nil
	}
	isFromAdmin, err := b.isFromAdmin(ctx, msg.Member, msg.Author, msg.GuildID)
	if err != nil {
		logrus.Warnf("Failed to check if message came from admin due to error %v", err)
		return ResponseInternalError{
			command:    cmd.label(),
			commandMsg: cmd.raw,
			err:        err,
			timestamp:  time.Now(),
		}
	}
	if !isFromAdmin {
		return ResponseNotAllowed{
			command:     cmd.label(),
			commandMsg:  cmd.raw,
			description: "Only server admins can change my configuration.",
			timestamp:   time.Now(),
		}
	}
	return handle(b, ctx, cmd, msg)
}

func syntaxError(cmd command, description, syntax string) Response {
	return ResponseSyntaxError{
		command:     cmd.label(),
		commandMsg:  cmd.raw,
		description: description,
		syntax:      syntax,
		timestamp:   time.Now(),
	}
}

func success(cmd command, description string) Response {
	return ResponseSuccess{
		command:     cmd.label(),
		commandMsg:  cmd.raw,
		description: description,
		timestamp:   time.Now(),
	}
}

//errorResponse maps an error returned by an operation to what the user is told. Aborted assistants have already
//said goodbye, so they get no response.
func errorResponse(cmd command, err error) Response {
	rejected := func(description string) Response {
		return ResponseRejected{
			command:     cmd.label(),
			commandMsg:  cmd.raw,
			description: description,
			timestamp:   time.Now(),
		}
	}
	if reason, ok := reactionroles.IsValidation(err); ok {
		return rejected(reason)
	}
	switch {
	case errors.Is(err, assistant.ErrAborted):
		return nil
	case errors.Is(err, assistant.ErrSessionInProgress):
		return rejected("You are already being asked something in this channel. Answer or abort that first.")
	case errors.Is(err, db.ErrNotFound):
		return rejected("I could not find anything with that id on this server.")
	case errors.Is(err, reactionroles.ErrActive):
		return rejected("That reaction role is active. Deactivate it first.")
	case errors.Is(err, reactionroles.ErrInactive):
		return rejected("That reaction role is not active.")
	case errors.Is(err, chatlog.ErrInvalidSubscription):
		return rejected(err.Error())
	}
	return ResponseInternalError{
		command:    cmd.label(),
		commandMsg: cmd.raw,
		err:        err,
		timestamp:  time.Now(),
	}
}

//runAssistant holds an assistant session for the author of msg while flow runs
func (b *ViViBot) runAssistant(msg *discordgo.MessageCreate, flow func(s *assistant.Session) error) error {
	session, err := b.assistant.Start(msg.GuildID, msg.ChannelID, msg.Author.ID)
	if err != nil {
		return err
	}
	defer b.assistant.Finish(session)
	return flow(session)
}
