package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/assistant"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/chatlog"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
)

const handleChatLogSyntax string = "```" +
	`!chatlog <subcommand>

	add <#channel> <channel_key> <name>   relay a game chat into a channel
	list                                  list the chat logs of this server
	edit <id>                             change a chat log step by step
	delete <id>                           stop relaying and delete a chat log` +
	"```"

//handleChatLogCommand handles every !chatlog subcommand
func (b *ViViBot) handleChatLogCommand(ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response {
	if !b.cfg.ChatLog.Enabled {
		return ResponseFeatureNotEnabled{
			command:         cmd.label(),
			commandMsg:      cmd.raw,
			disabledFeature: "chat log relay",
			timestamp:       time.Now(),
		}
	}
	switch cmd.sub {
	case "add":
		return b.addChatLog(ctx, cmd, msg.GuildID)
	case "list":
		return b.listChatLogs(ctx, cmd, msg.GuildID)
	case "edit":
		return b.withChatLogID(cmd, func(id uint) Response {
			var cl *guildmodels.ChatLog
			err := b.runAssistant(msg, func(s *assistant.Session) error {
				var err error
				cl, err = b.assistant.EditChatLog(ctx, s, msg.GuildID, id)
				return err
			})
			if err != nil {
				return errorResponse(cmd, err)
			}
			return success(cmd, fmt.Sprintf("Chat log %v relays `%v` to <#%v>.", cl.ID, cl.ChannelKey, cl.ChannelID))
		})
	case "delete":
		return b.withChatLogID(cmd, func(id uint) Response {
			if _, err := b.guildChatLog(ctx, msg.GuildID, id); err != nil {
				return errorResponse(cmd, err)
			}
			if err := b.store.DeleteChatLog(ctx, id); err != nil {
				return errorResponse(cmd, err)
			}
			return success(cmd, fmt.Sprintf("Deleted chat log %v.", id))
		})
	case "":
		return syntaxError(cmd, "No subcommand was given.", handleChatLogSyntax)
	default:
		return syntaxError(cmd, fmt.Sprintf("`%v` is not a subcommand I know.", cmd.sub), handleChatLogSyntax)
	}
}

func (b *ViViBot) withChatLogID(cmd command, run func(id uint) Response) Response {
	if len(cmd.args) != 1 {
		return syntaxError(cmd, "Expected exactly one id.", handleChatLogSyntax)
	}
	id, err := parseID(cmd.args[0])
	if err != nil {
		return syntaxError(cmd, err.Error(), handleChatLogSyntax)
	}
	return run(id)
}

//guildChatLog fetches a chat log and hides those of other guilds
func (b *ViViBot) guildChatLog(ctx context.Context, guildID string, id uint) (*guildmodels.ChatLog, error) {
	cl, err := b.store.GetChatLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if cl.GuildID != guildID {
		return nil, db.ErrNotFound
	}
	return cl, nil
}

func (b *ViViBot) addChatLog(ctx context.Context, cmd command, guildID string) Response {
	if len(cmd.args) < 3 {
		return syntaxError(cmd, "Expected a channel, a channel key and a name.", handleChatLogSyntax)
	}
	channelID, ok := discord.ParseChannelRef(cmd.args[0])
	if !ok {
		return syntaxError(cmd, fmt.Sprintf("`%v` is not a channel.", cmd.args[0]), handleChatLogSyntax)
	}
	if _, err := reactionroles.ValidateTextChannel(b.api, guildID, channelID); err != nil {
		return errorResponse(cmd, err)
	}
	key, err := chatlog.ValidateChannelKey(cmd.args[1])
	if err != nil {
		return errorResponse(cmd, err)
	}
	name, err := chatlog.ValidateName(cmd.rest(2))
	if err != nil {
		return errorResponse(cmd, err)
	}
	cl := &guildmodels.ChatLog{GuildID: guildID, ChannelID: channelID, ChannelKey: key, Name: name}
	if err := b.store.CreateChatLog(ctx, cl); err != nil {
		return errorResponse(cmd, err)
	}
	return success(cmd, fmt.Sprintf("Chat log %v relays `%v` to <#%v>.", cl.ID, cl.ChannelKey, cl.ChannelID))
}

func (b *ViViBot) listChatLogs(ctx context.Context, cmd command, guildID string) Response {
	cls, err := b.store.ListChatLogs(ctx, guildID)
	if err != nil {
		return errorResponse(cmd, err)
	}
	res := ResponseInfo{
		commandMsg: cmd.raw,
		title:      "Chat logs",
		timestamp:  time.Now(),
	}
	if len(cls) == 0 {
		res.description = "There are no chat logs yet."
		return res
	}
	if len(cls) > maxEmbedFields {
		res.description = fmt.Sprintf("Showing the first %v of %v chat logs.", maxEmbedFields, len(cls))
	}
	for _, cl := range cls {
		res.fields = append(res.fields, field{
			name:  fmt.Sprintf("#%v %v", cl.ID, cl.Name),
			value: fmt.Sprintf("`%v` to <#%v>", cl.ChannelKey, cl.ChannelID),
		})
	}
	return res
}
