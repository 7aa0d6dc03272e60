package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
)

const noneKeyword = "none"

func invalidReply(format string, args ...interface{}) error {
	return &reactionroles.ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func parseDirection(reply string) (guildmodels.ChangeDirection, error) {
	d := guildmodels.ChangeDirection(strings.ToLower(reply))
	if !d.Valid() {
		return "", invalidReply("reply with `%v` or `%v`", guildmodels.ChangeAdd, guildmodels.ChangeRemove)
	}
	return d, nil
}

//parseIndex accepts a 1-based index into a list of n entries
func parseIndex(n int) parser[int] {
	return func(reply string) (int, error) {
		i, err := strconv.Atoi(reply)
		if err != nil || i < 1 || i > n {
			return 0, invalidReply("reply with a number from 1 to %v", n)
		}
		return i - 1, nil
	}
}

func parseOptionalText(reply string) (string, error) {
	if strings.EqualFold(reply, noneKeyword) {
		return "", nil
	}
	return reply, nil
}

func parseOptionalEmbed(reply string) (string, error) {
	if strings.EqualFold(reply, noneKeyword) {
		return "", nil
	}
	definition := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(reply, "```json"), "```"), "```")
	definition = strings.TrimSpace(definition)
	if _, err := reactionroles.ParseEmbed(definition); err != nil {
		return "", invalidReply("%v", err)
	}
	return definition, nil
}

func (a *Assistant) emojiParser(guildID string) parser[reactionroles.Emoji] {
	return func(reply string) (reactionroles.Emoji, error) {
		return reactionroles.ResolveEmoji(a.api, guildID, reply)
	}
}

//roleParser resolves a role mention, id or name and runs it through validate
func (a *Assistant) roleParser(guildID string, validate func(discord.API, string, string) (*discordgo.Role, error)) parser[*discordgo.Role] {
	return func(reply string) (*discordgo.Role, error) {
		roles, err := a.api.GuildRoles(guildID)
		if err != nil {
			return nil, err
		}
		role := reactionroles.FindRoleByInput(roles, reply)
		if role == nil {
			return nil, invalidReply("I could not find a role called `%v`", reply)
		}
		return validate(a.api, guildID, role.ID)
	}
}

func (a *Assistant) messageParser(guildID string) parser[*discordgo.Message] {
	return func(reply string) (*discordgo.Message, error) {
		ref, ok := discord.ParseMessageRef(reply)
		if !ok {
			return nil, invalidReply("reply with a message link")
		}
		if ref.GuildID != "" && ref.GuildID != guildID {
			return nil, invalidReply("that message is not on this server")
		}
		msg, err := reactionroles.ValidateMessage(a.api, guildID, ref.ChannelID, ref.MessageID)
		if err != nil {
			return nil, err
		}
		if msg.ChannelID == "" {
			msg.ChannelID = ref.ChannelID
		}
		return msg, nil
	}
}

func (a *Assistant) channelParser(guildID string) parser[*discordgo.Channel] {
	return func(reply string) (*discordgo.Channel, error) {
		channelID, ok := discord.ParseChannelRef(reply)
		if !ok {
			return nil, invalidReply("reply with a channel mention")
		}
		return reactionroles.ValidateTextChannel(a.api, guildID, channelID)
	}
}
