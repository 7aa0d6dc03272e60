package reactionroles

import (
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/bwmarrin/discordgo"
)

//ValidateRole makes sure the bot is able and allowed to hand out a role. The @everyone role, roles managed by
//bots, integrations or server boosts and roles above the bot's highest role are rejected.
func ValidateRole(api discord.API, guildID, roleID string) (*discordgo.Role, error) {
	roles, err := api.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetching roles of guild %v: %w", guildID, err)
	}
	role := findRole(roles, roleID)
	if role == nil {
		return nil, invalid(ErrInvalidRole, "role %v does not exist on this server", roleID)
	}
	if role.ID == guildID {
		return nil, invalid(ErrInvalidRole, "the @everyone role cannot be assigned")
	}
	if role.Managed {
		return nil, invalid(ErrInvalidRole, "role %v is managed by a bot, an integration or server boosts", role.Name)
	}
	botMember, err := api.Member(guildID, api.BotUserID())
	if err != nil {
		return nil, fmt.Errorf("fetching own member on guild %v: %w", guildID, err)
	}
	if top := topPosition(roles, botMember.Roles); role.Position >= top {
		return nil, invalid(ErrInvalidRole, "role %v is not below my highest role", role.Name)
	}
	return role, nil
}

//FindRoleByInput resolves a role mention, id or (case-insensitive) name
func FindRoleByInput(roles []*discordgo.Role, input string) *discordgo.Role {
	input = strings.Trim(strings.TrimSpace(input), `"`)
	if id := strings.TrimSuffix(strings.TrimPrefix(input, "<@&"), ">"); id != input {
		return findRole(roles, id)
	}
	if role := findRole(roles, input); role != nil {
		return role
	}
	for _, role := range roles {
		if strings.EqualFold(role.Name, input) {
			return role
		}
	}
	return nil
}

func findRole(roles []*discordgo.Role, roleID string) *discordgo.Role {
	for _, role := range roles {
		if role.ID == roleID {
			return role
		}
	}
	return nil
}

func topPosition(roles []*discordgo.Role, held []string) int {
	top := 0
	for _, roleID := range held {
		if role := findRole(roles, roleID); role != nil && role.Position > top {
			top = role.Position
		}
	}
	return top
}

//ValidateMessage makes sure the message exists in a channel of the guild and can be fetched by the bot
func ValidateMessage(api discord.API, guildID, channelID, messageID string) (*discordgo.Message, error) {
	channel, err := api.Channel(channelID)
	if err != nil {
		if discord.IsUnknownResource(err) || discord.IsForbidden(err) {
			return nil, invalid(ErrInvalidMessage, "I cannot access channel %v", channelID)
		}
		return nil, fmt.Errorf("fetching channel %v: %w", channelID, err)
	}
	if channel.GuildID != guildID {
		return nil, invalid(ErrInvalidMessage, "channel %v is not on this server", channelID)
	}
	msg, err := api.FetchMessage(channelID, messageID)
	if err != nil {
		if discord.IsUnknownResource(err) || discord.IsForbidden(err) {
			return nil, invalid(ErrInvalidMessage, "I cannot find message %v in %v", messageID, channel.Mention())
		}
		return nil, fmt.Errorf("fetching message %v: %w", messageID, err)
	}
	return msg, nil
}

//ValidateTextChannel makes sure a notification channel belongs to the guild
func ValidateTextChannel(api discord.API, guildID, channelID string) (*discordgo.Channel, error) {
	channel, err := api.Channel(channelID)
	if err != nil {
		if discord.IsUnknownResource(err) || discord.IsForbidden(err) {
			return nil, invalid(ErrInvalidMessage, "I cannot access channel %v", channelID)
		}
		return nil, fmt.Errorf("fetching channel %v: %w", channelID, err)
	}
	if channel.GuildID != guildID {
		return nil, invalid(ErrInvalidMessage, "channel %v is not on this server", channelID)
	}
	return channel, nil
}

//ValidateChange checks a role change before it is stored
func ValidateChange(api discord.API, guildID string, change *guildmodels.RoleChange) error {
	if !change.Direction.Valid() {
		return invalid(ErrInvalidRole, "`%v` is neither add nor remove", change.Direction)
	}
	if _, err := ValidateRole(api, guildID, change.RoleID); err != nil {
		return err
	}
	if change.MessageChannelID == "" {
		if change.MessageContent != "" || change.MessageEmbed != "" {
			return invalid(ErrInvalidMessage, "a notification needs a channel")
		}
		return nil
	}
	if change.MessageContent == "" && change.MessageEmbed == "" {
		return invalid(ErrInvalidMessage, "a notification needs a text or an embed")
	}
	if _, err := ValidateTextChannel(api, guildID, change.MessageChannelID); err != nil {
		return err
	}
	if change.MessageEmbed != "" {
		if _, err := ParseEmbed(change.MessageEmbed); err != nil {
			return invalid(ErrInvalidMessage, "%v", err)
		}
	}
	return nil
}

//ValidateRequirement checks that a required role exists. The exclusions of ValidateRole do not apply since the bot
//never changes required roles.
func ValidateRequirement(api discord.API, guildID, roleID string) (*discordgo.Role, error) {
	roles, err := api.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetching roles of guild %v: %w", guildID, err)
	}
	role := findRole(roles, roleID)
	if role == nil {
		return nil, invalid(ErrInvalidRole, "role %v does not exist on this server", roleID)
	}
	if role.ID == guildID {
		return nil, invalid(ErrInvalidRole, "every member holds @everyone, so it cannot be a requirement")
	}
	return role, nil
}
