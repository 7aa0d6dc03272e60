package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

//API is the subset of the discord REST api used by the bot. EventSource implements it against the real gateway.
type API interface {
	//BotUserID returns the user id of the bot itself
	BotUserID() string
	//AddReaction reacts to a message. emojiToken is the unicode emoji or `name:id` for guild emoji.
	AddReaction(channelID, messageID, emojiToken string) error
	//RemoveOwnReaction removes the reaction the bot placed on a message
	RemoveOwnReaction(channelID, messageID, emojiToken string) error
	//EditMemberRoles grants and revokes a set of roles in a single member edit
	EditMemberRoles(guildID, userID string, grant, revoke []string, reason string) error
	AddMemberRole(guildID, userID, roleID, reason string) error
	RemoveMemberRole(guildID, userID, roleID, reason string) error
	SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	FetchMessage(channelID, messageID string) (*discordgo.Message, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	GuildEmoji(guildID, emojiID string) (*discordgo.Emoji, error)
}

var _ API = (*EventSource)(nil)

//BotUserID returns the user id of the bot itself
func (d *EventSource) BotUserID() string {
	if d.discordClient.State == nil || d.discordClient.State.User == nil {
		return ""
	}
	return d.discordClient.State.User.ID
}

//AddReaction reacts to a message as the bot
func (d *EventSource) AddReaction(channelID, messageID, emojiToken string) error {
	return d.discordClient.MessageReactionAdd(channelID, messageID, emojiToken)
}

//RemoveOwnReaction removes the bot's reaction from a message
func (d *EventSource) RemoveOwnReaction(channelID, messageID, emojiToken string) error {
	return d.discordClient.MessageReactionRemove(channelID, messageID, emojiToken, "@me")
}

//EditMemberRoles fetches the member's current roles and replaces them with the adjusted set in one call
func (d *EventSource) EditMemberRoles(guildID, userID string, grant, revoke []string, reason string) error {
	member, err := d.discordClient.GuildMember(guildID, userID)
	if err != nil {
		return err
	}
	roles := ApplyRoleDelta(member.Roles, grant, revoke)
	_, err = d.discordClient.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithAuditLogReason(reason))
	return err
}

//AddMemberRole grants a single role
func (d *EventSource) AddMemberRole(guildID, userID, roleID, reason string) error {
	return d.discordClient.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithAuditLogReason(reason))
}

//RemoveMemberRole revokes a single role
func (d *EventSource) RemoveMemberRole(guildID, userID, roleID, reason string) error {
	return d.discordClient.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithAuditLogReason(reason))
}

//SendMessage posts a message to a channel
func (d *EventSource) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return d.discordClient.ChannelMessageSendComplex(channelID, msg)
}

//FetchMessage fetches a single message from the api
func (d *EventSource) FetchMessage(channelID, messageID string) (*discordgo.Message, error) {
	return d.discordClient.ChannelMessage(channelID, messageID)
}

//Member always asks the api so that the returned roles are current
func (d *EventSource) Member(guildID, userID string) (*discordgo.Member, error) {
	return d.discordClient.GuildMember(guildID, userID)
}

//Guild returns a guild from the state cache, falling back to the api
func (d *EventSource) Guild(guildID string) (*discordgo.Guild, error) {
	if g, err := d.discordClient.State.Guild(guildID); err == nil {
		return g, nil
	}
	return d.discordClient.Guild(guildID)
}

//Channel returns a channel from the state cache, falling back to the api
func (d *EventSource) Channel(channelID string) (*discordgo.Channel, error) {
	if c, err := d.discordClient.State.Channel(channelID); err == nil {
		return c, nil
	}
	return d.discordClient.Channel(channelID)
}

//GuildRoles lists the roles of a guild
func (d *EventSource) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return d.discordClient.GuildRoles(guildID)
}

//GuildEmoji fetches a custom emoji of a guild
func (d *EventSource) GuildEmoji(guildID, emojiID string) (*discordgo.Emoji, error) {
	if e, err := d.discordClient.State.Emoji(guildID, emojiID); err == nil {
		return e, nil
	}
	return d.discordClient.GuildEmoji(guildID, emojiID)
}

//ApplyRoleDelta returns roles with every granted role added and every revoked role removed, keeping the original order
func ApplyRoleDelta(roles, grant, revoke []string) []string {
	revoked := make(map[string]bool, len(revoke))
	for _, r := range revoke {
		revoked[r] = true
	}
	seen := make(map[string]bool, len(roles)+len(grant))
	res := make([]string, 0, len(roles)+len(grant))
	for _, r := range append(append([]string{}, roles...), grant...) {
		if revoked[r] || seen[r] {
			continue
		}
		seen[r] = true
		res = append(res, r)
	}
	return res
}

//IsUnknownResource returns true if discord reported that the message, channel or emoji does not exist
func IsUnknownResource(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownEmoji:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

//IsForbidden returns true if discord refused a call because the bot lacks permissions
func IsForbidden(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

//IsThrottled returns true if the call hit a rate limit that discordgo gave up on
func IsThrottled(err error) bool {
	var rlErr *discordgo.RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusTooManyRequests
}
