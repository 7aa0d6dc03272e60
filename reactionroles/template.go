package reactionroles

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/bwmarrin/discordgo"
)

//Placeholders lists every token a notification template may contain, in the order they are documented to users
var Placeholders = []string{
	"{user}", "{user_name}", "{user_display_name}",
	"{role}", "{role_mention}",
	"{server}", "{channel}", "{channel_name}",
}

//TemplateContext holds what a notification may refer to
type TemplateContext struct {
	Member  *discordgo.Member
	Role    *discordgo.Role
	Guild   *discordgo.Guild
	Channel *discordgo.Channel
}

//DisplayName prefers the server nickname, then the global name, then the username
func DisplayName(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func (c TemplateContext) replacer() *strings.Replacer {
	var user, userName, displayName, role, roleMention, server, channel, channelName string
	if c.Member != nil && c.Member.User != nil {
		user = c.Member.User.Mention()
		userName = c.Member.User.Username
		displayName = DisplayName(c.Member)
	}
	if c.Role != nil {
		role = c.Role.Name
		roleMention = c.Role.Mention()
	}
	if c.Guild != nil {
		server = c.Guild.Name
	}
	if c.Channel != nil {
		channel = c.Channel.Mention()
		channelName = c.Channel.Name
	}
	return strings.NewReplacer(
		"{user}", user,
		"{user_name}", userName,
		"{user_display_name}", displayName,
		"{role}", role,
		"{role_mention}", roleMention,
		"{server}", server,
		"{channel}", channel,
		"{channel_name}", channelName,
	)
}

//RenderText substitutes every placeholder in a template
func RenderText(template string, c TemplateContext) string {
	if template == "" {
		return ""
	}
	return c.replacer().Replace(template)
}

//ParseEmbed validates a stored embed definition
func ParseEmbed(definition string) (*discordgo.MessageEmbed, error) {
	var embed discordgo.MessageEmbed
	if err := json.Unmarshal([]byte(definition), &embed); err != nil {
		return nil, fmt.Errorf("embed definition is not valid json: %w", err)
	}
	if embed.Title == "" && embed.Description == "" && len(embed.Fields) == 0 {
		return nil, fmt.Errorf("embed definition needs a title, a description or fields")
	}
	return &embed, nil
}

//RenderEmbed parses a stored embed definition and substitutes placeholders in all of its text
func RenderEmbed(definition string, c TemplateContext) (*discordgo.MessageEmbed, error) {
	embed, err := ParseEmbed(definition)
	if err != nil {
		return nil, err
	}
	r := c.replacer()
	embed.Title = r.Replace(embed.Title)
	embed.Description = r.Replace(embed.Description)
	if embed.Author != nil {
		embed.Author.Name = r.Replace(embed.Author.Name)
	}
	if embed.Footer != nil {
		embed.Footer.Text = r.Replace(embed.Footer.Text)
	}
	for _, field := range embed.Fields {
		field.Name = r.Replace(field.Name)
		field.Value = r.Replace(field.Value)
	}
	return embed, nil
}

//RenderNotification builds the message posted after a role change. Only the member may be pinged.
func RenderNotification(change *RoleChangeNotification, c TemplateContext) (*discordgo.MessageSend, error) {
	msg := &discordgo.MessageSend{
		Content:         RenderText(change.Content, c),
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	if c.Member != nil && c.Member.User != nil {
		msg.AllowedMentions.Users = []string{c.Member.User.ID}
	}
	if change.Embed != "" {
		embed, err := RenderEmbed(change.Embed, c)
		if err != nil {
			return nil, err
		}
		msg.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if msg.Content == "" && len(msg.Embeds) == 0 {
		return nil, fmt.Errorf("notification is empty")
	}
	return msg, nil
}

//RoleChangeNotification is the notification part of a role change
type RoleChangeNotification struct {
	ChannelID string
	Content   string
	Embed     string
}

//NotificationOf extracts the notification of a stored role change
func NotificationOf(c *guildmodels.RoleChange) *RoleChangeNotification {
	return &RoleChangeNotification{ChannelID: c.MessageChannelID, Content: c.MessageContent, Embed: c.MessageEmbed}
}
