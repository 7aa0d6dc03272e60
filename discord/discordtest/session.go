//Package discordtest provides an in-memory implementation of discord.API which records every call
package discordtest

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/bwmarrin/discordgo"
)

//RoleEdit records a role mutation call
type RoleEdit struct {
	GuildID string
	UserID  string
	Grant   []string
	Revoke  []string
	Reason  string
}

//Reaction records a reaction added or removed by the bot
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

//Sent records a message posted by the bot
type Sent struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

//Session is a fake discord.API. Its exported maps may be filled directly before use; the helper methods are safe to
//call concurrently with the code under test.
type Session struct {
	mu sync.Mutex

	BotID    string
	Guilds   map[string]*discordgo.Guild
	Channels map[string]*discordgo.Channel
	Messages map[string]*discordgo.Message
	Members  map[string]*discordgo.Member
	Roles    map[string][]*discordgo.Role
	Emojis   map[string]*discordgo.Emoji

	//Failure injection
	EditErr           error
	RoleErrs          map[string]error
	ReactionErr       error
	RemoveReactionErr error
	SendErrs          map[string]error

	roleEdits        []RoleEdit
	singleRoleEdits  []RoleEdit
	reactions        map[Reaction]bool
	addedReactions   []Reaction
	removedReactions []Reaction
	sent             []Sent
	nextMessageID    int
}

var _ discord.API = (*Session)(nil)

//New returns an empty fake session whose bot user has the given id
func New(botID string) *Session {
	return &Session{
		BotID:     botID,
		Guilds:    map[string]*discordgo.Guild{},
		Channels:  map[string]*discordgo.Channel{},
		Messages:  map[string]*discordgo.Message{},
		Members:   map[string]*discordgo.Member{},
		Roles:     map[string][]*discordgo.Role{},
		Emojis:    map[string]*discordgo.Emoji{},
		RoleErrs:  map[string]error{},
		SendErrs:  map[string]error{},
		reactions: map[Reaction]bool{},
	}
}

//UnknownError builds the error discord returns for a missing resource
func UnknownError(code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "Unknown"},
	}
}

//ForbiddenError builds the error discord returns when the bot lacks a permission
func ForbiddenError() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions, Message: "Missing Permissions"},
	}
}

func memberKey(guildID, userID string) string {
	return guildID + "/" + userID
}

func messageKey(channelID, messageID string) string {
	return channelID + "/" + messageID
}

//AddGuild registers a guild together with its @everyone role
func (s *Session) AddGuild(guildID, name, ownerID string) *discordgo.Guild {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &discordgo.Guild{ID: guildID, Name: name, OwnerID: ownerID}
	s.Guilds[guildID] = g
	s.Roles[guildID] = append(s.Roles[guildID], &discordgo.Role{ID: guildID, Name: "@everyone", Position: 0})
	return g
}

//AddChannel registers a text channel of a guild
func (s *Session) AddChannel(guildID, channelID, name string) *discordgo.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &discordgo.Channel{ID: channelID, GuildID: guildID, Name: name, Type: discordgo.ChannelTypeGuildText}
	s.Channels[channelID] = c
	return c
}

//AddMessage registers an existing message
func (s *Session) AddMessage(channelID, messageID string) *discordgo.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &discordgo.Message{ID: messageID, ChannelID: channelID}
	if c, ok := s.Channels[channelID]; ok {
		m.GuildID = c.GuildID
	}
	s.Messages[messageKey(channelID, messageID)] = m
	return m
}

//DeleteMessage makes a message vanish
func (s *Session) DeleteMessage(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Messages, messageKey(channelID, messageID))
}

//AddRole registers a role of a guild
func (s *Session) AddRole(guildID string, role *discordgo.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Roles[guildID] = append(s.Roles[guildID], role)
}

//AddMember registers a member holding the given roles
func (s *Session) AddMember(guildID, userID string, bot bool, roles ...string) *discordgo.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID, Username: "user" + userID, Bot: bot},
		Roles:   append([]string{}, roles...),
	}
	s.Members[memberKey(guildID, userID)] = m
	return m
}

//SetMemberRoles overwrites the roles of a member, emulating a change made outside the bot
func (s *Session) SetMemberRoles(guildID, userID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.Members[memberKey(guildID, userID)]; ok {
		m.Roles = append([]string{}, roles...)
	}
}

//AddEmoji registers a custom emoji of a guild
func (s *Session) AddEmoji(guildID, emojiID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Emojis[memberKey(guildID, emojiID)] = &discordgo.Emoji{ID: emojiID, Name: name}
}

//MemberRoles returns a copy of a member's current roles
func (s *Session) MemberRoles(guildID, userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Members[memberKey(guildID, userID)]
	if !ok {
		return nil
	}
	return append([]string{}, m.Roles...)
}

//RoleEdits returns every batched role mutation
func (s *Session) RoleEdits() []RoleEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RoleEdit{}, s.roleEdits...)
}

//SingleRoleEdits returns every single-role mutation
func (s *Session) SingleRoleEdits() []RoleEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RoleEdit{}, s.singleRoleEdits...)
}

//AddedReactions returns every reaction the bot placed
func (s *Session) AddedReactions() []Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reaction{}, s.addedReactions...)
}

//RemovedReactions returns every reaction the bot removed
func (s *Session) RemovedReactions() []Reaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reaction{}, s.removedReactions...)
}

//HasReaction reports whether the bot currently has the reaction on the message
func (s *Session) HasReaction(channelID, messageID, emoji string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactions[Reaction{channelID, messageID, emoji}]
}

//SentMessages returns every posted message
func (s *Session) SentMessages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent{}, s.sent...)
}

//SentTo returns the messages posted to one channel
func (s *Session) SentTo(channelID string) []*discordgo.MessageSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*discordgo.MessageSend
	for _, sent := range s.sent {
		if sent.ChannelID == channelID {
			res = append(res, sent.Message)
		}
	}
	return res
}

//BotUserID returns the configured bot id
func (s *Session) BotUserID() string {
	return s.BotID
}

//AddReaction records a reaction if the message exists
func (s *Session) AddReaction(channelID, messageID, emojiToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReactionErr != nil {
		return s.ReactionErr
	}
	if _, ok := s.Messages[messageKey(channelID, messageID)]; !ok {
		return UnknownError(discordgo.ErrCodeUnknownMessage)
	}
	r := Reaction{channelID, messageID, emojiToken}
	s.reactions[r] = true
	s.addedReactions = append(s.addedReactions, r)
	return nil
}

//RemoveOwnReaction drops a reaction if the message exists
func (s *Session) RemoveOwnReaction(channelID, messageID, emojiToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveReactionErr != nil {
		return s.RemoveReactionErr
	}
	if _, ok := s.Messages[messageKey(channelID, messageID)]; !ok {
		return UnknownError(discordgo.ErrCodeUnknownMessage)
	}
	r := Reaction{channelID, messageID, emojiToken}
	delete(s.reactions, r)
	s.removedReactions = append(s.removedReactions, r)
	return nil
}

//EditMemberRoles applies a batch of role changes unless EditErr is set
func (s *Session) EditMemberRoles(guildID, userID string, grant, revoke []string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleEdits = append(s.roleEdits, RoleEdit{guildID, userID, append([]string{}, grant...), append([]string{}, revoke...), reason})
	if s.EditErr != nil {
		return s.EditErr
	}
	m, ok := s.Members[memberKey(guildID, userID)]
	if !ok {
		return UnknownError(discordgo.ErrCodeUnknownMember)
	}
	for _, roleID := range append(append([]string{}, grant...), revoke...) {
		if err := s.RoleErrs[roleID]; err != nil {
			return err
		}
	}
	m.Roles = discord.ApplyRoleDelta(m.Roles, grant, revoke)
	return nil
}

func (s *Session) singleRoleEdit(guildID, userID, roleID, reason string, grant bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit := RoleEdit{GuildID: guildID, UserID: userID, Reason: reason}
	if grant {
		edit.Grant = []string{roleID}
	} else {
		edit.Revoke = []string{roleID}
	}
	s.singleRoleEdits = append(s.singleRoleEdits, edit)
	if err := s.RoleErrs[roleID]; err != nil {
		return err
	}
	m, ok := s.Members[memberKey(guildID, userID)]
	if !ok {
		return UnknownError(discordgo.ErrCodeUnknownMember)
	}
	m.Roles = discord.ApplyRoleDelta(m.Roles, edit.Grant, edit.Revoke)
	return nil
}

//AddMemberRole grants one role
func (s *Session) AddMemberRole(guildID, userID, roleID, reason string) error {
	return s.singleRoleEdit(guildID, userID, roleID, reason, true)
}

//RemoveMemberRole revokes one role
func (s *Session) RemoveMemberRole(guildID, userID, roleID, reason string) error {
	return s.singleRoleEdit(guildID, userID, roleID, reason, false)
}

//SendMessage records a message unless the channel has a send error configured
func (s *Session) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.SendErrs[channelID]; err != nil {
		return nil, err
	}
	s.sent = append(s.sent, Sent{ChannelID: channelID, Message: msg})
	s.nextMessageID++
	id := fmt.Sprintf("sent-%d", s.nextMessageID)
	m := &discordgo.Message{ID: id, ChannelID: channelID, Content: msg.Content}
	s.Messages[messageKey(channelID, id)] = m
	return m, nil
}

//FetchMessage returns a registered message
func (s *Session) FetchMessage(channelID, messageID string) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Channels[channelID]; !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownChannel)
	}
	m, ok := s.Messages[messageKey(channelID, messageID)]
	if !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownMessage)
	}
	return m, nil
}

//Member returns a copy of a registered member
func (s *Session) Member(guildID, userID string) (*discordgo.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Members[memberKey(guildID, userID)]
	if !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownMember)
	}
	cp := *m
	cp.Roles = append([]string{}, m.Roles...)
	return &cp, nil
}

//Guild returns a registered guild
func (s *Session) Guild(guildID string) (*discordgo.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.Guilds[guildID]
	if !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownGuild)
	}
	return g, nil
}

//Channel returns a registered channel
func (s *Session) Channel(channelID string) (*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Channels[channelID]
	if !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownChannel)
	}
	return c, nil
}

//GuildRoles returns the registered roles of a guild
func (s *Session) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles, ok := s.Roles[guildID]
	if !ok {
		return nil, errors.New("unknown guild")
	}
	return append([]*discordgo.Role{}, roles...), nil
}

//GuildEmoji returns a registered custom emoji
func (s *Session) GuildEmoji(guildID, emojiID string) (*discordgo.Emoji, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Emojis[memberKey(guildID, emojiID)]
	if !ok {
		return nil, UnknownError(discordgo.ErrCodeUnknownEmoji)
	}
	return e, nil
}
