package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db/dbtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord/discordtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = "100"
	testChannel = "201"
	testRelay   = "202"
	testMessage = "301"
	testBot     = "bot"
	testOwner   = "owner"
	testDev     = "dev"
	testMod     = "mod"
	testMember  = "member"
)

type fixture struct {
	bot   *ViViBot
	api   *discordtest.Session
	store *db.GormStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := dbtest.NewStore(t)
	api := discordtest.New(testBot)
	api.AddGuild(testGuild, "Fleet HQ", testOwner)
	api.AddChannel(testGuild, testChannel, "roles")
	api.AddChannel(testGuild, testRelay, "fleet-chat")
	api.AddMessage(testChannel, testMessage)
	api.AddRole(testGuild, &discordgo.Role{ID: "fleetmember", Name: "Fleet Member", Position: 1})
	api.AddRole(testGuild, &discordgo.Role{ID: "officer", Name: "Officer", Position: 2})
	api.AddRole(testGuild, &discordgo.Role{ID: "moderator", Name: "Moderator", Position: 3, Permissions: discordgo.PermissionManageServer})
	api.AddRole(testGuild, &discordgo.Role{ID: "botrole", Name: "ViVi", Position: 10, Managed: true})
	api.AddMember(testGuild, testBot, true, "botrole")
	api.AddMember(testGuild, testOwner, false)
	api.AddMember(testGuild, testDev, false)
	api.AddMember(testGuild, testMod, false, "moderator")
	api.AddMember(testGuild, testMember, false, "officer")
	cfg := &config.Config{
		Discord:   config.DiscordConfig{DevUID: testDev},
		Bot:       config.BotConfig{Prefix: "!"},
		ChatLog:   config.ChatLogConfig{Enabled: true},
		Assistant: config.AssistantConfig{TextTimeout: time.Second, ReactionTimeout: time.Second},
	}
	return &fixture{
		bot:   New(cfg, store, api, nil),
		api:   api,
		store: store,
	}
}

func message(userID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "cmd",
		ChannelID: testChannel,
		GuildID:   testGuild,
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	}}
}

//exec runs a command synchronously and returns its response
func (f *fixture) exec(t *testing.T, userID, content string) Response {
	t.Helper()
	cmd, ok := parseCommand("!", content)
	require.True(t, ok, "not a command: %v", content)
	return f.bot.execute(context.Background(), cmd, message(userID, content))
}

func (f *fixture) createReactionRole(t *testing.T) *guildmodels.ReactionRole {
	t.Helper()
	rr := &guildmodels.ReactionRole{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		Name:      "fleet",
		Emoji:     "👍",
		Changes:   []guildmodels.RoleChange{{RoleID: "fleetmember", Direction: guildmodels.ChangeAdd, AllowToggle: true}},
	}
	require.NoError(t, f.bot.engine.CreateDefinition(context.Background(), rr))
	return rr
}

func description(r Response) string {
	return r.DiscordResponse().Embeds[0].Description
}

func TestIsFromAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AddAdminRole(ctx, testGuild, "officer")
	require.NoError(t, err)

	tests := []struct {
		userID string
		want   bool
	}{
		{testDev, true},
		{testOwner, true},
		{testMod, true},
		{testMember, true},
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			got, err := f.bot.isFromAdmin(ctx, nil, &discordgo.User{ID: tt.userID}, testGuild)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	f.api.AddMember(testGuild, "nobody", false, "fleetmember")
	got, err := f.bot.isFromAdmin(ctx, nil, &discordgo.User{ID: "nobody"}, testGuild)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCommandsNeedAdmin(t *testing.T) {
	f := newFixture(t)
	resp := f.exec(t, testMember, "!rr list")
	assert.IsType(t, ResponseNotAllowed{}, resp)
}

func TestAddAdminRole(t *testing.T) {
	f := newFixture(t)

	resp := f.exec(t, testOwner, "!addadminrole Officer")
	require.IsType(t, ResponseSuccess{}, resp)
	assert.Contains(t, description(resp), "<@&officer>")
	assert.IsType(t, ResponseSuccess{}, f.exec(t, testMember, "!rr list"))

	resp = f.exec(t, testOwner, "!addadminrole <@&officer>")
	require.IsType(t, ResponseSuccess{}, resp)
	assert.Contains(t, description(resp), "already")

	assert.IsType(t, ResponseRejected{}, f.exec(t, testOwner, `!addadminrole "Captain"`))
	assert.IsType(t, ResponseSyntaxError{}, f.exec(t, testOwner, "!addadminrole"))
}

func TestReactionRoleCommands(t *testing.T) {
	f := newFixture(t)
	rr := f.createReactionRole(t)

	resp := f.exec(t, testOwner, "!rr list")
	require.IsType(t, ResponseInfo{}, resp)
	require.Len(t, resp.(ResponseInfo).fields, 1)
	assert.Contains(t, resp.(ResponseInfo).fields[0].name, "fleet (inactive)")

	resp = f.exec(t, testOwner, "!reactionrole list active")
	require.IsType(t, ResponseInfo{}, resp)
	assert.Empty(t, resp.(ResponseInfo).fields)

	resp = f.exec(t, testOwner, "!rr info 1")
	require.IsType(t, ResponseInfo{}, resp)
	assert.Contains(t, resp.(ResponseInfo).fields[0].value, "Gives <@&fleetmember>")

	assert.IsType(t, ResponseSuccess{}, f.exec(t, testOwner, "!rr activate 1"))
	assert.True(t, f.api.HasReaction(testChannel, testMessage, "👍"))
	assert.IsType(t, ResponseRejected{}, f.exec(t, testOwner, "!rr edit 1"))

	assert.IsType(t, ResponseSuccess{}, f.exec(t, testOwner, "!rr delete 1"))
	assert.False(t, f.api.HasReaction(testChannel, testMessage, "👍"))
	_, err := f.store.GetReactionRole(context.Background(), rr.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.IsType(t, ResponseRejected{}, f.exec(t, testOwner, "!rr info 1"))
	assert.IsType(t, ResponseSyntaxError{}, f.exec(t, testOwner, "!rr info one"))
	assert.IsType(t, ResponseSyntaxError{}, f.exec(t, testOwner, "!rr sideways"))
	assert.IsType(t, ResponseSyntaxError{}, f.exec(t, testOwner, "!rr"))
}

func TestActivateAllReportsFailures(t *testing.T) {
	f := newFixture(t)
	f.createReactionRole(t)
	f.api.AddMessage(testChannel, "302")
	broken := &guildmodels.ReactionRole{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "302",
		Name:      "broken",
		Emoji:     "🚀",
		Changes:   []guildmodels.RoleChange{{RoleID: "fleetmember", Direction: guildmodels.ChangeAdd}},
	}
	require.NoError(t, f.bot.engine.CreateDefinition(context.Background(), broken))
	f.api.DeleteMessage(testChannel, "302")

	resp := f.exec(t, testOwner, "!rr activate all")
	require.IsType(t, ResponsePartialSuccess{}, resp)
	partial := resp.(ResponsePartialSuccess)
	require.Len(t, partial.data, 1)
	assert.Contains(t, partial.data[0].name, "broken")

	resp = f.exec(t, testOwner, "!rr deactivate all")
	require.IsType(t, ResponseSuccess{}, resp)
	assert.Contains(t, description(resp), "1 reaction role(s) are now inactive")
}

func TestChatLogCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.exec(t, testOwner, "!chatlog add <#202> public-en Public chat")
	require.IsType(t, ResponseSuccess{}, resp)
	cls, err := f.store.ListChatLogs(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, cls, 1)
	assert.Equal(t, guildmodels.ChatLog{ID: cls[0].ID, GuildID: testGuild, ChannelID: testRelay, ChannelKey: "public-en", Name: "Public chat"}, cls[0])

	resp = f.exec(t, testOwner, "!chatlog list")
	require.IsType(t, ResponseInfo{}, resp)
	assert.Len(t, resp.(ResponseInfo).fields, 1)

	assert.IsType(t, ResponseSyntaxError{}, f.exec(t, testOwner, "!chatlog add <#202> public-en"))
	assert.IsType(t, ResponseRejected{}, f.exec(t, testOwner, "!chatlog add <#999> public-en Public"))

	other := &guildmodels.ChatLog{GuildID: "other", ChannelID: "x", ChannelKey: "k", Name: "theirs"}
	require.NoError(t, f.store.CreateChatLog(ctx, other))
	assert.IsType(t, ResponseRejected{}, f.exec(t, testOwner, "!chatlog delete 2"))

	assert.IsType(t, ResponseSuccess{}, f.exec(t, testOwner, "!chatlog delete 1"))
	cls, err = f.store.ListChatLogs(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, cls)
}

func TestChatLogCommandsNeedRelay(t *testing.T) {
	f := newFixture(t)
	f.bot.cfg.ChatLog.Enabled = false
	assert.IsType(t, ResponseFeatureNotEnabled{}, f.exec(t, testOwner, "!chatlog list"))
}

func TestHandleMessageRepliesToCommands(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(message(testOwner, "hello there"))
	f.bot.HandleMessage(message(testOwner, "!unknown"))
	fromBot := message(testOwner, "!rr list")
	fromBot.Author.Bot = true
	f.bot.HandleMessage(fromBot)
	f.bot.HandleMessage(message(testOwner, "!rr list"))
	f.bot.Wait()

	sent := f.api.SentTo(testChannel)
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "Reaction roles", sent[0].Embeds[0].Title)
	require.NotNil(t, sent[0].Reference)
	assert.Equal(t, "cmd", sent[0].Reference.MessageID)
}

func TestHandleMessageFeedsAssistant(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(message(testOwner, "!rr add"))
	for !f.bot.assistant.Registry().DeliverMessage(testOwner, testChannel, "abort") {
		time.Sleep(time.Millisecond)
	}
	f.bot.Wait()

	sent := f.api.SentTo(testChannel)
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	assert.True(t, strings.HasPrefix(last.Content, "Stopped"), last.Content)
	assert.Empty(t, last.Embeds)
	rrs, err := f.store.ListReactionRoles(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Empty(t, rrs)
}

func TestHandleReactionsReachEngine(t *testing.T) {
	f := newFixture(t)
	f.createReactionRole(t)
	assert.IsType(t, ResponseSuccess{}, f.exec(t, testOwner, "!rr activate 1"))
	f.api.AddMember(testGuild, "recruit", false)

	reaction := &discordgo.MessageReaction{
		UserID:    "recruit",
		MessageID: testMessage,
		ChannelID: testChannel,
		GuildID:   testGuild,
		Emoji:     discordgo.Emoji{Name: "👍"},
	}
	f.bot.HandleReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction})
	f.bot.Wait()
	assert.Equal(t, []string{"fleetmember"}, f.api.MemberRoles(testGuild, "recruit"))

	f.bot.HandleReactionRemove(&discordgo.MessageReactionRemove{MessageReaction: reaction})
	f.bot.Wait()
	assert.Empty(t, f.api.MemberRoles(testGuild, "recruit"))
}
