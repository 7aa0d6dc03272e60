package reactionroles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db/dbtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord/discordtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = "g1"
	testChannel = "c1"
	testNotify  = "c2"
	testMessage = "m1"
	testBot     = "bot"
	testUser    = "u1"
	thumbsUp    = "👍"
)

type fixture struct {
	engine *Engine
	api    *discordtest.Session
	store  *db.GormStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := dbtest.NewStore(t)
	api := discordtest.New(testBot)
	api.AddGuild(testGuild, "Fleet HQ", "owner")
	api.AddChannel(testGuild, testChannel, "roles")
	api.AddChannel(testGuild, testNotify, "welcome")
	api.AddMessage(testChannel, testMessage)
	api.AddRole(testGuild, &discordgo.Role{ID: "visitor", Name: "Visitor", Position: 1})
	api.AddRole(testGuild, &discordgo.Role{ID: "member", Name: "Member", Position: 2})
	api.AddRole(testGuild, &discordgo.Role{ID: "verified", Name: "Verified", Position: 3})
	api.AddRole(testGuild, &discordgo.Role{ID: "booster", Name: "Booster", Position: 4, Managed: true})
	api.AddRole(testGuild, &discordgo.Role{ID: "botrole", Name: "ViVi", Position: 10, Managed: true})
	api.AddRole(testGuild, &discordgo.Role{ID: "admin", Name: "Admin", Position: 20})
	api.AddMember(testGuild, testBot, true, "botrole")
	api.AddMember(testGuild, testUser, false)
	return &fixture{
		engine: NewEngine(store, api, WithActivationRetries(1, time.Millisecond)),
		api:    api,
		store:  store,
	}
}

func (f *fixture) create(t *testing.T, changes []guildmodels.RoleChange, requirements ...string) *guildmodels.ReactionRole {
	t.Helper()
	rr := &guildmodels.ReactionRole{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		Name:      "fleet",
		Emoji:     thumbsUp,
		Changes:   changes,
	}
	for _, roleID := range requirements {
		rr.Requirements = append(rr.Requirements, guildmodels.RoleRequirement{RoleID: roleID})
	}
	require.NoError(t, f.engine.CreateDefinition(context.Background(), rr))
	return rr
}

func (f *fixture) createActive(t *testing.T, changes []guildmodels.RoleChange, requirements ...string) *guildmodels.ReactionRole {
	t.Helper()
	rr := f.create(t, changes, requirements...)
	_, err := f.engine.Activate(context.Background(), rr.ID)
	require.NoError(t, err)
	return rr
}

func reaction(userID string) ReactionEvent {
	return ReactionEvent{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		UserID:    userID,
		Emoji:     discordgo.Emoji{Name: thumbsUp},
	}
}

func addMember(toggle bool) guildmodels.RoleChange {
	return guildmodels.RoleChange{RoleID: "member", Direction: guildmodels.ChangeAdd, AllowToggle: toggle}
}

func TestReactionAddedGrantsRoleOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{addMember(false)})

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	edits := f.api.RoleEdits()
	require.Len(t, edits, 1)
	assert.Equal(t, []string{"member"}, edits[0].Grant)
	assert.Empty(t, edits[0].Revoke)
	assert.Contains(t, edits[0].Reason, "fleet")

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	assert.Len(t, f.api.RoleEdits(), 1)
	assert.Empty(t, f.api.SentMessages())
	assert.Equal(t, []string{"member"}, f.api.MemberRoles(testGuild, testUser))
}

func TestReactionIgnoredWhenInactiveOrOtherEmoji(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, []guildmodels.RoleChange{addMember(false)})

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	assert.Empty(t, f.api.RoleEdits())

	f.createActive(t, []guildmodels.RoleChange{addMember(false)})
	ev := reaction(testUser)
	ev.Emoji = discordgo.Emoji{Name: "👎"}
	f.engine.OnReactionAdded(ctx, ev)
	assert.Empty(t, f.api.RoleEdits())
}

func TestBotReactionsAreIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{addMember(false)})
	f.api.AddMember(testGuild, "otherbot", true)

	f.engine.OnReactionAdded(ctx, reaction(testBot))
	ev := reaction("otherbot")
	ev.IsBot = true
	f.engine.OnReactionAdded(ctx, ev)
	f.engine.OnReactionRemoved(ctx, reaction("otherbot"))

	assert.Empty(t, f.api.RoleEdits())
}

func TestRequirementsGateEveryChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{
		addMember(true),
		{RoleID: "visitor", Direction: guildmodels.ChangeRemove, AllowToggle: true},
	}, "verified")
	f.api.SetMemberRoles(testGuild, testUser, "visitor")

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	f.engine.OnReactionRemoved(ctx, reaction(testUser))
	assert.Empty(t, f.api.RoleEdits())

	f.api.SetMemberRoles(testGuild, testUser, "visitor", "verified")
	f.engine.OnReactionAdded(ctx, reaction(testUser))
	edits := f.api.RoleEdits()
	require.Len(t, edits, 1)
	assert.Equal(t, []string{"member"}, edits[0].Grant)
	assert.Equal(t, []string{"visitor"}, edits[0].Revoke)
	assert.ElementsMatch(t, []string{"verified", "member"}, f.api.MemberRoles(testGuild, testUser))
}

func TestToggleSymmetry(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle", func(t *testing.T) {
		f := newFixture(t)
		f.createActive(t, []guildmodels.RoleChange{addMember(true)})
		f.api.SetMemberRoles(testGuild, testUser, "visitor")

		f.engine.OnReactionAdded(ctx, reaction(testUser))
		f.engine.OnReactionRemoved(ctx, reaction(testUser))
		assert.Equal(t, []string{"visitor"}, f.api.MemberRoles(testGuild, testUser))
	})

	t.Run("no toggle", func(t *testing.T) {
		f := newFixture(t)
		f.createActive(t, []guildmodels.RoleChange{addMember(false)})
		f.api.SetMemberRoles(testGuild, testUser, "visitor")

		f.engine.OnReactionAdded(ctx, reaction(testUser))
		f.engine.OnReactionRemoved(ctx, reaction(testUser))
		assert.ElementsMatch(t, []string{"visitor", "member"}, f.api.MemberRoles(testGuild, testUser))
		assert.Len(t, f.api.RoleEdits(), 1)
	})

	t.Run("remove direction", func(t *testing.T) {
		f := newFixture(t)
		f.createActive(t, []guildmodels.RoleChange{{RoleID: "visitor", Direction: guildmodels.ChangeRemove, AllowToggle: true}})
		f.api.SetMemberRoles(testGuild, testUser, "visitor")

		f.engine.OnReactionAdded(ctx, reaction(testUser))
		assert.Empty(t, f.api.MemberRoles(testGuild, testUser))
		f.engine.OnReactionRemoved(ctx, reaction(testUser))
		assert.Equal(t, []string{"visitor"}, f.api.MemberRoles(testGuild, testUser))
	})
}

func TestQueuedEventsKeepArrivalOrder(t *testing.T) {
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{addMember(true)})

	for i := 0; i < 5; i++ {
		f.engine.EnqueueReactionAdded(reaction(testUser))
		f.engine.EnqueueReactionRemoved(reaction(testUser))
	}
	f.engine.EnqueueReactionAdded(reaction(testUser))
	f.engine.Wait()

	assert.Equal(t, []string{"member"}, f.api.MemberRoles(testGuild, testUser))
	assert.Len(t, f.api.RoleEdits(), 11)
}

func TestNotificationSentAfterRoleChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	change := addMember(false)
	change.MessageChannelID = testNotify
	change.MessageContent = "Welcome {user} ({user_display_name}) to {role} on {server}! @everyone"
	change.MessageEmbed = `{"title":"Hello {user_name}","description":"Read {channel}"}`
	f.createActive(t, []guildmodels.RoleChange{change})

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	sent := f.api.SentTo(testNotify)
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome <@u1> (useru1) to Member on Fleet HQ! @everyone", sent[0].Content)
	require.NotNil(t, sent[0].AllowedMentions)
	assert.Equal(t, []string{testUser}, sent[0].AllowedMentions.Users)
	assert.Empty(t, sent[0].AllowedMentions.Parse)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "Hello useru1", sent[0].Embeds[0].Title)
	assert.Equal(t, "Read <#c1>", sent[0].Embeds[0].Description)

	f.engine.OnReactionAdded(ctx, reaction(testUser))
	assert.Len(t, f.api.SentTo(testNotify), 1)
}

func TestFailedBatchFallsBackToSingleRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	grant := addMember(false)
	grant.MessageChannelID = testNotify
	grant.MessageContent = "granted"
	revoke := guildmodels.RoleChange{RoleID: "visitor", Direction: guildmodels.ChangeRemove, MessageChannelID: testNotify, MessageContent: "revoked"}
	f.createActive(t, []guildmodels.RoleChange{grant, revoke})
	f.api.SetMemberRoles(testGuild, testUser, "visitor")
	f.api.RoleErrs["visitor"] = errors.New("role was deleted")

	f.engine.OnReactionAdded(ctx, reaction(testUser))

	assert.Len(t, f.api.RoleEdits(), 1)
	assert.Len(t, f.api.SingleRoleEdits(), 2)
	assert.ElementsMatch(t, []string{"visitor", "member"}, f.api.MemberRoles(testGuild, testUser))
	sent := f.api.SentTo(testNotify)
	require.Len(t, sent, 1)
	assert.Equal(t, "granted", sent[0].Content)
}

func TestDepartedMemberIsNoop(t *testing.T) {
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{addMember(true)})
	f.engine.OnReactionRemoved(context.Background(), reaction("ghost"))
	assert.Empty(t, f.api.RoleEdits())
}

func TestDuplicateDefinitionsAllFire(t *testing.T) {
	f := newFixture(t)
	f.createActive(t, []guildmodels.RoleChange{addMember(false)})
	f.createActive(t, []guildmodels.RoleChange{{RoleID: "visitor", Direction: guildmodels.ChangeAdd}})

	f.engine.OnReactionAdded(context.Background(), reaction(testUser))
	assert.Len(t, f.api.RoleEdits(), 2)
	assert.ElementsMatch(t, []string{"member", "visitor"}, f.api.MemberRoles(testGuild, testUser))
}

func TestPlanChanges(t *testing.T) {
	rr := &guildmodels.ReactionRole{Changes: []guildmodels.RoleChange{
		{RoleID: "a", Direction: guildmodels.ChangeAdd, AllowToggle: true},
		{RoleID: "b", Direction: guildmodels.ChangeRemove},
		{RoleID: "a", Direction: guildmodels.ChangeAdd},
	}}

	plan := planChanges(rr, []string{"b"}, true)
	require.Len(t, plan, 2)
	assert.Equal(t, guildmodels.ChangeAdd, plan[0].direction)
	assert.Equal(t, guildmodels.ChangeRemove, plan[1].direction)

	plan = planChanges(rr, []string{"a"}, false)
	require.Len(t, plan, 1)
	assert.Equal(t, "a", plan[0].change.RoleID)
	assert.Equal(t, guildmodels.ChangeRemove, plan[0].direction)

	assert.Empty(t, planChanges(rr, []string{"a"}, true))
}
