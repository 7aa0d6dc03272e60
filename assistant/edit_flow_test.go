package assistant

import (
	"context"
	"testing"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) create(t *testing.T) *guildmodels.ReactionRole {
	t.Helper()
	rr := &guildmodels.ReactionRole{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		Name:      "fleet",
		Emoji:     "👍",
		Changes:   []guildmodels.RoleChange{{RoleID: "member", Direction: guildmodels.ChangeAdd}},
	}
	require.NoError(t, f.engine.CreateDefinition(context.Background(), rr))
	return rr
}

func TestEditReactionRoleMenu(t *testing.T) {
	f := newFixture(t)
	rr := f.create(t)
	conv := newScript(t,
		"1", "Fleet members", "skip", "skip",
		"2", "remove", "Visitor", "no", "no",
		"4", "Verified",
		"7", "6",
	)

	require.NoError(t, f.assistant.EditReactionRole(context.Background(), conv, testGuild, testUser, rr.ID))
	assert.Empty(t, conv.replies)

	stored, err := f.store.GetReactionRole(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fleet members", stored.Name)
	assert.Equal(t, "👍", stored.Emoji)
	require.Len(t, stored.Changes, 2)
	assert.Equal(t, "visitor", stored.Changes[1].RoleID)
	assert.Equal(t, guildmodels.ChangeRemove, stored.Changes[1].Direction)
	assert.Equal(t, []string{"verified"}, stored.RequiredRoleIDs())
	assert.True(t, conv.saidText("number from 1 to 6"))
}

func TestEditReactionRoleRemovals(t *testing.T) {
	f := newFixture(t)
	rr := f.create(t)
	_, err := f.engine.AddRequirement(context.Background(), testGuild, rr.ID, "verified")
	require.NoError(t, err)
	conv := newScript(t,
		"3", "skip",
		"3", "1",
		"5", "1",
		"6",
	)

	require.NoError(t, f.assistant.EditReactionRole(context.Background(), conv, testGuild, testUser, rr.ID))

	stored, err := f.store.GetReactionRole(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Changes)
	assert.Empty(t, stored.Requirements)
}

func TestEditReactionRoleAllSkippedChangesNothing(t *testing.T) {
	f := newFixture(t)
	rr := f.create(t)
	conv := newScript(t, "1", "skip", "skip", "skip", "6")

	require.NoError(t, f.assistant.EditReactionRole(context.Background(), conv, testGuild, testUser, rr.ID))
	assert.True(t, conv.saidText("Nothing changed"))
	stored, err := f.store.GetReactionRole(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "fleet", stored.Name)
}

func TestEditReactionRoleAbortKeepsEarlierEdits(t *testing.T) {
	f := newFixture(t)
	rr := f.create(t)
	conv := newScript(t, "4", "Verified", "1", "abort")

	err := f.assistant.EditReactionRole(context.Background(), conv, testGuild, testUser, rr.ID)
	assert.ErrorIs(t, err, ErrAborted)
	stored, err := f.store.GetReactionRole(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"verified"}, stored.RequiredRoleIDs())
	assert.Equal(t, "fleet", stored.Name)
}

func TestEditReactionRoleRequiresInactive(t *testing.T) {
	f := newFixture(t)
	rr := f.create(t)
	_, err := f.engine.Activate(context.Background(), rr.ID)
	require.NoError(t, err)

	err = f.assistant.EditReactionRole(context.Background(), newScript(t), testGuild, testUser, rr.ID)
	assert.ErrorIs(t, err, reactionroles.ErrActive)
}

func TestEditChatLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cl := &guildmodels.ChatLog{GuildID: testGuild, ChannelID: testChannel, ChannelKey: "public-en", Name: "Public"}
	require.NoError(t, f.store.CreateChatLog(ctx, cl))
	_, err := f.store.AdvanceChatLogCursor(ctx, cl.ID, 500)
	require.NoError(t, err)

	conv := newScript(t, "skip", "<#202>", "fleet key", "fleet-key", "yes")
	updated, err := f.assistant.EditChatLog(ctx, conv, testGuild, cl.ID)
	require.NoError(t, err)
	assert.Equal(t, testNotify, updated.ChannelID)

	stored, err := f.store.GetChatLog(ctx, cl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Public", stored.Name)
	assert.Equal(t, testNotify, stored.ChannelID)
	assert.Equal(t, "fleet-key", stored.ChannelKey)
	assert.EqualValues(t, 500, stored.LastSeenMessageID)
	assert.True(t, conv.saidText("must not contain spaces"))
}

func TestEditChatLogAbort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cl := &guildmodels.ChatLog{GuildID: testGuild, ChannelID: testChannel, ChannelKey: "public-en", Name: "Public"}
	require.NoError(t, f.store.CreateChatLog(ctx, cl))

	_, err := f.assistant.EditChatLog(ctx, newScript(t, "Renamed", "abort"), testGuild, cl.ID)
	assert.ErrorIs(t, err, ErrAborted)
	stored, err := f.store.GetChatLog(ctx, cl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Public", stored.Name)
}
