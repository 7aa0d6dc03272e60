package reactionroles

import (
	"context"
	"testing"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord/discordtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateDeactivateCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.create(t, []guildmodels.RoleChange{addMember(false)})

	got, err := f.engine.Activate(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, f.api.HasReaction(testChannel, testMessage, thumbsUp))

	_, err = f.engine.Activate(ctx, rr.ID)
	assert.ErrorIs(t, err, ErrActive)

	got, err = f.engine.Deactivate(ctx, rr.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, f.api.HasReaction(testChannel, testMessage, thumbsUp))

	_, err = f.engine.Deactivate(ctx, rr.ID)
	assert.ErrorIs(t, err, ErrInactive)

	_, err = f.engine.Activate(ctx, rr.ID)
	require.NoError(t, err)
	stored, err := f.store.GetReactionRole(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestActivateCustomEmojiUsesAPIName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.api.AddEmoji(testGuild, "123", "fleet")
	rr := &guildmodels.ReactionRole{
		GuildID: testGuild, ChannelID: testChannel, MessageID: testMessage,
		Name: "custom", Emoji: "<:fleet:123>",
		Changes: []guildmodels.RoleChange{addMember(false)},
	}
	require.NoError(t, f.engine.CreateDefinition(ctx, rr))
	_, err := f.engine.Activate(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, f.api.HasReaction(testChannel, testMessage, "fleet:123"))
}

func TestActivateFailureLeavesInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.create(t, []guildmodels.RoleChange{addMember(false)})
	f.api.DeleteMessage(testChannel, testMessage)

	_, err := f.engine.Activate(ctx, rr.ID)
	require.Error(t, err)
	_, isValidation := IsValidation(err)
	assert.True(t, isValidation)

	stored, err := f.store.GetReactionRole(ctx, rr.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestDeactivateFailureKeepsActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.createActive(t, []guildmodels.RoleChange{addMember(false)})
	f.api.RemoveReactionErr = discordtest.ForbiddenError()

	_, err := f.engine.Deactivate(ctx, rr.ID)
	require.Error(t, err)
	stored, err := f.store.GetReactionRole(ctx, rr.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	assert.Error(t, f.engine.DeleteDefinition(ctx, testGuild, rr.ID))
	_, err = f.store.GetReactionRole(ctx, rr.ID)
	assert.NoError(t, err)
}

func TestDeactivateVanishedMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.createActive(t, []guildmodels.RoleChange{addMember(false)})
	f.api.DeleteMessage(testChannel, testMessage)

	got, err := f.engine.Deactivate(ctx, rr.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestActivateAllReportsEachReactionRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ok := f.create(t, []guildmodels.RoleChange{addMember(false)})
	f.api.AddMessage(testChannel, "m2")
	broken := f.create(t, []guildmodels.RoleChange{addMember(false)})
	broken.MessageID = "m2"
	require.NoError(t, f.store.UpdateReactionRoleDetails(ctx, broken))
	f.api.DeleteMessage(testChannel, "m2")

	results, err := f.engine.ActivateAll(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, Failed(results))
	for _, res := range results {
		if res.ReactionRole.ID == ok.ID {
			assert.NoError(t, res.Err)
			assert.True(t, res.ReactionRole.IsActive)
		} else {
			assert.Error(t, res.Err)
		}
	}

	results, err = f.engine.DeactivateAll(ctx, testGuild)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, Failed(results))

	active, err := f.engine.ListDefinitions(ctx, testGuild, FilterActive)
	require.NoError(t, err)
	assert.Empty(t, active)
	inactive, err := f.engine.ListDefinitions(ctx, testGuild, FilterInactive)
	require.NoError(t, err)
	assert.Len(t, inactive, 2)
}

func TestCreateDefinitionValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		mutate func(rr *guildmodels.ReactionRole)
		kind   error
	}{
		{"everyone role", func(rr *guildmodels.ReactionRole) { rr.Changes[0].RoleID = testGuild }, ErrInvalidRole},
		{"managed role", func(rr *guildmodels.ReactionRole) { rr.Changes[0].RoleID = "booster" }, ErrInvalidRole},
		{"role above bot", func(rr *guildmodels.ReactionRole) { rr.Changes[0].RoleID = "admin" }, ErrInvalidRole},
		{"unknown role", func(rr *guildmodels.ReactionRole) { rr.Changes[0].RoleID = "nope" }, ErrInvalidRole},
		{"no changes", func(rr *guildmodels.ReactionRole) { rr.Changes = nil }, ErrInvalidRole},
		{"bad direction", func(rr *guildmodels.ReactionRole) { rr.Changes[0].Direction = "swap" }, ErrInvalidRole},
		{"foreign emoji", func(rr *guildmodels.ReactionRole) { rr.Emoji = "<:other:999>" }, ErrInvalidEmoji},
		{"text emoji", func(rr *guildmodels.ReactionRole) { rr.Emoji = "abc" }, ErrInvalidEmoji},
		{"missing message", func(rr *guildmodels.ReactionRole) { rr.MessageID = "m404" }, ErrInvalidMessage},
		{"missing channel", func(rr *guildmodels.ReactionRole) { rr.ChannelID = "c404" }, ErrInvalidMessage},
		{"notification without text", func(rr *guildmodels.ReactionRole) { rr.Changes[0].MessageChannelID = testNotify }, ErrInvalidMessage},
		{"broken embed", func(rr *guildmodels.ReactionRole) {
			rr.Changes[0].MessageChannelID = testNotify
			rr.Changes[0].MessageEmbed = "{"
		}, ErrInvalidMessage},
		{"unknown requirement", func(rr *guildmodels.ReactionRole) {
			rr.Requirements = []guildmodels.RoleRequirement{{RoleID: "nope"}}
		}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := &guildmodels.ReactionRole{
				GuildID: testGuild, ChannelID: testChannel, MessageID: testMessage,
				Name: "fleet", Emoji: thumbsUp,
				Changes: []guildmodels.RoleChange{addMember(false)},
			}
			tt.mutate(rr)
			err := f.engine.CreateDefinition(ctx, rr)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			all, err := f.store.ListReactionRoles(ctx, testGuild)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestEditingRequiresInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.createActive(t, []guildmodels.RoleChange{addMember(false)})

	name := "renamed"
	_, err := f.engine.EditDetails(ctx, testGuild, rr.ID, DetailsEdit{Name: &name})
	assert.ErrorIs(t, err, ErrActive)
	change := guildmodels.RoleChange{RoleID: "visitor", Direction: guildmodels.ChangeAdd}
	assert.ErrorIs(t, f.engine.AddChange(ctx, testGuild, rr.ID, &change), ErrActive)
	_, err = f.engine.AddRequirement(ctx, testGuild, rr.ID, "verified")
	assert.ErrorIs(t, err, ErrActive)

	_, err = f.engine.Deactivate(ctx, rr.ID)
	require.NoError(t, err)

	got, err := f.engine.EditDetails(ctx, testGuild, rr.ID, DetailsEdit{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.NoError(t, f.engine.AddChange(ctx, testGuild, rr.ID, &change))
	req, err := f.engine.AddRequirement(ctx, testGuild, rr.ID, "verified")
	require.NoError(t, err)
	_, err = f.engine.AddRequirement(ctx, testGuild, rr.ID, "verified")
	assert.ErrorIs(t, err, ErrInvalidRole)

	require.NoError(t, f.engine.RemoveChange(ctx, testGuild, rr.ID, rr.Changes[0].ID))
	require.NoError(t, f.engine.RemoveRequirement(ctx, testGuild, rr.ID, req.ID))
	assert.ErrorIs(t, f.engine.RemoveRequirement(ctx, testGuild, rr.ID, req.ID), db.ErrNotFound)

	stored, err := f.engine.Get(ctx, testGuild, rr.ID)
	require.NoError(t, err)
	require.Len(t, stored.Changes, 1)
	assert.Equal(t, "visitor", stored.Changes[0].RoleID)
	assert.Empty(t, stored.Requirements)

	_, err = f.engine.Get(ctx, "other guild", rr.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteActiveDefinitionDeactivatesFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rr := f.createActive(t, []guildmodels.RoleChange{addMember(false)})

	require.NoError(t, f.engine.DeleteDefinition(ctx, testGuild, rr.ID))
	assert.False(t, f.api.HasReaction(testChannel, testMessage, thumbsUp))
	_, err := f.store.GetReactionRole(ctx, rr.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
