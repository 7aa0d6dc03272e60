package discord_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord/discordtest"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestApplyRoleDelta(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		grant  []string
		revoke []string
		want   []string
	}{
		{"grant", []string{"a"}, []string{"b"}, nil, []string{"a", "b"}},
		{"revoke", []string{"a", "b"}, nil, []string{"a"}, []string{"b"}},
		{"grant already held", []string{"a"}, []string{"a"}, nil, []string{"a"}},
		{"revoke missing", []string{"a"}, nil, []string{"c"}, []string{"a"}},
		{"both", []string{"a", "b"}, []string{"c"}, []string{"b"}, []string{"a", "c"}},
		{"empty", nil, nil, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, discord.ApplyRoleDelta(tt.roles, tt.grant, tt.revoke))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	unknown := discordtest.UnknownError(discordgo.ErrCodeUnknownMessage)
	assert.True(t, discord.IsUnknownResource(unknown))
	assert.True(t, discord.IsUnknownResource(fmt.Errorf("wrapped: %w", unknown)))
	assert.False(t, discord.IsForbidden(unknown))

	forbidden := discordtest.ForbiddenError()
	assert.True(t, discord.IsForbidden(forbidden))
	assert.False(t, discord.IsUnknownResource(forbidden))

	assert.False(t, discord.IsUnknownResource(errors.New("boom")))
	assert.True(t, discord.IsThrottled(&discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{}}}))
}
