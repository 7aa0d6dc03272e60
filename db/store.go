package db

import (
	"context"
	"errors"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
)

//ErrNotFound is returned when a record with the requested ID does not exist
var ErrNotFound = errors.New("record not found")

//ReactionRoleStore persists reaction roles together with their role changes and requirements
type ReactionRoleStore interface {
	//CreateReactionRole inserts a reaction role with all of its changes and requirements. Either every record is
	//stored or none is.
	CreateReactionRole(ctx context.Context, rr *guildmodels.ReactionRole) error
	GetReactionRole(ctx context.Context, id uint) (*guildmodels.ReactionRole, error)
	ListReactionRoles(ctx context.Context, guildID string) ([]guildmodels.ReactionRole, error)
	ListActiveReactionRolesForMessage(ctx context.Context, guildID, messageID string) ([]guildmodels.ReactionRole, error)
	//UpdateReactionRoleDetails saves name, emoji, channel and message of an existing reaction role
	UpdateReactionRoleDetails(ctx context.Context, rr *guildmodels.ReactionRole) error
	SetReactionRoleActive(ctx context.Context, id uint, active bool) error
	//DeleteReactionRole removes a reaction role and cascades to its changes and requirements
	DeleteReactionRole(ctx context.Context, id uint) error
	AddRoleChange(ctx context.Context, change *guildmodels.RoleChange) error
	DeleteRoleChange(ctx context.Context, id uint) error
	AddRoleRequirement(ctx context.Context, req *guildmodels.RoleRequirement) error
	DeleteRoleRequirement(ctx context.Context, id uint) error
}

//ChatLogStore persists chat log subscriptions
type ChatLogStore interface {
	CreateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error
	GetChatLog(ctx context.Context, id uint) (*guildmodels.ChatLog, error)
	ListChatLogs(ctx context.Context, guildID string) ([]guildmodels.ChatLog, error)
	ListAllChatLogs(ctx context.Context) ([]guildmodels.ChatLog, error)
	//UpdateChatLog saves name, channel and channel key. The cursor is left untouched.
	UpdateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error
	//AdvanceChatLogCursor moves the cursor to messageID if it is greater than the stored one and reports whether
	//it moved.
	AdvanceChatLogCursor(ctx context.Context, id uint, messageID int64) (bool, error)
	DeleteChatLog(ctx context.Context, id uint) error
}

//GuildStore persists per-guild bot settings
type GuildStore interface {
	GetOrCreateGuild(ctx context.Context, id string) (*guildmodels.DiscordGuild, error)
	//AddAdminRole returns the number of updated guilds, which is 0 if the role was already registered
	AddAdminRole(ctx context.Context, gid string, roleID string) (int, error)
}

//Store is the full persistence layer used by the bot
type Store interface {
	ReactionRoleStore
	ChatLogStore
	GuildStore
	Migrate() error
	Close() error
}
