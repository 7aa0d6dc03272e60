package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const handleAddAdminRoleSyntax string = "`!addadminrole \"<role>\"` or `!addadminrole @<role>`"

//Members holding a role with any of these permissions count as admins
const adminPermissions = discordgo.PermissionAdministrator | discordgo.PermissionManageServer

//handleAddAdminRoleCommand handles a message containing an add admin role command
//command format: !addadminrole <role>
func (b *ViViBot) handleAddAdminRoleCommand(ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response {
	//The role is everything after the command name
	cmd.sub = ""
	argString := cmd.body
	if argString == "" {
		return syntaxError(cmd, "No role was given.", handleAddAdminRoleSyntax)
	}
	roles, err := b.api.GuildRoles(msg.GuildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild roles for guild id %v", msg.GuildID)
		return errorResponse(cmd, err)
	}
	matchingRole := reactionroles.FindRoleByInput(roles, argString)
	if matchingRole == nil {
		return ResponseRejected{
			command:     cmd.label(),
			commandMsg:  cmd.raw,
			description: fmt.Sprintf("I could not find a role called %v.", argString),
			timestamp:   time.Now(),
		}
	}
	return b.addAdminRole(ctx, cmd, msg.GuildID, matchingRole)
}

func (b *ViViBot) addAdminRole(ctx context.Context, cmd command, gid string, role *discordgo.Role) Response {
	//Make sure guild exists
	if _, err := b.store.GetOrCreateGuild(ctx, gid); err != nil {
		logrus.Warnf("Encountered error %v when trying to add role %v to admins on server %v", err, role.ID, gid)
		return errorResponse(cmd, err)
	}
	//Add role to list
	noUpdated, err := b.store.AddAdminRole(ctx, gid, role.ID)
	if err != nil {
		logrus.Warnf("Encountered error %v when trying to add role %v to admins on server %v", err, role.ID, gid)
		return errorResponse(cmd, err)
	}
	if noUpdated == 0 {
		return success(cmd, fmt.Sprintf("%v already is an admin role.", role.Mention()))
	}
	return success(cmd, fmt.Sprintf("Members with %v may now configure me.", role.Mention()))
}

/**************************
/     Utility Functions
/**************************/

//isFromAdmin checks, in order, for the developer, the server owner, a member with admin permissions and a member
//holding one of the server's admin roles
func (b *ViViBot) isFromAdmin(ctx context.Context, member *discordgo.Member, user *discordgo.User, guildID string) (bool, error) {
	//Works if from dev
	if b.isDev(user.ID) {
		return true, nil
	}
	//Works if from server owner
	guild, err := b.api.Guild(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild object from Discord API when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	} else if guild.OwnerID == user.ID {
		return true, nil
	}
	if member == nil {
		if member, err = b.api.Member(guildID, user.ID); err != nil {
			return false, err
		}
	}
	//Works if user has a role with admin permissions
	roles, err := b.api.GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch roles from Discord API when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	}
	if hasPermission(roles, guildID, member.Roles, adminPermissions) {
		return true, nil
	}
	//Works if user has an admin role
	localGuild, err := b.store.GetOrCreateGuild(ctx, guildID)
	if err != nil {
		logrus.Warnf("Failed to fetch guild object from Database when checking if user %v is admin for server %v", user.ID, guildID)
		return false, err
	}
	return localGuild.HasAdminRole(member.Roles), nil
}

func (b *ViViBot) isDev(userID string) bool {
	return b.cfg.Discord.DevUID != "" && userID == b.cfg.Discord.DevUID
}

//hasPermission returns true if the @everyone role or any held role grants one of the permissions
func hasPermission(roles []*discordgo.Role, guildID string, held []string, perms int64) bool {
	for _, role := range roles {
		if role.Permissions&perms == 0 {
			continue
		}
		if role.ID == guildID {
			return true
		}
		for _, roleID := range held {
			if roleID == role.ID {
				return true
			}
		}
	}
	return false
}
