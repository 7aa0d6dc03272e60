package guildmodels

//DiscordGuild contains configuration for a discord guild managed by this bot
type DiscordGuild struct {
	DiscordGID string   `gorm:"primaryKey;column:guild_id" gorethink:"id"`
	AdminRoles []string `gorm:"column:admin_roles;serializer:json" gorethink:"admin_roles"`
}

//TableName pins the gorm table name
func (DiscordGuild) TableName() string {
	return "guilds"
}

//DefaultGuild returns an otherwise-empty guild struct with a given ID
func DefaultGuild(gid string) DiscordGuild {
	return DiscordGuild{
		DiscordGID: gid,
		AdminRoles: []string{},
	}
}

//HasAdminRole returns true iff any of the given role IDs is registered as an admin role
func (g *DiscordGuild) HasAdminRole(roleIDs []string) bool {
	for _, adminRole := range g.AdminRoles {
		for _, roleID := range roleIDs {
			if adminRole == roleID {
				return true
			}
		}
	}
	return false
}
