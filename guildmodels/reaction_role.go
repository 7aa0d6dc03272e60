package guildmodels

//ChangeDirection is the way a RoleChange mutates a member's roles when its reaction is added
type ChangeDirection string

const (
	//ChangeAdd grants the role
	ChangeAdd ChangeDirection = "add"
	//ChangeRemove revokes the role
	ChangeRemove ChangeDirection = "remove"
)

//Inverse returns the opposite direction, used when a toggling reaction is removed
func (d ChangeDirection) Inverse() ChangeDirection {
	if d == ChangeAdd {
		return ChangeRemove
	}
	return ChangeAdd
}

//Valid returns true for the two known directions
func (d ChangeDirection) Valid() bool {
	return d == ChangeAdd || d == ChangeRemove
}

//ReactionRole is a reaction on a single discord message which changes the roles of whoever reacts to it.
type ReactionRole struct {
	ID           uint              `gorm:"primaryKey;column:id" gorethink:"id"`
	GuildID      string            `gorm:"column:guild_id;index;not null" gorethink:"guild_id"`
	ChannelID    string            `gorm:"column:channel_id;not null" gorethink:"channel_id"`
	MessageID    string            `gorm:"column:message_id;index;not null" gorethink:"message_id"`
	Name         string            `gorm:"column:name;not null" gorethink:"name"`
	Emoji        string            `gorm:"column:emoji;not null" gorethink:"emoji"`
	IsActive     bool              `gorm:"column:is_active;not null;default:false" gorethink:"is_active"`
	Changes      []RoleChange      `gorm:"foreignKey:ReactionRoleID" gorethink:"-"`
	Requirements []RoleRequirement `gorm:"foreignKey:ReactionRoleID" gorethink:"-"`
}

//TableName pins the gorm table name
func (ReactionRole) TableName() string {
	return "reaction_roles"
}

//RequiredRoleIDs lists the role ids a member must hold before any change of this reaction role applies
func (rr *ReactionRole) RequiredRoleIDs() []string {
	res := make([]string, 0, len(rr.Requirements))
	for _, req := range rr.Requirements {
		res = append(res, req.RoleID)
	}
	return res
}

//RoleChange is a single role grant or revocation triggered by a ReactionRole.
type RoleChange struct {
	ID             uint            `gorm:"primaryKey;column:id" gorethink:"id"`
	ReactionRoleID uint            `gorm:"column:reaction_role_id;index;not null" gorethink:"reaction_role_id"`
	RoleID         string          `gorm:"column:role_id;not null" gorethink:"role_id"`
	Direction      ChangeDirection `gorm:"column:direction;not null" gorethink:"direction"`
	AllowToggle    bool            `gorm:"column:allow_toggle;not null;default:false" gorethink:"allow_toggle"`
	//Optional notification sent once the role has been changed
	MessageChannelID string `gorm:"column:message_channel_id" gorethink:"message_channel_id,omitempty"`
	MessageContent   string `gorm:"column:message_content" gorethink:"message_content,omitempty"`
	MessageEmbed     string `gorm:"column:message_embed" gorethink:"message_embed,omitempty"`
}

//TableName pins the gorm table name
func (RoleChange) TableName() string {
	return "reaction_role_changes"
}

//HasNotification returns true if a message should be posted after this change is applied
func (c *RoleChange) HasNotification() bool {
	return c.MessageChannelID != "" && (c.MessageContent != "" || c.MessageEmbed != "")
}

//RoleRequirement is a role a member must hold for a ReactionRole to apply.
type RoleRequirement struct {
	ID             uint   `gorm:"primaryKey;column:id" gorethink:"id"`
	ReactionRoleID uint   `gorm:"column:reaction_role_id;index;not null" gorethink:"reaction_role_id"`
	RoleID         string `gorm:"column:role_id;not null" gorethink:"role_id"`
}

//TableName pins the gorm table name
func (RoleRequirement) TableName() string {
	return "reaction_role_requirements"
}
