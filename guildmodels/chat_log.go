package guildmodels

//ChatLog subscribes a discord channel to a chat stream of the game
type ChatLog struct {
	ID         uint   `gorm:"primaryKey;column:id" gorethink:"id"`
	GuildID    string `gorm:"column:guild_id;index;not null" gorethink:"guild_id"`
	ChannelID  string `gorm:"column:channel_id;not null" gorethink:"channel_id"`
	ChannelKey string `gorm:"column:channel_key;not null" gorethink:"channel_key"`
	Name       string `gorm:"column:name;not null" gorethink:"name"`
	//Highest game message id already posted. Only ever increases.
	LastSeenMessageID int64 `gorm:"column:last_seen_message_id;not null;default:0" gorethink:"last_seen_message_id"`
}

//TableName pins the gorm table name
func (ChatLog) TableName() string {
	return "chat_logs"
}
