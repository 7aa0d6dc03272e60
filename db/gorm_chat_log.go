package db

import (
	"context"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
)

//CreateChatLog inserts a new chat log subscription
func (s *GormStore) CreateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error {
	return withRetry(ctx, func() error {
		cl.ID = 0
		return s.db.WithContext(ctx).Create(cl).Error
	})
}

//GetChatLog fetches a single chat log subscription
func (s *GormStore) GetChatLog(ctx context.Context, id uint) (*guildmodels.ChatLog, error) {
	var cl guildmodels.ChatLog
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&cl, id).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &cl, nil
}

//ListChatLogs returns the chat log subscriptions of a guild
func (s *GormStore) ListChatLogs(ctx context.Context, guildID string) ([]guildmodels.ChatLog, error) {
	var cls []guildmodels.ChatLog
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("id ASC").Find(&cls).Error
	})
	return cls, err
}

//ListAllChatLogs returns every chat log subscription across all guilds
func (s *GormStore) ListAllChatLogs(ctx context.Context) ([]guildmodels.ChatLog, error) {
	var cls []guildmodels.ChatLog
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Order("id ASC").Find(&cls).Error
	})
	return cls, err
}

//UpdateChatLog saves the editable fields of a chat log subscription
func (s *GormStore) UpdateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error {
	return withRetry(ctx, func() error {
		return affectedOne(s.db.WithContext(ctx).
			Model(&guildmodels.ChatLog{}).
			Where("id = ?", cl.ID).
			Updates(map[string]interface{}{
				"name":        cl.Name,
				"channel_id":  cl.ChannelID,
				"channel_key": cl.ChannelKey,
			}))
	})
}

//AdvanceChatLogCursor only ever moves the cursor forwards
func (s *GormStore) AdvanceChatLogCursor(ctx context.Context, id uint, messageID int64) (bool, error) {
	var moved bool
	err := withRetry(ctx, func() error {
		res := s.db.WithContext(ctx).
			Model(&guildmodels.ChatLog{}).
			Where("id = ? AND last_seen_message_id < ?", id, messageID).
			Update("last_seen_message_id", messageID)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected > 0
		return nil
	})
	return moved, err
}

//DeleteChatLog removes a chat log subscription
func (s *GormStore) DeleteChatLog(ctx context.Context, id uint) error {
	return withRetry(ctx, func() error {
		return affectedOne(s.db.WithContext(ctx).Delete(&guildmodels.ChatLog{}, id))
	})
}
