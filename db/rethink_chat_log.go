package db

import (
	"context"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

//CreateChatLog inserts a new chat log subscription
func (s *RethinkStore) CreateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	id, err := s.nextID(chatLogsTable)
	if err != nil {
		return err
	}
	cl.ID = id
	return s.insert(chatLogsTable, cl)
}

//GetChatLog fetches a single chat log subscription
func (s *RethinkStore) GetChatLog(ctx context.Context, id uint) (*guildmodels.ChatLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var cl guildmodels.ChatLog
	if err := s.getOne(chatLogsTable, id, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

//ListChatLogs returns the chat log subscriptions of a guild
func (s *RethinkStore) ListChatLogs(ctx context.Context, guildID string) ([]guildmodels.ChatLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var cls []guildmodels.ChatLog
	err := s.all(rethink.Table(chatLogsTable).Filter(map[string]interface{}{"guild_id": guildID}).OrderBy("id"), &cls)
	if err != nil {
		logrus.Warnf("Failed to enumerate chat logs of guild %v due to error %v", guildID, err)
		return nil, err
	}
	return cls, nil
}

//ListAllChatLogs returns every chat log subscription across all guilds
func (s *RethinkStore) ListAllChatLogs(ctx context.Context) ([]guildmodels.ChatLog, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var cls []guildmodels.ChatLog
	if err := s.all(rethink.Table(chatLogsTable).OrderBy("id"), &cls); err != nil {
		logrus.Warnf("Failed to enumerate chat logs due to error %v", err)
		return nil, err
	}
	return cls, nil
}

//UpdateChatLog saves the editable fields of a chat log subscription
func (s *RethinkStore) UpdateChatLog(ctx context.Context, cl *guildmodels.ChatLog) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(chatLogsTable).Get(cl.ID).Update(map[string]interface{}{
		"name":        cl.Name,
		"channel_id":  cl.ChannelID,
		"channel_key": cl.ChannelKey,
	}).RunWrite(s.session))
}

//AdvanceChatLogCursor only ever moves the cursor forwards
func (s *RethinkStore) AdvanceChatLogCursor(ctx context.Context, id uint, messageID int64) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	resp, err := rethink.Table(chatLogsTable).Get(id).Update(func(row rethink.Term) interface{} {
		return rethink.Branch(
			row.Field("last_seen_message_id").Lt(messageID),
			map[string]interface{}{"last_seen_message_id": messageID},
			map[string]interface{}{},
		)
	}).RunWrite(s.session)
	if err := writeErr(resp, err); err != nil {
		return false, err
	}
	return resp.Replaced > 0, nil
}

//DeleteChatLog removes a chat log subscription
func (s *RethinkStore) DeleteChatLog(ctx context.Context, id uint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(chatLogsTable).Get(id).Delete().RunWrite(s.session))
}
