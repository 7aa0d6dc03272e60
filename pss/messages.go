package pss

import (
	"fmt"
	"strconv"
	"time"
)

const apiDateLayout = "2006-01-02T15:04:05"

//Message is one chat message of a game channel
type Message struct {
	ID        int64
	UserID    int64
	UserName  string
	FleetName string
	Text      string
	Date      time.Time
}

func messageFromAttrs(attrs map[string]string) (Message, error) {
	id, err := strconv.ParseInt(attrs["MessageId"], 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("bad MessageId %q: %w", attrs["MessageId"], err)
	}
	msg := Message{
		ID:        id,
		UserName:  attrs["UserName"],
		FleetName: attrs["AllianceName"],
		Text:      attrs["Message"],
	}
	if uid, err := strconv.ParseInt(attrs["UserId"], 10, 64); err == nil {
		msg.UserID = uid
	}
	if date, err := time.Parse(apiDateLayout, attrs["MessageDate"]); err == nil {
		msg.Date = date
	}
	return msg, nil
}
