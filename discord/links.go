package discord

import (
	"regexp"
	"strings"
)

//Allows message links or channel:message id pairs
var messageRefRegex = regexp.MustCompile(`^(?:https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(\d+|@me)/(\d+)/(\d+)|(\d+)[:/-](\d+))$`)

var channelRefRegex = regexp.MustCompile(`^(?:<#(\d+)>|(\d+))$`)

var roleRefRegex = regexp.MustCompile(`^<@&(\d+)>$`)

//MessageRef identifies a message
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

//ParseMessageRef reads a message link or a `channel:message` id pair. GuildID is only set for links.
func ParseMessageRef(s string) (MessageRef, bool) {
	matches := messageRefRegex.FindStringSubmatch(strings.TrimSpace(s))
	switch {
	case matches == nil:
		return MessageRef{}, false
	case matches[3] != "":
		return MessageRef{GuildID: matches[1], ChannelID: matches[2], MessageID: matches[3]}, true
	default:
		return MessageRef{ChannelID: matches[4], MessageID: matches[5]}, true
	}
}

//ParseChannelRef reads a channel mention or id
func ParseChannelRef(s string) (string, bool) {
	matches := channelRefRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return "", false
	}
	if matches[1] != "" {
		return matches[1], true
	}
	return matches[2], true
}

//ParseRoleMention returns the id of a role mention
func ParseRoleMention(s string) (string, bool) {
	matches := roleRefRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return "", false
	}
	return matches[1], true
}
