package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

//command is a parsed prefix command
type command struct {
	//Base command name including the prefix, e.g. `!rr`
	name string
	//Base command name without prefix, lower-cased
	key string
	//Subcommand, lower-cased; empty if none was given
	sub string
	//Remaining arguments after the subcommand
	args []string
	//Everything after the base command name, as typed
	body string
	//The entire text contents of the message
	raw string
}

//label is the command name used in responses
func (c command) label() string {
	if c.sub == "" {
		return c.name
	}
	return c.name + " " + c.sub
}

//rest joins every argument from index i on
func (c command) rest(i int) string {
	if i >= len(c.args) {
		return ""
	}
	return strings.Join(c.args[i:], " ")
}

//parseCommand splits a message into command, subcommand and arguments. Messages without the prefix are not
//commands.
func parseCommand(prefix, content string) (command, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return command{}, false
	}
	afterPrefix := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	words := strings.Fields(afterPrefix)
	if len(words) == 0 {
		return command{}, false
	}
	key := strings.ToLower(words[0])
	cmd := command{
		name: prefix + key,
		key:  key,
		body: strings.TrimSpace(strings.TrimPrefix(afterPrefix, words[0])),
		raw:  content,
	}
	if len(words) > 1 {
		cmd.sub = strings.ToLower(words[1])
		cmd.args = words[2:]
	}
	return cmd, true
}

//parseID reads the numeric id of a stored record
func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("`%v` is not a valid id", s)
	}
	return uint(id), nil
}

func messageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%v/%v/%v", guildID, channelID, messageID)
}

//truncate shortens s to at most max runes
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
