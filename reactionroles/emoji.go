package reactionroles

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/bwmarrin/discordgo"
)

var customEmojiRegex = regexp.MustCompile(`^<(a?):([^:<>\s]+):(\d+)>$`)

const variationSelector = "\ufe0f"

//Emoji is either a unicode emoji (ID empty) or a custom guild emoji
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

//ParseEmoji reads the stored or user-typed form of an emoji: `<:name:id>`, `<a:name:id>` or a unicode emoji
func ParseEmoji(s string) (Emoji, error) {
	s = strings.TrimSpace(s)
	if matches := customEmojiRegex.FindStringSubmatch(s); matches != nil {
		return Emoji{ID: matches[3], Name: matches[2], Animated: matches[1] == "a"}, nil
	}
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 || len([]rune(s)) > 10 {
		return Emoji{}, invalid(ErrInvalidEmoji, "`%v` is not an emoji", s)
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return Emoji{Name: s}, nil
		}
	}
	return Emoji{}, invalid(ErrInvalidEmoji, "`%v` is not an emoji", s)
}

//IsCustom returns true for guild emoji
func (e Emoji) IsCustom() bool {
	return e.ID != ""
}

//String returns the form stored on a reaction role and usable in message text
func (e Emoji) String() string {
	if !e.IsCustom() {
		return e.Name
	}
	prefix := ""
	if e.Animated {
		prefix = "a"
	}
	return fmt.Sprintf("<%v:%v:%v>", prefix, e.Name, e.ID)
}

//APIName returns the token the reaction endpoints expect
func (e Emoji) APIName() string {
	if e.IsCustom() {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

//Matches compares against the emoji of a reaction event: custom emoji by id, unicode emoji by name
func (e Emoji) Matches(other *discordgo.Emoji) bool {
	if other == nil {
		return false
	}
	if e.IsCustom() || other.ID != "" {
		return e.ID == other.ID
	}
	return strings.ReplaceAll(e.Name, variationSelector, "") == strings.ReplaceAll(other.Name, variationSelector, "")
}

//ResolveEmoji parses an emoji and makes sure a custom emoji belongs to the guild
func ResolveEmoji(api discord.API, guildID, s string) (Emoji, error) {
	e, err := ParseEmoji(s)
	if err != nil {
		return Emoji{}, err
	}
	if !e.IsCustom() {
		return e, nil
	}
	guildEmoji, err := api.GuildEmoji(guildID, e.ID)
	if err != nil {
		if discord.IsUnknownResource(err) {
			return Emoji{}, invalid(ErrInvalidEmoji, "emoji %v does not belong to this server", e)
		}
		return Emoji{}, fmt.Errorf("looking up emoji %v: %w", e.ID, err)
	}
	e.Name = guildEmoji.Name
	e.Animated = e.Animated || guildEmoji.Animated
	return e, nil
}
