package chatlog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/pss"
)

//MaxPostLength is the longest message discord accepts
const MaxPostLength = 2000

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	//A zero width space after @ stops @everyone, @here and <@id> from resolving
	"@", "@\u200b",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

//Escape neutralises markdown and mentions in text coming from the game
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

//FormatMessage renders one game message as a single line
func FormatMessage(m pss.Message) string {
	author := Escape(m.UserName)
	if m.FleetName != "" {
		author = fmt.Sprintf("%v (%v)", author, Escape(m.FleetName))
	}
	return truncate(fmt.Sprintf("**%v**: %v", author, Escape(m.Text)), MaxPostLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

//Post is a discord message made of one or more formatted lines
type Post struct {
	Content string
	//LastID is the id of the newest game message in the post
	LastID int64
}

//BuildPosts packs messages, which must be sorted by id, into as few posts as fit the discord length limit
func BuildPosts(msgs []pss.Message) []Post {
	var posts []Post
	var current strings.Builder
	currentLen := 0
	var lastID int64
	flush := func() {
		if currentLen == 0 {
			return
		}
		posts = append(posts, Post{Content: current.String(), LastID: lastID})
		current.Reset()
		currentLen = 0
	}
	for _, m := range msgs {
		line := FormatMessage(m)
		lineLen := utf8.RuneCountInString(line)
		if currentLen > 0 && currentLen+1+lineLen > MaxPostLength {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n")
			currentLen++
		}
		current.WriteString(line)
		currentLen += lineLen
		lastID = m.ID
	}
	flush()
	return posts
}
