package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content string
		ok      bool
		key     string
		sub     string
		args    []string
		body    string
	}{
		{"!rr list active", true, "rr", "list", []string{"active"}, "list active"},
		{"  !ReactionRole   Activate 3 ", true, "reactionrole", "activate", []string{"3"}, "Activate 3"},
		{"!addadminrole \"Fleet Officer\"", true, "addadminrole", "\"fleet", []string{"Officer\""}, "\"Fleet Officer\""},
		{"!chatlog", true, "chatlog", "", nil, ""},
		{"rr list", false, "", "", nil, ""},
		{"!", false, "", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			cmd, ok := parseCommand("!", tt.content)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.key, cmd.key)
			assert.Equal(t, "!"+tt.key, cmd.name)
			assert.Equal(t, tt.sub, cmd.sub)
			assert.Equal(t, tt.args, cmd.args)
			assert.Equal(t, tt.body, cmd.body)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	assert.EqualValues(t, 12, id)
	id, err = parseID("#7")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
}
