package grammar

import (
	"testing"

	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		sendable []string
		want     []Post
		notices  []string
	}{
		{
			name: "multiple leading tags",
			raw:  "[general][ops]hello",
			want: []Post{{Channel: "general", Content: "hello"}, {Channel: "ops", Content: "hello"}},
		},
		{
			name: "single tag trims content",
			raw:  "[general]   hello there  ",
			want: []Post{{Channel: "general", Content: "hello there"}},
		},
		{
			name: "multi-line fan out",
			raw:  "[a]x\n[b]y",
			want: []Post{{Channel: "a", Content: "x"}, {Channel: "b", Content: "y"}},
		},
		{
			name:     "multi-line skips blank lines and broadcasts untagged lines",
			raw:      "[a]x\n\n  \nplain",
			sendable: []string{"general"},
			want:     []Post{{Channel: "a", Content: "x"}, {Channel: "general", Content: "plain"}},
		},
		{
			name:     "untagged broadcast",
			raw:      "good morning everyone",
			sendable: []string{"general", "ops"},
			want: []Post{
				{Channel: "general", Content: "good morning everyone"},
				{Channel: "ops", Content: "good morning everyone"},
			},
		},
		{
			name:     "think span removed",
			raw:      "<think>internal</think>visible",
			sendable: []string{"general"},
			want:     []Post{{Channel: "general", Content: "visible"}},
		},
		{
			name:     "multi-line think span removed",
			raw:      "<think>line one\nline two</think>[ops]done",
			sendable: []string{"general"},
			want:     []Post{{Channel: "ops", Content: "done"}},
		},
		{
			name:     "system notice with trailing slash closer",
			raw:      "hello <system>restart at noon<system/>",
			sendable: []string{"general"},
			want:     []Post{{Channel: "general", Content: "hello"}},
			notices:  []string{"restart at noon"},
		},
		{
			name:    "system notice with closing tag and no body",
			raw:     "<system> maintenance </system>",
			notices: []string{"maintenance"},
		},
		{
			name: "only reasoning",
			raw:  "<think>nothing to say</think>   ",
		},
		{
			name: "tagged content does not need send channels",
			raw:  "[general]hi",
			want: []Post{{Channel: "general", Content: "hi"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.raw, tt.sendable)
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Posts)
			assert.Equal(t, tt.notices, msg.SystemNotices)
		})
	}
}

func TestParse_NoSendPermission(t *testing.T) {
	_, err := Parse("nobody hears me", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNoSendPermission, types.GetErrorCode(err))

	_, err = Parse("[a]ok\nbut this line is untagged", nil)
	assert.Equal(t, types.ErrNoSendPermission, types.GetErrorCode(err))
}

func TestParsedMessage_Channels(t *testing.T) {
	msg, err := Parse("[a][b]x\n[b]y\n[c]z", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, msg.Channels())
	assert.False(t, msg.Empty())

	empty, err := Parse("", nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		reply    string
		rejected bool
		reason   string
	}{
		{reply: "<reject>too risky<reject/>", rejected: true, reason: "too risky"},
		{reply: "Verdict: <reject>\n off topic \n</reject>", rejected: true, reason: "off topic"},
		{reply: "looks fine to me", rejected: false},
		{reply: "<think><reject>maybe<reject/></think>approved", rejected: false},
		{reply: "<reject>unterminated", rejected: false},
	}
	for _, tt := range tests {
		rejected, reason := ParseVerdict(tt.reply)
		assert.Equal(t, tt.rejected, rejected, tt.reply)
		assert.Equal(t, tt.reason, reason, tt.reply)
	}
}
