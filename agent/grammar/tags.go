package grammar

import (
	"regexp"
	"strings"

	"github.com/OTFiles/CosmoSynthAI/types"
)

var (
	thinkPattern  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	systemPattern = regexp.MustCompile(`(?s)<system>(.*?)(?:<system/>|</system>)`)
	rejectPattern = regexp.MustCompile(`(?s)<reject>(.*?)(?:<reject/>|</reject>)`)

	// One or more leading [Channel] tags followed by single-line content.
	leadingTagsPattern = regexp.MustCompile(`^((?:\[[^\]\n]+\])+)(.+)$`)
	tagPattern         = regexp.MustCompile(`\[([^\]\n]+)\]`)
)

// Post is one channel-addressed piece of content.
type Post struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// ParsedMessage is the channel-addressed form of one agent turn.
type ParsedMessage struct {
	Posts         []Post   `json:"posts"`
	SystemNotices []string `json:"system_notices,omitempty"`
}

// Channels returns the distinct target channels in first-seen order.
func (m *ParsedMessage) Channels() []string {
	seen := make(map[string]struct{}, len(m.Posts))
	var out []string
	for _, p := range m.Posts {
		if _, ok := seen[p.Channel]; ok {
			continue
		}
		seen[p.Channel] = struct{}{}
		out = append(out, p.Channel)
	}
	return out
}

// Empty reports whether the message carries neither posts nor notices.
func (m *ParsedMessage) Empty() bool {
	return len(m.Posts) == 0 && len(m.SystemNotices) == 0
}

// StripThink removes every <think>...</think> span.
func StripThink(text string) string {
	return thinkPattern.ReplaceAllString(text, "")
}

// ExtractSystemNotices pulls <system> spans out of text and returns the
// trimmed notices together with the remaining text.
func ExtractSystemNotices(text string) ([]string, string) {
	var notices []string
	for _, m := range systemPattern.FindAllStringSubmatch(text, -1) {
		if n := strings.TrimSpace(m[1]); n != "" {
			notices = append(notices, n)
		}
	}
	return notices, strings.TrimSpace(systemPattern.ReplaceAllString(text, ""))
}

// Parse turns raw agent output into channel-addressed posts.
//
// Grammar, in priority order: drop <think> spans, extract <system> notices,
// then either leading [Channel] tags, a per-line split for multi-line text,
// or a broadcast to every channel in sendable. Parse does not check tagged
// channels against permissions; the router does that at publish time.
func Parse(raw string, sendable []string) (*ParsedMessage, error) {
	notices, text := ExtractSystemNotices(StripThink(raw))
	msg := &ParsedMessage{SystemNotices: notices}
	if text == "" {
		return msg, nil
	}
	posts, err := parseBody(text, sendable)
	if err != nil {
		return nil, err
	}
	msg.Posts = posts
	return msg, nil
}

func parseBody(text string, sendable []string) ([]Post, error) {
	if posts, ok := parseTagged(text); ok {
		return posts, nil
	}
	if strings.Contains(text, "\n") {
		var out []Post
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			posts, err := parseBody(line, sendable)
			if err != nil {
				return nil, err
			}
			out = append(out, posts...)
		}
		return out, nil
	}
	if len(sendable) == 0 {
		return nil, types.NewError(types.ErrNoSendPermission, "speaker has send permission on no channel")
	}
	out := make([]Post, 0, len(sendable))
	for _, ch := range sendable {
		out = append(out, Post{Channel: ch, Content: text})
	}
	return out, nil
}

func parseTagged(text string) ([]Post, bool) {
	m := leadingTagsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	content := strings.TrimSpace(m[2])
	var out []Post
	for _, tag := range tagPattern.FindAllStringSubmatch(m[1], -1) {
		out = append(out, Post{Channel: strings.TrimSpace(tag[1]), Content: content})
	}
	return out, true
}

// ParseVerdict scans a reviewer's reply for a reject tag. Reasoning inside
// <think> spans is ignored.
func ParseVerdict(reply string) (rejected bool, reason string) {
	m := rejectPattern.FindStringSubmatch(StripThink(reply))
	if m == nil {
		return false, ""
	}
	return true, strings.TrimSpace(m[1])
}
