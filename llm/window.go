package llm

import (
	"github.com/OTFiles/CosmoSynthAI/types"
)

// TruncationMarker 追加在被截断的 user 消息末尾
const TruncationMarker = "\n...(message too long, truncated)"

// PrepareMessages 生成实际发送的消息窗口：保留开头的 system 消息，
// 其余只保留最近 window 条；超过 maxLen 个字符的 user 消息被截断。
// window 或 maxLen 不大于 0 时对应规则不生效。输入不会被修改。
func PrepareMessages(msgs []types.Message, window, maxLen int) []types.Message {
	var head []types.Message
	rest := msgs
	if len(rest) > 0 && rest[0].Role == types.RoleSystem {
		head = rest[:1]
		rest = rest[1:]
	}
	if window > 0 && len(rest) > window {
		rest = rest[len(rest)-window:]
	}

	out := make([]types.Message, 0, len(head)+len(rest))
	out = append(out, head...)
	for _, m := range rest {
		if m.Role == types.RoleUser && maxLen > 0 {
			m.Content = truncateRunes(m.Content, maxLen)
		}
		out = append(out, m)
	}
	return out
}

func truncateRunes(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + TruncationMarker
}
