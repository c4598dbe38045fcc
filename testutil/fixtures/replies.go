package fixtures

import (
	"fmt"
	"strings"
)

// Tagged 用前置频道标签寻址一段内容
func Tagged(content string, channels ...string) string {
	var b strings.Builder
	for _, ch := range channels {
		fmt.Fprintf(&b, "[%s]", ch)
	}
	b.WriteString(content)
	return b.String()
}

// Thinking 在回复前附加一段思考内容
func Thinking(thought, reply string) string {
	return "<think>" + thought + "</think>" + reply
}

// Reject 是审核员的拒绝回复
func Reject(reason string) string {
	return "<reject>" + reason + "<reject/>"
}

// Call 是 {{Call:<agent>}} 命令
func Call(agent string) string {
	return "{{Call:" + agent + "}}"
}

// ListMembers 是 {{pd.l(<channel>)}} 命令
func ListMembers(channel string) string {
	return "{{pd.l(" + channel + ")}}"
}

