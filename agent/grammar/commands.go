package grammar

import (
	"regexp"
	"strings"
)

// CommandKind identifies a typed in-band command.
type CommandKind string

const (
	KindCall              CommandKind = "call"
	KindListMembers       CommandKind = "list_members"
	KindSetPermissions    CommandKind = "set_permissions"
	KindAddToChannel      CommandKind = "add_to_channel"
	KindRemoveFromChannel CommandKind = "remove_from_channel"
	KindResetMemory       CommandKind = "reset_memory"
)

// Command is one recognized {{...}} marker.
type Command interface {
	Kind() CommandKind
}

// CallCommand is {{Call:<agent>}}.
type CallCommand struct {
	Target string
}

// ListMembersCommand is {{pd.l(<channel>)}}.
type ListMembersCommand struct {
	Channel string
}

// SetPermissionsCommand is {{pd.s(<channel>,<agent>,<json array>)}}.
// Permissions stays raw until the interpreter validates it.
type SetPermissionsCommand struct {
	Channel     string
	Agent       string
	Permissions string
}

// AddToChannelCommand is {{pd.a(<channel>,<agent>)}}.
type AddToChannelCommand struct {
	Channel string
	Agent   string
}

// RemoveFromChannelCommand is {{pd.d(<channel>,<agent>)}}.
type RemoveFromChannelCommand struct {
	Channel string
	Agent   string
}

// ResetMemoryCommand is {{ep.r(<agent>,<true|false>)}}.
type ResetMemoryCommand struct {
	Agent      string
	UseHistory bool
}

func (CallCommand) Kind() CommandKind              { return KindCall }
func (ListMembersCommand) Kind() CommandKind       { return KindListMembers }
func (SetPermissionsCommand) Kind() CommandKind    { return KindSetPermissions }
func (AddToChannelCommand) Kind() CommandKind      { return KindAddToChannel }
func (RemoveFromChannelCommand) Kind() CommandKind { return KindRemoveFromChannel }
func (ResetMemoryCommand) Kind() CommandKind       { return KindResetMemory }

type commandRule struct {
	pattern *regexp.Regexp
	build   func(args []string) Command
}

// Precedence order matters: the first rule that matches wins.
var commandRules = []commandRule{
	{
		pattern: regexp.MustCompile(`\{\{Call:([^\}]+)\}\}`),
		build:   func(a []string) Command { return CallCommand{Target: a[0]} },
	},
	{
		pattern: regexp.MustCompile(`\{\{pd\.l\(([^\)]+)\)\}\}`),
		build:   func(a []string) Command { return ListMembersCommand{Channel: a[0]} },
	},
	{
		pattern: regexp.MustCompile(`\{\{pd\.s\(([^,]+),([^,]+),([^\)]+)\)\}\}`),
		build: func(a []string) Command {
			return SetPermissionsCommand{Channel: a[0], Agent: a[1], Permissions: a[2]}
		},
	},
	{
		pattern: regexp.MustCompile(`\{\{pd\.a\(([^,]+),([^\)]+)\)\}\}`),
		build:   func(a []string) Command { return AddToChannelCommand{Channel: a[0], Agent: a[1]} },
	},
	{
		pattern: regexp.MustCompile(`\{\{pd\.d\(([^,]+),([^\)]+)\)\}\}`),
		build:   func(a []string) Command { return RemoveFromChannelCommand{Channel: a[0], Agent: a[1]} },
	},
	{
		pattern: regexp.MustCompile(`\{\{ep\.r\(([^,]+),([^\)]+)\)\}\}`),
		build: func(a []string) Command {
			return ResetMemoryCommand{Agent: a[0], UseHistory: strings.EqualFold(a[1], "true")}
		},
	},
}

// ParseCommand returns the highest-precedence command marker in raw, if any.
// Markers inside <think> spans are ignored. At most one command is returned.
func ParseCommand(raw string) (Command, bool) {
	cmds := ParseCommands(raw)
	if len(cmds) == 0 {
		return nil, false
	}
	return cmds[0], true
}

// ParseCommands returns the first marker of every command kind found in raw,
// in precedence order. Markers inside <think> spans are ignored.
func ParseCommands(raw string) []Command {
	text := StripThink(raw)
	var out []Command
	for _, rule := range commandRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		args := make([]string, len(m)-1)
		for i, g := range m[1:] {
			args[i] = strings.TrimSpace(g)
		}
		out = append(out, rule.build(args))
	}
	return out
}
