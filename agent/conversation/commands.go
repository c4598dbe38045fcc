package conversation

import (
	"fmt"
	"strings"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Command statuses reported to metrics.
const (
	CommandOK     = "ok"
	CommandDenied = "denied"
	CommandFailed = "failed"
)

// CommandResult is the outcome of one interpreted command.
type CommandResult struct {
	Kind    grammar.CommandKind
	Status  string
	Message string
	Err     error
}

// Execute authorizes and runs cmd on behalf of speaker. The speaker always
// gets a private notice with the result or the error. Successful
// administrative commands re-enqueue the speaker at tier A.
func (c *Conversation) Execute(speaker string, cmd grammar.Command) CommandResult {
	res := CommandResult{Kind: cmd.Kind()}
	log := c.logger.With(zap.String("agent", speaker), zap.String("command", string(cmd.Kind())))

	if err := c.authorize(speaker, cmd); err != nil {
		res.Status, res.Err = CommandDenied, err
		log.Warn("command rejected", zap.Error(err))
		c.notify(speaker, "command rejected: "+errorText(err))
		c.recorder.RecordCommand(string(res.Kind), res.Status)
		return res
	}

	msg, err := c.run(speaker, cmd)
	if err != nil {
		res.Status, res.Err = CommandFailed, err
		log.Warn("command failed", zap.Error(err))
		c.notify(speaker, "command failed: "+errorText(err))
		c.recorder.RecordCommand(string(res.Kind), res.Status)
		return res
	}

	res.Status, res.Message = CommandOK, msg
	log.Info("command executed", zap.String("result", msg))
	c.notify(speaker, msg)
	if cmd.Kind() != grammar.KindCall {
		c.Enqueue(speaker, TierA, "follow-up to "+string(cmd.Kind()))
	}
	c.recorder.RecordCommand(string(res.Kind), res.Status)
	return res
}

// pickCommand returns the highest-precedence command speaker may issue.
// When none is authorized it returns the highest-precedence one and false.
func (c *Conversation) pickCommand(speaker string, cmds []grammar.Command) (grammar.Command, bool) {
	for _, cmd := range cmds {
		if c.authorize(speaker, cmd) == nil {
			return cmd, true
		}
	}
	return cmds[0], false
}

func (c *Conversation) authorize(speaker string, cmd grammar.Command) error {
	settings := c.topo.Settings()
	var allowed bool
	switch cmd.Kind() {
	case grammar.KindCall:
		allowed = c.topo.IsAllowedCaller(speaker)
	case grammar.KindResetMemory:
		allowed = settings.MemoryAdmin != "" && speaker == settings.MemoryAdmin
	default:
		allowed = settings.ChannelAdmin != "" && speaker == settings.ChannelAdmin
	}
	if !allowed {
		return types.Errorf(types.ErrPermissionDenied, "%s may not issue %s", speaker, cmd.Kind()).WithAgent(speaker)
	}
	return nil
}

func (c *Conversation) run(speaker string, cmd grammar.Command) (string, error) {
	switch cmd := cmd.(type) {
	case grammar.CallCommand:
		return c.call(speaker, cmd.Target)
	case grammar.ListMembersCommand:
		return c.listMembers(cmd.Channel)
	case grammar.SetPermissionsCommand:
		return c.setPermissions(cmd)
	case grammar.AddToChannelCommand:
		if err := c.topo.AddMember(cmd.Channel, cmd.Agent); err != nil {
			return "", err
		}
		c.notify(cmd.Agent, fmt.Sprintf("you were added to channel %q with permissions %s",
			cmd.Channel, c.topo.Permissions(cmd.Agent, cmd.Channel)))
		return fmt.Sprintf("added %s to channel %q", cmd.Agent, cmd.Channel), nil
	case grammar.RemoveFromChannelCommand:
		if err := c.topo.RemoveMember(cmd.Channel, cmd.Agent); err != nil {
			return "", err
		}
		c.notify(cmd.Agent, fmt.Sprintf("you were removed from channel %q", cmd.Channel))
		return fmt.Sprintf("removed %s from channel %q", cmd.Agent, cmd.Channel), nil
	case grammar.ResetMemoryCommand:
		return c.resetMemory(cmd.Agent, cmd.UseHistory)
	default:
		return "", types.Errorf(types.ErrInvalidCommand, "unsupported command %s", cmd.Kind())
	}
}

func (c *Conversation) call(caller, target string) (string, error) {
	if !c.topo.HasAgent(target) {
		return "", types.Errorf(types.ErrUnknownAgent, "agent %q is not defined", target).WithAgent(target)
	}
	c.Enqueue(target, TierB, "called by "+caller)
	c.notify(target, fmt.Sprintf("%s called you to speak next", caller))
	return fmt.Sprintf("called %s", target), nil
}

func (c *Conversation) listMembers(channel string) (string, error) {
	members, err := c.topo.Members(channel)
	if err != nil {
		return "", err
	}
	if len(members) == 0 {
		return fmt.Sprintf("channel %q has no members", channel), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "members of channel %q:", channel)
	for _, id := range c.topo.AgentIDs() {
		if perms, ok := members[id]; ok {
			fmt.Fprintf(&b, "\n%s: %s", id, perms)
		}
	}
	return b.String(), nil
}

func (c *Conversation) setPermissions(cmd grammar.SetPermissionsCommand) (string, error) {
	if !c.topo.HasChannel(cmd.Channel) {
		return "", types.Errorf(types.ErrUnknownChannel, "channel %q does not exist", cmd.Channel)
	}
	if !c.topo.HasAgent(cmd.Agent) {
		return "", types.Errorf(types.ErrUnknownAgent, "agent %q is not defined", cmd.Agent).WithAgent(cmd.Agent)
	}
	perms, err := topology.ParsePermissionsJSON(cmd.Permissions)
	if err != nil {
		return "", err
	}
	if err := c.topo.SetPermissions(cmd.Channel, cmd.Agent, perms); err != nil {
		return "", err
	}
	c.notify(cmd.Agent, fmt.Sprintf("your permissions on channel %q are now %s", cmd.Channel, perms))
	return fmt.Sprintf("set permissions of %s on %q to %s", cmd.Agent, cmd.Channel, perms), nil
}

// resetMemory replaces target's transcript with a fresh system entry built
// from its base instructions, optionally followed by its recent memory.
func (c *Conversation) resetMemory(target string, useHistory bool) (string, error) {
	agent, err := c.topo.Agent(target)
	if err != nil {
		return "", err
	}
	instructions := agent.Instructions
	if useHistory {
		if recent := types.RenderMessages(c.recentDialogue(target, c.cfg.MemoryWindow)); recent != "" {
			instructions += "\n\nRecent conversation:\n" + recent
		}
	}
	c.resetTranscript(target, instructions)
	return fmt.Sprintf("reset memory of %s (history: %t)", target, useHistory), nil
}

func errorText(err error) string {
	if te, ok := types.AsError(err); ok {
		return te.Message
	}
	return err.Error()
}
