package conversation

import (
	"testing"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/testutil"
	"github.com/OTFiles/CosmoSynthAI/testutil/fixtures"
	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminSettings() topology.Settings {
	s := fixtures.DefaultSettings()
	s.ChannelAdmin = "alice"
	s.MemoryAdmin = "alice"
	s.AllowedCallers = []string{"bob"}
	return s
}

func TestExecute_Call(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)

	res := c.Execute("bob", grammar.CallCommand{Target: "carol"})
	require.NoError(t, res.Err)
	assert.Equal(t, CommandOK, res.Status)

	tasks := c.PendingTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, PriorityTask{Tier: TierB, Agent: "carol", Reason: "called by bob"}, tasks[0])
	assert.Equal(t, "bob called you to speak next", lastEntry(c, "carol").Content)
	assert.Equal(t, "called carol", lastEntry(c, "bob").Content)
}

func TestExecute_CallUnknownAgent(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)

	res := c.Execute("bob", grammar.CallCommand{Target: "ghost"})
	assert.Equal(t, CommandFailed, res.Status)
	testutil.AssertErrorCode(t, res.Err, types.ErrUnknownAgent)
	assert.Equal(t, 0, c.QueueDepth())
	assert.Contains(t, lastEntry(c, "bob").Content, "command failed")
}

func TestExecute_Unauthorized(t *testing.T) {
	tests := []struct {
		name    string
		speaker string
		cmd     grammar.Command
	}{
		{"call", "alice", grammar.CallCommand{Target: "bob"}},
		{"list", "bob", grammar.ListMembersCommand{Channel: "general"}},
		{"set", "bob", grammar.SetPermissionsCommand{Channel: "general", Agent: "bob", Permissions: `["send"]`}},
		{"add", "bob", grammar.AddToChannelCommand{Channel: "general", Agent: "carol"}},
		{"remove", "bob", grammar.RemoveFromChannelCommand{Channel: "general", Agent: "alice"}},
		{"reset", "bob", grammar.ResetMemoryCommand{Agent: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConversation(t, trio(t, adminSettings()), nil)
			before := c.Topology().State()

			res := c.Execute(tt.speaker, tt.cmd)
			assert.Equal(t, CommandDenied, res.Status)
			testutil.AssertErrorCode(t, res.Err, types.ErrPermissionDenied)
			assert.Equal(t, before, c.Topology().State())
			assert.Equal(t, 0, c.QueueDepth())
			assert.Contains(t, lastEntry(c, tt.speaker).Content, "command rejected")
		})
	}
}

func TestExecute_ListMembers(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)

	res := c.Execute("alice", grammar.ListMembersCommand{Channel: "general"})
	require.NoError(t, res.Err)
	assert.Equal(t, "members of channel \"general\":\nalice: [receive,send]\nbob: [receive,send]", res.Message)
	assert.Equal(t, res.Message, lastEntry(c, "alice").Content)

	tasks := c.PendingTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TierA, tasks[0].Tier)
	assert.Equal(t, "alice", tasks[0].Agent)

	res = c.Execute("alice", grammar.ListMembersCommand{Channel: "nowhere"})
	testutil.AssertErrorCode(t, res.Err, types.ErrUnknownChannel)
}

func TestExecute_SetPermissions(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)

	res := c.Execute("alice", grammar.SetPermissionsCommand{Channel: "general", Agent: "bob", Permissions: `["receive"]`})
	require.NoError(t, res.Err)
	assert.False(t, c.Topology().CanSend("bob", "general"))
	assert.True(t, c.Topology().CanReceive("bob", "general"))
	assert.Equal(t, `your permissions on channel "general" are now [receive]`, lastEntry(c, "bob").Content)
}

func TestExecute_SetPermissionsRejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name string
		cmd  grammar.SetPermissionsCommand
		code types.ErrorCode
	}{
		{"invalid value", grammar.SetPermissionsCommand{Channel: "general", Agent: "bob", Permissions: `["send","delete"]`}, types.ErrInvalidPermission},
		{"not json", grammar.SetPermissionsCommand{Channel: "general", Agent: "bob", Permissions: `send`}, types.ErrInvalidPermission},
		{"unknown channel", grammar.SetPermissionsCommand{Channel: "void", Agent: "bob", Permissions: `["send"]`}, types.ErrUnknownChannel},
		{"unknown agent", grammar.SetPermissionsCommand{Channel: "general", Agent: "ghost", Permissions: `["send"]`}, types.ErrUnknownAgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConversation(t, trio(t, adminSettings()), nil)
			before := c.Topology().State()

			res := c.Execute("alice", tt.cmd)
			assert.Equal(t, CommandFailed, res.Status)
			testutil.AssertErrorCode(t, res.Err, tt.code)
			assert.Equal(t, before, c.Topology().State())
			assert.Equal(t, 0, c.QueueDepth())
		})
	}
}

func TestExecute_AddAndRemove(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)
	topo := c.Topology()

	res := c.Execute("alice", grammar.AddToChannelCommand{Channel: "general", Agent: "carol"})
	require.NoError(t, res.Err)
	assert.Equal(t, fixtures.RecvOnly, topo.Permissions("carol", "general"))
	assert.Contains(t, lastEntry(c, "carol").Content, "added to channel \"general\"")

	res = c.Execute("alice", grammar.AddToChannelCommand{Channel: "general", Agent: "carol"})
	testutil.AssertErrorCode(t, res.Err, types.ErrAlreadyMember)

	res = c.Execute("alice", grammar.RemoveFromChannelCommand{Channel: "ops", Agent: "carol"})
	require.NoError(t, res.Err)
	res = c.Execute("alice", grammar.RemoveFromChannelCommand{Channel: "ops", Agent: "alice"})
	require.NoError(t, res.Err)
	assert.True(t, topo.HasChannel("ops"))
	assert.Empty(t, topo.Receivers("ops"))

	res = c.Execute("alice", grammar.RemoveFromChannelCommand{Channel: "ops", Agent: "alice"})
	testutil.AssertErrorCode(t, res.Err, types.ErrNotMember)

	res = c.Execute("alice", grammar.AddToChannelCommand{Channel: "ops", Agent: "bob"})
	require.NoError(t, res.Err)
	assert.True(t, topo.CanReceive("bob", "ops"))

	assert.Equal(t, 4, c.QueueDepth())
}

func TestExecute_ResetMemory(t *testing.T) {
	c := newTestConversation(t, trio(t, adminSettings()), nil)
	c.Distribute("alice", &grammar.ParsedMessage{Posts: []grammar.Post{{Channel: "general", Content: "hello bob"}}})
	c.Distribute("bob", &grammar.ParsedMessage{Posts: []grammar.Post{{Channel: "general", Content: "hello alice"}}})
	require.Len(t, c.Transcript("bob"), 3)

	res := c.Execute("alice", grammar.ResetMemoryCommand{Agent: "bob", UseHistory: false})
	require.NoError(t, res.Err)
	bob := c.Transcript("bob")
	require.Len(t, bob, 1)
	assert.Equal(t, types.NewSystemMessage("You are Bob.").Content, bob[0].Content)

	c.Distribute("alice", &grammar.ParsedMessage{Posts: []grammar.Post{{Channel: "general", Content: "again"}}})
	res = c.Execute("alice", grammar.ResetMemoryCommand{Agent: "bob", UseHistory: true})
	require.NoError(t, res.Err)
	bob = c.Transcript("bob")
	require.Len(t, bob, 1)
	assert.Equal(t, types.RoleSystem, bob[0].Role)
	assert.Contains(t, bob[0].Content, "You are Bob.")
	assert.Contains(t, bob[0].Content, "user: [general] again")

	res = c.Execute("alice", grammar.ResetMemoryCommand{Agent: "ghost"})
	testutil.AssertErrorCode(t, res.Err, types.ErrUnknownAgent)
}
