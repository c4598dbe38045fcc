package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/types"
)

const (
	ModeStream   = "stream"
	ModeBlocking = "blocking"
)

// Validate 验证配置；任何错误都是 CONFIG_INVALID，应在启动时终止进程
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("unknown log level %q", c.Log.Level)
	}

	if c.Loop.TurnInterval < 0 || c.Loop.IdleBackoff < 0 {
		add("loop intervals must not be negative")
	}
	if c.Loop.MaxRounds < 0 {
		add("max_rounds must not be negative")
	}
	if c.Loop.HistoryWindow <= 0 {
		add("history_window must be positive")
	}
	if c.Loop.MemoryWindow <= 0 {
		add("memory_window must be positive")
	}
	if c.Loop.MaxMessageLength <= 0 {
		add("max_message_length must be positive")
	}
	if c.Snapshot.EveryRounds < 0 {
		add("snapshot every_rounds must not be negative")
	}
	switch c.Snapshot.Store.Type {
	case persistence.StoreTypeMemory, persistence.StoreTypeFile, persistence.StoreTypeRedis:
	default:
		add("unknown snapshot store type %q", c.Snapshot.Store.Type)
	}

	endpoints := make(map[string]struct{}, len(c.Endpoints))
	if len(c.Endpoints) == 0 {
		add("at least one endpoint is required")
	}
	for i, ep := range c.Endpoints {
		if ep.Name == "" {
			add("endpoint #%d has no name", i)
			continue
		}
		if _, dup := endpoints[ep.Name]; dup {
			add("duplicate endpoint %q", ep.Name)
		}
		endpoints[ep.Name] = struct{}{}
		if ep.BaseURL == "" {
			add("endpoint %q has no base_url", ep.Name)
		}
		if ep.Mode != ModeStream && ep.Mode != ModeBlocking {
			add("endpoint %q has unknown mode %q", ep.Name, ep.Mode)
		}
		if ep.MaxRetries < 0 {
			add("endpoint %q max_retries must not be negative", ep.Name)
		}
	}

	topo := c.Topology
	if len(topo.Agents) == 0 {
		add("at least one agent is required")
	}
	for _, id := range sortedAgentIDs(topo.Agents) {
		a := topo.Agents[id]
		if _, ok := endpoints[a.Endpoint]; !ok {
			add("agent %q references unknown endpoint %q", id, a.Endpoint)
		}
		for ch, perms := range a.Channels {
			if ch == "" {
				add("agent %q has an empty channel name", id)
			}
			if _, err := topology.ParsePermissions(perms); err != nil {
				add("agent %q channel %q: %v", id, ch, err)
			}
		}
		if a.Moderator != "" {
			if _, ok := topo.Agents[a.Moderator]; !ok {
				add("agent %q references unknown moderator %q", id, a.Moderator)
			}
		}
		if r := a.Regeneration; r != nil && r.GeneratorID != nil && *r.GeneratorID < 0 {
			add("agent %q generator_id must not be negative", id)
		}
	}

	known := func(role, id string) {
		if id == "" {
			return
		}
		if _, ok := topo.Agents[id]; !ok {
			add("%s %q is not a configured agent", role, id)
		}
	}
	known("channel_admin", topo.ChannelAdmin)
	known("memory_admin", topo.MemoryAdmin)
	for _, id := range topo.AllowedCallers {
		known("allowed caller", id)
	}
	for _, id := range topo.Excluded {
		known("excluded agent", id)
	}

	genIDs := make(map[int]struct{}, len(topo.Generators))
	for _, g := range topo.Generators {
		if g.ID < 0 {
			add("generator id %d must not be negative", g.ID)
		}
		if _, dup := genIDs[g.ID]; dup {
			add("duplicate generator id %d", g.ID)
		}
		genIDs[g.ID] = struct{}{}
		known(fmt.Sprintf("generator %d agent", g.ID), g.Agent)
		if g.Agent == "" {
			add("generator %d has no agent", g.ID)
		}
	}
	if topo.RotationFrequency <= 0 {
		add("rotation_frequency must be positive")
	}

	if len(errs) > 0 {
		return types.Errorf(types.ErrConfigInvalid, "config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BuildTopology 将拓扑配置转换为 topology.Store
func (c *Config) BuildTopology() (*topology.Store, error) {
	topo := c.Topology
	agents := make([]topology.Agent, 0, len(topo.Agents))
	for _, id := range sortedAgentIDs(topo.Agents) {
		ac := topo.Agents[id]
		a := topology.Agent{
			ID:           id,
			Instructions: ac.Instructions,
			Endpoint:     ac.Endpoint,
			Channels:     make(map[string]topology.PermissionSet, len(ac.Channels)),
			Moderator:    ac.Moderator,
		}
		for ch, names := range ac.Channels {
			perms, err := topology.ParsePermissions(names)
			if err != nil {
				return nil, types.Errorf(types.ErrConfigInvalid, "agent %q channel %q", id, ch).WithCause(err)
			}
			a.Channels[ch] = perms
		}
		if r := ac.Regeneration; r != nil {
			a.Regeneration = &topology.Regeneration{
				Enabled:     r.Enabled,
				GeneratorID: r.GeneratorID,
				SeedPrompt:  r.SeedPrompt,
			}
		}
		agents = append(agents, a)
	}

	generators := make([]topology.Generator, 0, len(topo.Generators))
	for _, g := range topo.Generators {
		generators = append(generators, topology.Generator{ID: g.ID, Agent: g.Agent, SourceChannel: g.SourceChannel})
	}

	return topology.NewStore(agents, topology.Settings{
		ChannelAdmin:      topo.ChannelAdmin,
		MemoryAdmin:       topo.MemoryAdmin,
		AllowedCallers:    append([]string(nil), topo.AllowedCallers...),
		Excluded:          append([]string(nil), topo.Excluded...),
		Generators:        generators,
		OpeningSpeech:     topo.OpeningSpeech,
		RotationFrequency: topo.RotationFrequency,
	})
}

func sortedAgentIDs(agents map[string]AgentConfig) []string {
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
