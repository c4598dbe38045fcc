package topology

import (
	"sort"

	"github.com/OTFiles/CosmoSynthAI/types"
)

// Regeneration is an agent's opt-in policy for periodic instruction rewriting.
type Regeneration struct {
	Enabled     bool   `json:"enabled"`
	GeneratorID *int   `json:"generator_id,omitempty"`
	SeedPrompt  string `json:"seed_prompt"`
}

// Agent is one configured participant.
type Agent struct {
	ID           string                   `json:"id"`
	Instructions string                   `json:"instructions"`
	Endpoint     string                   `json:"endpoint"`
	Channels     map[string]PermissionSet `json:"channels"`
	Moderator    string                   `json:"moderator,omitempty"`
	Regeneration *Regeneration            `json:"regeneration,omitempty"`
}

func (a Agent) clone() Agent {
	out := a
	out.Channels = make(map[string]PermissionSet, len(a.Channels))
	for ch, perms := range a.Channels {
		out.Channels[ch] = perms
	}
	if a.Regeneration != nil {
		r := *a.Regeneration
		out.Regeneration = &r
	}
	return out
}

// Generator designates an agent that writes replacement instructions.
type Generator struct {
	ID            int    `json:"id"`
	Agent         string `json:"agent"`
	SourceChannel string `json:"source_channel,omitempty"`
}

// Settings are the global designations of the topology.
type Settings struct {
	ChannelAdmin      string
	MemoryAdmin       string
	AllowedCallers    []string
	Excluded          []string
	Generators        []Generator
	OpeningSpeech     string
	RotationFrequency int
}

// Store holds every agent record and the global settings. Channels are a
// view derived from agent permission maps; the store only remembers which
// channel names exist.
//
// Store is not safe for concurrent use. It is owned by a single turn loop.
type Store struct {
	agents   map[string]*Agent
	channels map[string]struct{}
	settings Settings
}

// NewStore builds a store from configured agents.
func NewStore(agents []Agent, settings Settings) (*Store, error) {
	s := &Store{
		agents:   make(map[string]*Agent, len(agents)),
		channels: make(map[string]struct{}),
		settings: settings,
	}
	for _, a := range agents {
		if a.ID == "" {
			return nil, types.NewError(types.ErrConfigInvalid, "agent id must not be empty")
		}
		if _, dup := s.agents[a.ID]; dup {
			return nil, types.Errorf(types.ErrConfigInvalid, "duplicate agent %q", a.ID)
		}
		c := a.clone()
		s.agents[a.ID] = &c
		for ch := range c.Channels {
			s.channels[ch] = struct{}{}
		}
	}
	return s, nil
}

// Settings returns the global settings.
func (s *Store) Settings() Settings { return s.settings }

// HasAgent reports whether id is configured.
func (s *Store) HasAgent(id string) bool {
	_, ok := s.agents[id]
	return ok
}

// Agent returns a copy of the agent record.
func (s *Store) Agent(id string) (Agent, error) {
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, types.Errorf(types.ErrUnknownAgent, "agent %q is not defined", id).WithAgent(id)
	}
	return a.clone(), nil
}

// AgentIDs returns every agent id in sorted order.
func (s *Store) AgentIDs() []string {
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasChannel reports whether the channel name exists.
func (s *Store) HasChannel(channel string) bool {
	_, ok := s.channels[channel]
	return ok
}

// Channels returns every known channel in sorted order.
func (s *Store) Channels() []string {
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Members returns the agent → permission map of a channel.
func (s *Store) Members(channel string) (map[string]PermissionSet, error) {
	if !s.HasChannel(channel) {
		return nil, types.Errorf(types.ErrUnknownChannel, "channel %q does not exist", channel)
	}
	out := make(map[string]PermissionSet)
	for id, a := range s.agents {
		if perms, ok := a.Channels[channel]; ok {
			out[id] = perms
		}
	}
	return out, nil
}

// Permissions returns the set an agent holds on a channel (empty when absent).
func (s *Store) Permissions(agent, channel string) PermissionSet {
	a, ok := s.agents[agent]
	if !ok {
		return 0
	}
	return a.Channels[channel]
}

// CanSend reports whether agent may send on channel.
func (s *Store) CanSend(agent, channel string) bool {
	return s.Permissions(agent, channel).CanSend()
}

// CanReceive reports whether agent may receive on channel.
func (s *Store) CanReceive(agent, channel string) bool {
	return s.Permissions(agent, channel).CanReceive()
}

// SendChannels returns the channels agent may send on, sorted.
func (s *Store) SendChannels(agent string) []string {
	a, ok := s.agents[agent]
	if !ok {
		return nil
	}
	var out []string
	for ch, perms := range a.Channels {
		if perms.CanSend() {
			out = append(out, ch)
		}
	}
	sort.Strings(out)
	return out
}

// Receivers returns the agents holding receive on channel, sorted.
func (s *Store) Receivers(channel string) []string {
	return s.filterMembers(channel, PermReceive)
}

// Senders returns the agents holding send on channel, sorted.
func (s *Store) Senders(channel string) []string {
	return s.filterMembers(channel, PermSend)
}

func (s *Store) filterMembers(channel string, p Permission) []string {
	var out []string
	for id, a := range s.agents {
		if a.Channels[channel].Has(p) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// CanSpeak reports whether agent holds send on at least one channel.
func (s *Store) CanSpeak(agent string) bool {
	a, ok := s.agents[agent]
	if !ok {
		return false
	}
	for _, perms := range a.Channels {
		if perms.CanSend() {
			return true
		}
	}
	return false
}

// IsExcluded reports whether agent is excluded from random speaker selection.
func (s *Store) IsExcluded(agent string) bool {
	return contains(s.settings.Excluded, agent)
}

// IsAllowedCaller reports whether agent may issue Call commands.
func (s *Store) IsAllowedCaller(agent string) bool {
	return contains(s.settings.AllowedCallers, agent)
}

// SetPermissions overwrites agent's permission set on channel.
func (s *Store) SetPermissions(channel, agent string, perms PermissionSet) error {
	a, err := s.lookup(channel, agent)
	if err != nil {
		return err
	}
	a.Channels[channel] = perms
	return nil
}

// AddMember adds agent to channel with receive-only permission.
func (s *Store) AddMember(channel, agent string) error {
	a, err := s.lookup(channel, agent)
	if err != nil {
		return err
	}
	if _, ok := a.Channels[channel]; ok {
		return types.Errorf(types.ErrAlreadyMember, "%s is already in channel %q", agent, channel).WithAgent(agent)
	}
	a.Channels[channel] = NewPermissionSet(PermReceive)
	return nil
}

// RemoveMember deletes agent's entry on channel. The channel name survives.
func (s *Store) RemoveMember(channel, agent string) error {
	a, err := s.lookup(channel, agent)
	if err != nil {
		return err
	}
	if _, ok := a.Channels[channel]; !ok {
		return types.Errorf(types.ErrNotMember, "%s is not in channel %q", agent, channel).WithAgent(agent)
	}
	delete(a.Channels, channel)
	return nil
}

// SetInstructions replaces an agent's base instructions.
func (s *Store) SetInstructions(agent, instructions string) error {
	a, ok := s.agents[agent]
	if !ok {
		return types.Errorf(types.ErrUnknownAgent, "agent %q is not defined", agent).WithAgent(agent)
	}
	a.Instructions = instructions
	return nil
}

func (s *Store) lookup(channel, agent string) (*Agent, error) {
	if !s.HasChannel(channel) {
		return nil, types.Errorf(types.ErrUnknownChannel, "channel %q does not exist", channel)
	}
	a, ok := s.agents[agent]
	if !ok {
		return nil, types.Errorf(types.ErrUnknownAgent, "agent %q is not defined", agent).WithAgent(agent)
	}
	if a.Channels == nil {
		a.Channels = make(map[string]PermissionSet)
	}
	return a, nil
}

// State is the mutable part of the store captured by snapshots.
type State struct {
	Instructions map[string]string                   `json:"instructions"`
	Permissions  map[string]map[string]PermissionSet `json:"permissions"`
	Channels     []string                            `json:"channels"`
}

// State captures instructions, permission maps and channel names.
func (s *Store) State() State {
	st := State{
		Instructions: make(map[string]string, len(s.agents)),
		Permissions:  make(map[string]map[string]PermissionSet, len(s.agents)),
		Channels:     s.Channels(),
	}
	for id, a := range s.agents {
		st.Instructions[id] = a.Instructions
		st.Permissions[id] = a.clone().Channels
	}
	return st
}

// Restore applies a captured state. Entries for agents that are no longer
// configured are ignored.
func (s *Store) Restore(st State) {
	for _, ch := range st.Channels {
		s.channels[ch] = struct{}{}
	}
	for id, instr := range st.Instructions {
		if a, ok := s.agents[id]; ok {
			a.Instructions = instr
		}
	}
	for id, perms := range st.Permissions {
		a, ok := s.agents[id]
		if !ok {
			continue
		}
		a.Channels = make(map[string]PermissionSet, len(perms))
		for ch, p := range perms {
			a.Channels[ch] = p
			s.channels[ch] = struct{}{}
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
