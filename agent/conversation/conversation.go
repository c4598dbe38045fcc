package conversation

import (
	"math/rand"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/llm"
	"github.com/OTFiles/CosmoSynthAI/llm/moderation"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Config controls the turn loop.
type Config struct {
	// TurnInterval is the minimum spacing between turns. Zero disables pacing.
	TurnInterval time.Duration
	// IdleBackoff is how long Run waits when nobody can speak.
	IdleBackoff time.Duration
	// MaxRounds stops Run after this many rounds. Zero means unbounded.
	MaxRounds int
	// HistoryWindow bounds channel history read for regeneration.
	HistoryWindow int
	// MemoryWindow bounds transcript entries read for regeneration and reset.
	MemoryWindow int
	// SnapshotEvery saves a snapshot every N rounds. Zero disables snapshots.
	SnapshotEvery int
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		TurnInterval:  time.Second,
		IdleBackoff:   5 * time.Second,
		HistoryWindow: 20,
		MemoryWindow:  10,
		SnapshotEvery: 20,
	}
}

// Recorder receives turn loop metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordTurn(outcome string)
	SetQueueDepth(depth int)
	RecordCompletion(purpose string, duration time.Duration, err error)
	RecordVerdict(accepted bool)
	RecordCommand(command, status string)
	RecordPost(channel string, routed bool)
	RecordRegeneration(status string)
	RecordSnapshot(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTurn(string)                             {}
func (nopRecorder) SetQueueDepth(int)                             {}
func (nopRecorder) RecordCompletion(string, time.Duration, error) {}
func (nopRecorder) RecordVerdict(bool)                            {}
func (nopRecorder) RecordCommand(string, string)                  {}
func (nopRecorder) RecordPost(string, bool)                       {}
func (nopRecorder) RecordRegeneration(string)                     {}
func (nopRecorder) RecordSnapshot(string)                         {}

// Option configures a Conversation.
type Option func(*Conversation)

// WithRand sets the random source used for speaker selection.
func WithRand(r *rand.Rand) Option {
	return func(c *Conversation) { c.rng = r }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Conversation) { c.recorder = r }
}

// WithSnapshotStore enables periodic snapshots.
func WithSnapshotStore(store persistence.SnapshotStore) Option {
	return func(c *Conversation) { c.snapshots = store }
}

// Conversation owns all mutable state of a run: the topology, every
// agent's transcript, the channel history log, the priority queue and the
// round counters. All mutation goes through its methods.
//
// Conversation is not safe for concurrent use; a single turn loop drives it.
type Conversation struct {
	cfg       Config
	topo      *topology.Store
	completer llm.Completer
	gate      *moderation.Gate
	snapshots persistence.SnapshotStore
	recorder  Recorder
	rng       *rand.Rand
	logger    *zap.Logger

	transcripts map[string][]types.Message
	history     *historyLog
	queue       priorityQueue

	round            int
	lastRotation     int
	lastSpeaker      string
	openingDelivered bool
}

// New creates a conversation over topo. Every agent starts with a
// transcript holding only its instructions as a system entry.
func New(topo *topology.Store, completer llm.Completer, cfg Config, logger *zap.Logger, opts ...Option) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Conversation{
		cfg:         cfg,
		topo:        topo,
		completer:   completer,
		recorder:    nopRecorder{},
		logger:      logger.With(zap.String("component", "conversation")),
		transcripts: make(map[string][]types.Message),
		history:     newHistoryLog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.gate = moderation.NewGate(c, completer, logger, moderation.WithRecorder(c.recorder))

	for _, id := range topo.AgentIDs() {
		a, _ := topo.Agent(id)
		c.transcripts[id] = []types.Message{types.NewSystemMessage(a.Instructions)}
	}
	return c
}

// Topology returns the topology store.
func (c *Conversation) Topology() *topology.Store { return c.topo }

// Agent returns the agent record for id.
func (c *Conversation) Agent(id string) (topology.Agent, error) { return c.topo.Agent(id) }

// Transcript returns a copy of an agent's transcript.
func (c *Conversation) Transcript(id string) []types.Message {
	return types.CloneMessages(c.transcripts[id])
}

// History returns the most recent n entries of a channel's history
// (all entries when n <= 0).
func (c *Conversation) History(channel string, n int) []types.HistoryEntry {
	return c.history.Recent(channel, n)
}

// Round returns the current round number.
func (c *Conversation) Round() int { return c.round }

// LastRotation returns the round of the last regeneration cycle.
func (c *Conversation) LastRotation() int { return c.lastRotation }

// LastSpeaker returns the most recently selected speaker.
func (c *Conversation) LastSpeaker() string { return c.lastSpeaker }

// QueueDepth returns the number of pending priority tasks.
func (c *Conversation) QueueDepth() int { return c.queue.Len() }

func (c *Conversation) appendEntry(agent string, msg types.Message) {
	if _, ok := c.transcripts[agent]; !ok {
		return
	}
	c.transcripts[agent] = append(c.transcripts[agent], msg)
}

// notify appends a private system notice to one agent's transcript.
func (c *Conversation) notify(agent, text string) {
	c.appendEntry(agent, types.NewSystemMessage(text))
}

// resetTranscript collapses an agent's transcript to a single system entry.
func (c *Conversation) resetTranscript(agent, instructions string) {
	c.transcripts[agent] = []types.Message{types.NewSystemMessage(instructions)}
}

// recentMemory returns the leading system entry plus the last n other entries.
func (c *Conversation) recentMemory(agent string, n int) []types.Message {
	msgs := c.transcripts[agent]
	var head []types.Message
	rest := msgs
	if len(rest) > 0 && rest[0].Role == types.RoleSystem {
		head = rest[:1]
		rest = rest[1:]
	}
	if n > 0 && len(rest) > n {
		rest = rest[len(rest)-n:]
	}
	out := make([]types.Message, 0, len(head)+len(rest))
	out = append(out, head...)
	return append(out, rest...)
}

// recentDialogue returns the last n non-system entries of a transcript.
func (c *Conversation) recentDialogue(agent string, n int) []types.Message {
	var out []types.Message
	for _, m := range c.transcripts[agent] {
		if m.Role != types.RoleSystem {
			out = append(out, m)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
