package conversation

import (
	"context"
	"errors"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Capture copies the whole conversation state into a snapshot.
func (c *Conversation) Capture() *persistence.Snapshot {
	snap := &persistence.Snapshot{
		Round:            c.round,
		LastRotation:     c.lastRotation,
		LastSpeaker:      c.lastSpeaker,
		OpeningDelivered: c.openingDelivered,
		Transcripts:      make(map[string][]types.Message, len(c.transcripts)),
		History:          c.history.snapshot(),
		Topology:         c.topo.State(),
	}
	for _, t := range c.queue.tasks() {
		snap.Priority = append(snap.Priority, persistence.PriorityRecord{Agent: t.Agent, Tier: string(t.Tier), Reason: t.Reason})
	}
	for id, msgs := range c.transcripts {
		snap.Transcripts[id] = types.CloneMessages(msgs)
	}
	return snap
}

// Restore replaces the conversation state with snap. Agents that are no
// longer configured are dropped; configured agents missing from the
// snapshot keep their fresh transcript.
func (c *Conversation) Restore(snap *persistence.Snapshot) {
	c.round = snap.Round
	c.lastRotation = snap.LastRotation
	c.lastSpeaker = snap.LastSpeaker
	c.openingDelivered = snap.OpeningDelivered

	c.topo.Restore(snap.Topology)
	c.history.restore(snap.History)

	for id, msgs := range snap.Transcripts {
		if c.topo.HasAgent(id) {
			c.transcripts[id] = types.CloneMessages(msgs)
		}
	}

	c.queue.reset()
	for _, p := range snap.Priority {
		if c.topo.HasAgent(p.Agent) {
			c.queue.push(PriorityTask{Tier: Tier(p.Tier), Agent: p.Agent, Reason: p.Reason})
		}
	}
	c.recorder.SetQueueDepth(c.queue.Len())
}

// RestoreLatest loads the newest snapshot from the configured store.
// It reports false when no store is configured or the store is empty.
func (c *Conversation) RestoreLatest(ctx context.Context) (bool, error) {
	if c.snapshots == nil {
		return false, nil
	}
	snap, err := c.snapshots.Latest(ctx)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, types.NewError(types.ErrSnapshotFailed, "load latest snapshot").WithCause(err)
	}
	c.Restore(snap)
	c.logger.Info("conversation restored from snapshot",
		zap.String("snapshot", snap.ID),
		zap.Int("round", snap.Round))
	return true, nil
}

// SaveSnapshot captures and saves the current state.
func (c *Conversation) SaveSnapshot(ctx context.Context) error {
	if c.snapshots == nil {
		return nil
	}
	snap := c.Capture()
	if err := c.snapshots.Save(ctx, snap); err != nil {
		c.recorder.RecordSnapshot("failed")
		return types.NewError(types.ErrSnapshotFailed, "save snapshot").WithCause(err)
	}
	c.recorder.RecordSnapshot("ok")
	c.logger.Debug("snapshot saved", zap.String("snapshot", snap.ID), zap.Int("round", snap.Round))
	return nil
}

// maybeSnapshot saves a snapshot every SnapshotEvery rounds. Failures are
// logged and never stop the loop.
func (c *Conversation) maybeSnapshot(ctx context.Context) {
	if c.snapshots == nil || c.cfg.SnapshotEvery <= 0 || c.round%c.cfg.SnapshotEvery != 0 {
		return
	}
	if err := c.SaveSnapshot(ctx); err != nil {
		c.logger.Warn("snapshot failed", zap.Int("round", c.round), zap.Error(err))
	}
}
