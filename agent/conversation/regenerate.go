package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/internal/ctxkeys"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// PurposeRegeneration is the metrics purpose label of generator completions.
const PurposeRegeneration = "regeneration"

// RotationReport summarizes one regeneration cycle.
type RotationReport struct {
	Round     int
	Attempted []string
	Succeeded []string
	Failed    map[string]error
}

// RotationDue reports whether a regeneration cycle should run at round.
func (c *Conversation) RotationDue(round int) bool {
	freq := c.topo.Settings().RotationFrequency
	return freq > 0 && round-c.lastRotation >= freq
}

// MaybeRotate runs a regeneration cycle when one is due and returns its
// report, or nil when nothing was due. Each opted-in agent is handled on
// its own; a failure is logged and does not stop the others. The rotation
// counter advances after every cycle.
func (c *Conversation) MaybeRotate(ctx context.Context, round int) *RotationReport {
	if !c.RotationDue(round) {
		return nil
	}
	report := &RotationReport{Round: round, Failed: make(map[string]error)}
	defer func() { c.lastRotation = round }()

	if len(c.topo.Settings().Generators) == 0 {
		c.logger.Info("instruction rotation skipped: no generators configured", zap.Int("round", round))
		return report
	}

	for _, id := range c.topo.AgentIDs() {
		agent, err := c.topo.Agent(id)
		if err != nil || agent.Regeneration == nil || !agent.Regeneration.Enabled {
			continue
		}
		report.Attempted = append(report.Attempted, id)
		if err := c.regenerate(ctx, agent); err != nil {
			report.Failed[id] = err
			c.recorder.RecordRegeneration("failed")
			c.logger.Warn("instruction regeneration failed", zap.String("agent", id), zap.Error(err))
			continue
		}
		report.Succeeded = append(report.Succeeded, id)
		c.recorder.RecordRegeneration("ok")
	}

	c.logger.Info("instruction rotation finished",
		zap.Int("round", round),
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("attempted", len(report.Attempted)))
	return report
}

// ResolveGenerator finds the generator with the given id. A missing or
// unmatched id falls back to the first configured generator.
func (c *Conversation) ResolveGenerator(id *int) (topology.Generator, bool) {
	gens := c.topo.Settings().Generators
	if len(gens) == 0 {
		return topology.Generator{}, false
	}
	if id != nil {
		for _, g := range gens {
			if g.ID == *id {
				return g, true
			}
		}
		c.logger.Warn("generator id not found, using first generator",
			zap.Int("generator_id", *id),
			zap.Int("fallback_id", gens[0].ID))
	}
	return gens[0], true
}

func (c *Conversation) regenerate(ctx context.Context, agent topology.Agent) error {
	gen, ok := c.ResolveGenerator(agent.Regeneration.GeneratorID)
	if !ok {
		return types.NewError(types.ErrConfigInvalid, "no generator available").WithAgent(agent.ID)
	}
	generator, err := c.topo.Agent(gen.Agent)
	if err != nil {
		return err
	}

	session := c.recentMemory(agent.ID, c.cfg.MemoryWindow)
	session = append(session, types.NewUserMessage(c.seedPrompt(agent, gen)))

	start := time.Now()
	ctx = ctxkeys.WithPurpose(ctxkeys.WithAgent(ctx, agent.ID), PurposeRegeneration)
	reply, err := c.completer.Complete(ctx, session, generator.Endpoint)
	c.recorder.RecordCompletion(PurposeRegeneration, time.Since(start), err)
	if err != nil {
		return err
	}
	instructions := strings.TrimSpace(grammar.StripThink(reply))
	if instructions == "" {
		return types.NewError(types.ErrResponse, "generator returned empty instructions").WithAgent(agent.ID)
	}

	if err := c.topo.SetInstructions(agent.ID, instructions); err != nil {
		return err
	}
	c.resetTranscript(agent.ID, instructions)
	c.logger.Info("instructions regenerated",
		zap.String("agent", agent.ID),
		zap.String("generator", generator.ID))
	return nil
}

func (c *Conversation) seedPrompt(agent topology.Agent, gen topology.Generator) string {
	prompt := agent.Regeneration.SeedPrompt
	if gen.SourceChannel == "" {
		return prompt
	}
	recent := c.history.Recent(gen.SourceChannel, c.cfg.HistoryWindow)
	if len(recent) == 0 {
		return prompt
	}
	return prompt + "\n\nRecent messages in " + gen.SourceChannel + ":\n" + types.RenderHistory(recent)
}
