package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/internal/ctxkeys"
	"github.com/OTFiles/CosmoSynthAI/llm/moderation"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PurposeTurn is the metrics purpose label of speaker completions.
const PurposeTurn = "turn"

// TurnOutcome classifies how a turn ended.
type TurnOutcome string

const (
	OutcomeRouted    TurnOutcome = "routed"
	OutcomeCommand   TurnOutcome = "command"
	OutcomeRejected  TurnOutcome = "rejected"
	OutcomeAbandoned TurnOutcome = "abandoned"
	OutcomeIdle      TurnOutcome = "idle"
)

// TurnResult describes one iteration of the loop.
type TurnResult struct {
	Round    int
	Speaker  string
	Outcome  TurnOutcome
	Reply    string
	Delivery *Delivery
	Command  *CommandResult
	Verdict  *moderation.Verdict
	Rotation *RotationReport
	Err      error
}

// Turn runs one full iteration: pick a speaker, obtain its completion,
// interpret a command or moderate, parse and route the reply, then run a
// regeneration cycle and a snapshot when due. Errors are confined to the
// returned result; Turn never aborts the conversation.
func (c *Conversation) Turn(ctx context.Context) TurnResult {
	c.round++
	res := TurnResult{Round: c.round}
	ctx = ctxkeys.WithRound(ctx, c.round)
	defer func() {
		c.recorder.RecordTurn(string(res.Outcome))
		c.recorder.SetQueueDepth(c.queue.Len())
	}()

	speaker, ok := c.NextSpeaker()
	if !ok {
		res.Outcome = OutcomeIdle
		c.logger.Warn("no agent can speak", zap.Int("round", c.round))
		return res
	}
	res.Speaker = speaker
	c.speak(ctx, &res)

	res.Rotation = c.MaybeRotate(ctx, c.round)
	c.maybeSnapshot(ctx)
	return res
}

func (c *Conversation) speak(ctx context.Context, res *TurnResult) {
	speaker := res.Speaker
	log := c.logger.With(zap.String("agent", speaker), zap.Int("round", res.Round))

	agent, err := c.topo.Agent(speaker)
	if err != nil {
		res.Outcome, res.Err = OutcomeAbandoned, err
		return
	}

	if !c.openingDelivered {
		c.openingDelivered = true
		if speech := c.topo.Settings().OpeningSpeech; speech != "" {
			c.appendEntry(speaker, types.NewUserMessage(speech))
			log.Info("opening speech delivered")
		}
	}

	ctx = ctxkeys.WithAgent(ctx, speaker)
	start := time.Now()
	reply, err := c.completer.Complete(ctxkeys.WithPurpose(ctx, PurposeTurn), c.Transcript(speaker), agent.Endpoint)
	c.recorder.RecordCompletion(PurposeTurn, time.Since(start), err)
	if err != nil {
		res.Outcome, res.Err = OutcomeAbandoned, err
		log.Warn("completion failed, turn abandoned", zap.Error(err))
		c.notify(speaker, "your turn was skipped: "+errorText(err))
		return
	}
	res.Reply = reply
	said := strings.TrimSpace(grammar.StripThink(reply))

	if cmds := grammar.ParseCommands(reply); len(cmds) > 0 {
		cmd, authorized := c.pickCommand(speaker, cmds)
		if authorized {
			c.remember(speaker, said)
		}
		cr := c.Execute(speaker, cmd)
		res.Command = &cr
		if authorized {
			res.Outcome, res.Err = OutcomeCommand, cr.Err
			return
		}
		// 无权执行的命令只回执拒绝，发言照常审核与路由
	}

	verdict := c.gate.Review(ctx, speaker, reply)
	res.Verdict = &verdict
	if verdict.Rejected() {
		c.remember(speaker, said)
		c.notify(speaker, "your message was rejected by "+verdict.Moderator+": "+verdict.Reason)
		res.Outcome = OutcomeRejected
		return
	}

	parsed, err := grammar.Parse(reply, c.topo.SendChannels(speaker))
	if err != nil {
		c.remember(speaker, said)
		c.notify(speaker, "your message was not delivered: "+errorText(err))
		res.Outcome, res.Err = OutcomeAbandoned, err
		log.Warn("reply could not be parsed, turn abandoned", zap.Error(err))
		return
	}
	res.Delivery = c.Distribute(speaker, parsed)
	res.Outcome = OutcomeRouted
}

// Run drives turns until ctx is done or MaxRounds is reached. Turns are
// paced by TurnInterval; when nobody can speak Run waits IdleBackoff.
// Run returns nil when MaxRounds is reached and ctx.Err() on cancellation.
func (c *Conversation) Run(ctx context.Context) error {
	limit := rate.Inf
	if c.cfg.TurnInterval > 0 {
		limit = rate.Every(c.cfg.TurnInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	c.logger.Info("conversation loop started",
		zap.Int("agents", len(c.topo.AgentIDs())),
		zap.Int("round", c.round))

	for c.cfg.MaxRounds <= 0 || c.round < c.cfg.MaxRounds {
		if err := limiter.Wait(ctx); err != nil {
			// Wait 在截止时间早于下一个令牌时会提前返回
			<-ctx.Done()
			return c.stopped(ctx.Err())
		}
		res := c.Turn(ctx)
		if res.Outcome != OutcomeIdle || c.cfg.IdleBackoff <= 0 {
			continue
		}
		timer := time.NewTimer(c.cfg.IdleBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return c.stopped(ctx.Err())
		case <-timer.C:
		}
	}

	c.logger.Info("conversation loop finished", zap.Int("rounds", c.round))
	return nil
}

func (c *Conversation) stopped(err error) error {
	c.logger.Info("conversation loop stopped", zap.Int("rounds", c.round), zap.Error(err))
	return err
}

// remember keeps a non-routed utterance in the speaker's own transcript.
func (c *Conversation) remember(speaker, said string) {
	if said != "" {
		c.appendEntry(speaker, types.NewAssistantMessage(said))
	}
}
