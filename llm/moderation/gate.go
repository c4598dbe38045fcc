package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/internal/ctxkeys"
	"github.com/OTFiles/CosmoSynthAI/llm"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// PurposeModeration 是审核补全在指标中的 purpose 标签
const PurposeModeration = "moderation"

// Directory 提供审核所需的 agent 记录与对话记录
type Directory interface {
	Agent(id string) (topology.Agent, error)
	Transcript(id string) []types.Message
}

// Recorder 接收审核相关的指标
type Recorder interface {
	RecordCompletion(purpose string, duration time.Duration, err error)
	RecordVerdict(accepted bool)
}

// Verdict 是一次审核的结论
type Verdict struct {
	Accepted  bool
	Reason    string
	Moderator string
	// Err 非空表示审核内部出错，此时 Accepted 恒为 true
	Err error
}

// Rejected 报告候选内容是否被驳回
func (v Verdict) Rejected() bool { return !v.Accepted }

// Gate 在发布前把候选内容交给发言者的审核员评判
type Gate struct {
	dir       Directory
	completer llm.Completer
	recorder  Recorder
	logger    *zap.Logger
}

// Option 配置 Gate
type Option func(*Gate)

// WithRecorder 设置指标接收者
func WithRecorder(r Recorder) Option {
	return func(g *Gate) { g.recorder = r }
}

// NewGate 创建审核闸门
func NewGate(dir Directory, completer llm.Completer, logger *zap.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		dir:       dir,
		completer: completer,
		logger:    logger.With(zap.String("component", "moderation")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Review 审核 speaker 的候选内容。
// 没有审核员或审核员未定义时直接通过；审核过程中的任何错误都按通过处理。
func (g *Gate) Review(ctx context.Context, speaker, candidate string) Verdict {
	agent, err := g.dir.Agent(speaker)
	if err != nil || agent.Moderator == "" {
		return Verdict{Accepted: true}
	}
	moderator, err := g.dir.Agent(agent.Moderator)
	if err != nil {
		g.logger.Debug("moderator not defined, skipping review",
			zap.String("agent", speaker),
			zap.String("moderator", agent.Moderator))
		return Verdict{Accepted: true}
	}

	v := g.review(ctx, speaker, moderator, grammar.StripThink(candidate))
	if g.recorder != nil && v.Err == nil {
		g.recorder.RecordVerdict(v.Accepted)
	}
	return v
}

func (g *Gate) review(ctx context.Context, speaker string, moderator topology.Agent, candidate string) Verdict {
	session := types.CloneMessages(g.dir.Transcript(moderator.ID))
	if len(session) == 0 {
		session = []types.Message{types.NewSystemMessage(moderator.Instructions)}
	}
	session = append(session, types.NewUserMessage(ReviewPrompt(speaker, candidate)))

	start := time.Now()
	reply, err := g.completer.Complete(ctxkeys.WithPurpose(ctx, PurposeModeration), session, moderator.Endpoint)
	if g.recorder != nil {
		g.recorder.RecordCompletion(PurposeModeration, time.Since(start), err)
	}
	if err != nil {
		g.logger.Warn("review failed, accepting message",
			zap.String("agent", speaker),
			zap.String("moderator", moderator.ID),
			zap.Error(err))
		return Verdict{Accepted: true, Moderator: moderator.ID, Err: err}
	}

	rejected, reason := grammar.ParseVerdict(reply)
	if !rejected {
		return Verdict{Accepted: true, Moderator: moderator.ID}
	}
	g.logger.Info("message rejected",
		zap.String("agent", speaker),
		zap.String("moderator", moderator.ID),
		zap.String("reason", reason))
	return Verdict{Accepted: false, Reason: reason, Moderator: moderator.ID}
}

// ReviewPrompt 构造交给审核员的 user 消息
func ReviewPrompt(speaker, candidate string) string {
	return fmt.Sprintf("Please review the following message from %s:\n\n%s\n\n"+
		"Decide whether it should be rejected. To reject it, reply with:\n"+
		"<reject>your reason<reject/>", speaker, candidate)
}
