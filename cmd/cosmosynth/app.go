package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OTFiles/CosmoSynthAI/agent/conversation"
	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/config"
	"github.com/OTFiles/CosmoSynthAI/internal/metrics"
	"github.com/OTFiles/CosmoSynthAI/internal/server"
	"github.com/OTFiles/CosmoSynthAI/llm"
	"github.com/OTFiles/CosmoSynthAI/llm/circuitbreaker"
	"github.com/OTFiles/CosmoSynthAI/llm/providers/openaicompat"
)

// app 持有一次运行所需的全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	service   *llm.Service
	snapshots persistence.SnapshotStore
	conv      *conversation.Conversation
	ops       *server.Manager

	looping atomic.Bool
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	topo, err := cfg.BuildTopology()
	if err != nil {
		return nil, err
	}

	service, err := newCompletionService(cfg, logger)
	if err != nil {
		return nil, err
	}

	snapshots, err := persistence.NewSnapshotStore(cfg.Snapshot.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, service: service, snapshots: snapshots}

	opts := []conversation.Option{conversation.WithSnapshotStore(snapshots)}
	if cfg.Loop.Seed != 0 {
		opts = append(opts, conversation.WithRand(rand.New(rand.NewSource(cfg.Loop.Seed))))
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, conversation.WithRecorder(metrics.NewCollectorWithRegisterer(cfg.Metrics.Namespace, reg, logger)))

		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		a.ops = server.NewManager(server.NewOpsHandler(reg, a.health), srvCfg, logger)
	}

	a.conv = conversation.New(topo, service, conversationConfig(cfg), logger, opts...)

	if cfg.Snapshot.Restore {
		restored, err := a.conv.RestoreLatest(context.Background())
		if err != nil {
			_ = snapshots.Close()
			return nil, err
		}
		if !restored {
			logger.Info("no snapshot to restore, starting fresh")
		}
	}
	return a, nil
}

// newCompletionService 为每个配置的端点注册一个 OpenAI 兼容 provider
func newCompletionService(cfg *config.Config, logger *zap.Logger) (*llm.Service, error) {
	svcCfg := llm.DefaultServiceConfig()
	svcCfg.MemoryWindow = cfg.Loop.MemoryWindow
	svcCfg.MaxMessageLength = cfg.Loop.MaxMessageLength
	svcCfg.Timeout = cfg.Loop.CompletionTimeout
	breaker := circuitbreaker.DefaultConfig()
	svcCfg.Breaker = &breaker

	service := llm.NewService(svcCfg, logger)
	for _, ep := range cfg.Endpoints {
		provider := openaicompat.New(openaicompat.Config{
			Name:         ep.Name,
			APIKey:       ep.APIKey,
			BaseURL:      ep.BaseURL,
			DefaultModel: ep.Model,
			Timeout:      ep.Timeout,
			Headers:      ep.Headers,
		}, logger)
		if err := service.Register(llm.Endpoint{
			Name:       ep.Name,
			Provider:   provider,
			Model:      ep.Model,
			Mode:       llm.Mode(ep.Mode),
			MaxRetries: ep.MaxRetries,
		}); err != nil {
			return nil, err
		}
	}
	logger.Info("completion endpoints registered", zap.Strings("endpoints", service.Endpoints()))
	return service, nil
}

func conversationConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		TurnInterval:  cfg.Loop.TurnInterval,
		IdleBackoff:   cfg.Loop.IdleBackoff,
		MaxRounds:     cfg.Loop.MaxRounds,
		HistoryWindow: cfg.Loop.HistoryWindow,
		MemoryWindow:  cfg.Loop.MemoryWindow,
		SnapshotEvery: cfg.Snapshot.EveryRounds,
	}
}

// Run 运行回合循环与运维服务器，直到 ctx 结束或循环达到回合上限。
// 退出前保存一次最终快照。
func (a *app) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	a.looping.Store(true)
	g.Go(func() error {
		defer cancel()
		defer a.looping.Store(false)
		err := a.conv.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if a.ops != nil {
		g.Go(func() error { return a.ops.Run(gctx) })
	}
	err := g.Wait()

	if saveErr := a.conv.SaveSnapshot(context.Background()); saveErr != nil {
		a.logger.Warn("final snapshot failed", zap.Error(saveErr))
	}
	a.logger.Info("conversation finished", zap.Int("round", a.conv.Round()))
	return err
}

func (a *app) health() error {
	if !a.looping.Load() {
		return errors.New("turn loop is not running")
	}
	return nil
}

// Close 释放快照存储
func (a *app) Close() {
	if err := a.snapshots.Close(); err != nil {
		a.logger.Warn("failed to close snapshot store", zap.Error(err))
	}
}
