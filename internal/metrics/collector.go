// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 回合指标
	turnsTotal         *prometheus.CounterVec
	priorityQueueDepth prometheus.Gauge

	// 补全服务指标
	completionDuration *prometheus.HistogramVec
	completionErrors   *prometheus.CounterVec

	// 审查与命令指标
	moderationVerdicts *prometheus.CounterVec
	commandsTotal      *prometheus.CounterVec

	// 路由指标
	postsRouted  *prometheus.CounterVec
	postsSkipped prometheus.Counter

	// 指令重写与快照指标
	regenerations *prometheus.CounterVec
	snapshotSaves *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegisterer(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegisterer 创建指标收集器并注册到指定 Registerer
func NewCollectorWithRegisterer(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of turns by outcome",
		},
		[]string{"outcome"},
	)

	c.priorityQueueDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "priority_queue_depth",
			Help:      "Number of pending forced-speaker tasks",
		},
	)

	c.completionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"purpose"},
	)

	c.completionErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_errors_total",
			Help:      "Total number of failed completion requests",
		},
		[]string{"purpose", "code"},
	)

	c.moderationVerdicts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_verdicts_total",
			Help:      "Total number of moderation verdicts",
		},
		[]string{"verdict"},
	)

	c.commandsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of in-band commands by kind and status",
		},
		[]string{"command", "status"},
	)

	c.postsRouted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_routed_total",
			Help:      "Total number of posts delivered to a channel",
		},
		[]string{"channel"},
	)

	c.postsSkipped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_skipped_total",
			Help:      "Total number of posts dropped for missing send permission",
		},
	)

	c.regenerations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regenerations_total",
			Help:      "Total number of instruction regenerations by status",
		},
		[]string{"status"},
	)

	c.snapshotSaves = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_saves_total",
			Help:      "Total number of snapshot saves by status",
		},
		[]string{"status"},
	)

	return c
}

// =============================================================================
// 📝 记录方法
// =============================================================================

// RecordTurn 记录一个回合的结果
func (c *Collector) RecordTurn(outcome string) {
	c.turnsTotal.WithLabelValues(outcome).Inc()
}

// SetQueueDepth 更新优先队列长度
func (c *Collector) SetQueueDepth(depth int) {
	c.priorityQueueDepth.Set(float64(depth))
}

// RecordCompletion 记录一次补全请求，err 非空时按错误码计数
func (c *Collector) RecordCompletion(purpose string, duration time.Duration, err error) {
	c.completionDuration.WithLabelValues(purpose).Observe(duration.Seconds())
	if err == nil {
		return
	}
	code := string(types.GetErrorCode(err))
	if code == "" {
		code = "UNKNOWN"
	}
	c.completionErrors.WithLabelValues(purpose, code).Inc()
}

// RecordVerdict 记录审查结果
func (c *Collector) RecordVerdict(accepted bool) {
	verdict := "rejected"
	if accepted {
		verdict = "accepted"
	}
	c.moderationVerdicts.WithLabelValues(verdict).Inc()
}

// RecordCommand 记录命令执行
func (c *Collector) RecordCommand(command, status string) {
	c.commandsTotal.WithLabelValues(command, status).Inc()
}

// RecordPost 记录一条帖子是否被投递
func (c *Collector) RecordPost(channel string, routed bool) {
	if !routed {
		c.postsSkipped.Inc()
		return
	}
	c.postsRouted.WithLabelValues(channel).Inc()
}

// RecordRegeneration 记录指令重写结果
func (c *Collector) RecordRegeneration(status string) {
	c.regenerations.WithLabelValues(status).Inc()
}

// RecordSnapshot 记录快照保存结果
func (c *Collector) RecordSnapshot(status string) {
	c.snapshotSaves.WithLabelValues(status).Inc()
	if status != "success" {
		c.logger.Debug("snapshot save recorded as failure", zap.String("status", status))
	}
}
