// =============================================================================
// 📦 CosmoSynth 默认配置
// =============================================================================
// 提供所有配置项的合理默认值；拓扑与端点没有默认值，必须由配置文件给出
// =============================================================================
package config

import (
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:      DefaultLogConfig(),
		Metrics:  DefaultMetricsConfig(),
		Loop:     DefaultLoopConfig(),
		Snapshot: DefaultSnapshotConfig(),
		Topology: DefaultTopologyConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "cosmosynth",
	}
}

// DefaultLoopConfig 返回默认回合循环配置
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TurnInterval:      1 * time.Second,
		IdleBackoff:       5 * time.Second,
		MaxRounds:         0,
		HistoryWindow:     20,
		MemoryWindow:      10,
		MaxMessageLength:  5000,
		CompletionTimeout: 2 * time.Minute,
	}
}

// DefaultSnapshotConfig 返回默认快照配置
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		EveryRounds: 20,
		Restore:     false,
		Store:       persistence.DefaultStoreConfig(),
	}
}

// DefaultTopologyConfig 返回默认拓扑设置（不含 Agent）
func DefaultTopologyConfig() TopologyConfig {
	return TopologyConfig{
		RotationFrequency: 100,
	}
}

// applyDefaults 填充 YAML 中未给出的端点字段
func (e *EndpointConfig) applyDefaults() {
	if e.Mode == "" {
		e.Mode = ModeStream
	}
	if e.Timeout <= 0 {
		e.Timeout = 2 * time.Minute
	}
}
