// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供 CosmoSynth 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 COSMOSYNTH）的顺序加载，
// 包含日志、指标、回合循环、快照、补全端点与 Agent 拓扑。Validate 在
// 启动时执行完整的模式校验，BuildTopology 将拓扑配置转换为
// topology.Store。
package config
