// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的对话运行指标采集能力。

# 概述

Collector 统一注册和记录 Prometheus 指标，默认使用 promauto
注册到全局 Registry；NewCollectorWithRegisterer 可指定独立的
Registry，便于测试与多实例隔离。

# 主要指标

  - turns_total{outcome}：回合结果（routed/command/rejected/abandoned/idle）
  - priority_queue_depth：待处理的强制发言任务数
  - completion_duration_seconds{purpose}、completion_errors_total{purpose,code}
  - moderation_verdicts_total{verdict}
  - commands_total{command,status}
  - posts_routed_total{channel}、posts_skipped_total
  - regenerations_total{status}、snapshot_saves_total{status}
*/
package metrics
