// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供多智能体频道对话运行时的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、llm、config
等上层模块提供统一的类型契约。

# 核心类型

  - Message / Role：角色标记的对话记录条目（system / user / assistant）
  - Error / ErrorCode：结构化错误体系，Turn Loop 按错误码决定
    跳过、通知或放弃当前回合

# 错误分类

  - 配置错误：CONFIG_INVALID、UNKNOWN_ENDPOINT（启动期致命）
  - 权限错误：UNKNOWN_AGENT、UNKNOWN_CHANNEL、INVALID_PERMISSION、
    ALREADY_MEMBER、NOT_MEMBER、PERMISSION_DENIED、INVALID_COMMAND
  - 解析错误：NO_SEND_PERMISSION
  - 传输错误：CONNECTION_ERROR（可重试）、RESPONSE_ERROR
  - 持久化错误：SNAPSHOT_FAILED
*/
package types
