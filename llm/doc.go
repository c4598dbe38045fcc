// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供对话运行时使用的补全服务层。

# 概述

对话循环只依赖 [Completer]：给定有序的带角色消息和端点名，返回完整回复文本。
[Service] 是它的生产实现，维护一个按名称索引的端点目录，每个端点绑定一个
[Provider] 后端、模型名与请求模式（流式或阻塞）。

# 发送前处理

[PrepareMessages] 在发送前裁剪消息窗口：开头的 system 消息始终保留，
其余只保留最近 MemoryWindow 条；超过 MaxMessageLength 个字符的 user 消息
被截断并追加 [TruncationMarker]。调用方传入的切片不会被修改。

# 失败处理

  - 未知端点返回 UNKNOWN_ENDPOINT
  - 传输层失败为可重试的 CONNECTION_ERROR，按端点的 MaxRetries 做指数退避
  - 空回复或格式错误为不可重试的 RESPONSE_ERROR
  - 可选的按端点熔断器在连续失败后快速拒绝请求

# 子包

  - llm/retry：指数退避重试
  - llm/circuitbreaker：熔断器
  - llm/providers/openaicompat：OpenAI 兼容协议的 HTTP 后端
  - llm/moderation：发言审核闸门
*/
package llm
