// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 CosmoSynth 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 日志辅助: ObservedLogger 捕获 zap 日志条目用于断言
  - 断言工具: AssertMessagesEqual / AssertErrorCode /
    AssertNotContains
  - 流式辅助: SendChunksToChannel 构造已关闭的流式通道

# 子包

  - testutil/mocks: MockProvider（补全后端）与 MockCompleter（按端点脚本化的
    补全服务），均支持 Builder 模式、错误注入与调用记录
  - testutil/fixtures: 预置拓扑布局、标签化回复与命令字符串

# 使用示例

	ctx := testutil.TestContext(t)
	completer := mocks.NewMockCompleter().Script("alice", fixtures.Tagged("hi", "general"))
	text, err := completer.Complete(ctx, msgs, "alice")
	testutil.AssertNotContains(t, text, "<think>")
*/
package testutil
