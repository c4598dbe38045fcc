// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package grammar 实现 Agent 输出中使用的带内文本语法。

# 标签语法

  - <think>...</think>：推理内容，无条件删除
  - <system>...<system/>（或 </system>）：系统通知，广播给全部 Agent
  - [Channel]content / [A][B]content：频道寻址
  - <reject>reason<reject/>（或 </reject>）：审查者驳回判定

Parse 是纯函数，返回 ParsedMessage{Posts, SystemNotices}；未带标签的
文本广播到发言者拥有 send 权限的全部频道，若没有任何可发送频道则返回
NO_SEND_PERMISSION 错误。

# 命令语法

ParseCommands 按固定优先级（Call → pd.l → pd.s → pd.a → pd.d → ep.r）
返回每种命令的第一个 {{...}} 标记；ParseCommand 只取最高优先级的一个。
会话层据此挑选发言者有权执行的命令，每个回合最多执行一个。
*/
package grammar
