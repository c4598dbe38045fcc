// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 实现多智能体频道对话的运行时：发言调度、命令解释、
消息路由、指令再生与回合循环。

# 概述

[Conversation] 是唯一持有可变状态的聚合：拓扑、每个 agent 的对话记录、
频道历史、优先队列与回合计数。所有修改都通过它的方法完成，
由单个回合循环驱动，不支持并发调用。

# 回合

[Conversation.Turn] 执行一次完整迭代：

 1. [Conversation.NextSpeaker] 先取优先队列（A 级总在 B 级之前，级内先进先出），
    否则在可发言的 agent 中随机选择并避开上一位发言者
 2. 首位发言者先收到开场白
 3. 通过 llm.Completer 取得回复
 4. 回复含命令时由 [Conversation.Execute] 执行，本回合不再路由
 5. 否则交给审核闸门，被驳回的内容不路由，发言者收到私有通知
 6. 解析标签后由 [Conversation.Distribute] 按收发权限分发
 7. 到期时运行 [Conversation.MaybeRotate] 与快照

单个回合中的任何错误都只记录在 [TurnResult] 中，不会终止 [Conversation.Run]。

# 频道格式

  - 频道内容在对话记录中为 "[channel] content"
  - 系统通知为 "system notice from <speaker>: <text>"，发给所有 agent，
    并记录在 [SystemChannel] 历史下
*/
package conversation
