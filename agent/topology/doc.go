// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package topology 持有对话拓扑：每个 Agent 的指令、补全端点选择器以及
频道 → 权限集合映射，还有频道管理员、记忆管理员、呼叫白名单、
排除列表与指令再生配置等全局设定。

# 权限模型

Permission 只有 send 与 receive 两个取值，PermissionSet 以位集合表示
某个 Agent 在某个频道上的权限。ParsePermissions 会先校验全部字符串，
任何非法值都会在修改之前被拒绝，因此不会出现部分写入。

# 频道视图

频道不是独立实体，而是从 Agent 权限映射推导出的视图。Store 只记录
出现过的频道名：移除频道最后一个成员后，频道名仍然存在，可以再次
通过 AddMember 加入成员。
*/
package topology
