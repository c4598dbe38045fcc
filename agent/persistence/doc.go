// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 persistence 提供对话快照的持久化存储抽象及多后端实现。

# 核心接口

  - Store: 所有存储的基础接口，提供 Close 和 Ping 健康检查。
  - SnapshotStore: 快照存储接口，支持 Save、Get、Latest 与 List。

# 核心模型

Snapshot 记录某一时刻的完整对话状态：回合计数、上次指令重写的回合、
上一位发言者、优先队列、每个 Agent 的记录、频道历史以及拓扑状态
（指令与权限映射）。

# 后端实现

  - Memory: 内存实现，适合开发与测试，重启后数据丢失。
  - File: 每个快照一个 JSON 文件，原子写入并维护 index.json，适合单节点部署。
  - Redis: JSON 字符串加 Sorted Set 索引，适合多进程共享。

StoreConfig.Retention 限制保留的快照数量，0 表示全部保留。

# 使用方式

	store, err := persistence.NewSnapshotStore(config)
	err = store.Save(ctx, snap)
	latest, err := store.Latest(ctx)
*/
package persistence
