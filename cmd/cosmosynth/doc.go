// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 CosmoSynth 多 Agent 频道对话的进程入口。

# 子命令

  - run：加载并校验配置，注册补全端点，打开快照存储，按需从最新
    快照恢复，然后运行回合循环直到 SIGINT/SIGTERM 或达到回合上限。
    启用 metrics 时同时在独立地址上提供 /metrics 与 /healthz。
  - validate：只加载并校验配置与拓扑。
  - version：打印构建注入的版本信息。

回合循环与运维服务器由 errgroup 统一管理，任一方退出都会停止另一方；
退出前保存一次最终快照。
*/
package main
