// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供运维 HTTP 端点：Prometheus 指标与健康检查。

# 核心类型

  - Manager：封装 net/http.Server 的监听与优雅关闭。Run 阻塞到
    上下文结束，适合放进 errgroup 与回合循环一起管理。
  - Config：监听地址、读写超时与关闭超时。
  - NewOpsHandler：/metrics 与 /healthz 路由。
*/
package server
