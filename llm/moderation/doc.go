// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 moderation 提供发言发布前的审核闸门。

# 概述

每个 agent 可以配置一个审核员 agent。[Gate.Review] 把候选内容（已去除
<think> 片段）连同审核员自己的对话记录发给审核员的补全端点，并在回复中查找
<reject>理由<reject/> 标签：出现即驳回，否则通过。审核员的对话记录不会被修改。

# 失败语义

审核是质量过滤而不是安全边界：没有审核员、审核员未定义、补全失败时
[Gate] 一律放行，错误记录在 [Verdict.Err] 中并输出 Warn 日志。
*/
package moderation
