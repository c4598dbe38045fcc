// =============================================================================
// 📦 测试数据工厂 - 拓扑测试数据
// =============================================================================
// 提供预定义的 agent 与频道布局，用于对话运行时测试
// =============================================================================
package fixtures

import (
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
)

var (
	// SendRecv 同时拥有收发权限
	SendRecv = topology.NewPermissionSet(topology.PermSend, topology.PermReceive)
	// RecvOnly 只能接收
	RecvOnly = topology.NewPermissionSet(topology.PermReceive)
	// SendOnly 只能发送
	SendOnly = topology.NewPermissionSet(topology.PermSend)
)

// Agent 构造一个 agent 记录，端点名与 id 相同
func Agent(id, instructions string, channels map[string]topology.PermissionSet) topology.Agent {
	return topology.Agent{
		ID:           id,
		Instructions: instructions,
		Endpoint:     id,
		Channels:     channels,
	}
}

// TrioAgents 返回三人布局：alice 与 bob 在 #general 互相收发，
// alice 还能向 #ops 发送，carol 只在 #ops 接收。
func TrioAgents() []topology.Agent {
	return []topology.Agent{
		Agent("alice", "You are Alice.", map[string]topology.PermissionSet{
			"general": SendRecv,
			"ops":     SendRecv,
		}),
		Agent("bob", "You are Bob.", map[string]topology.PermissionSet{
			"general": SendRecv,
		}),
		Agent("carol", "You are Carol.", map[string]topology.PermissionSet{
			"ops": RecvOnly,
		}),
	}
}

// DefaultSettings 返回只设置轮换频率的全局配置
func DefaultSettings() topology.Settings {
	return topology.Settings{RotationFrequency: 100}
}

// MustStore 构造拓扑，失败时 panic
func MustStore(agents []topology.Agent, settings topology.Settings) *topology.Store {
	store, err := topology.NewStore(agents, settings)
	if err != nil {
		panic(err)
	}
	return store
}

// TrioStore 返回 TrioAgents 布局的拓扑
func TrioStore() *topology.Store {
	return MustStore(TrioAgents(), DefaultSettings())
}
