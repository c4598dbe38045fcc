// 配置加载器、默认配置与校验测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/agent/topology"
	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
log:
  level: debug
  format: console

loop:
  turn_interval: 250ms
  memory_window: 6

snapshot:
  every_rounds: 10
  store:
    type: file
    base_dir: ./snapshots

endpoints:
  - name: main
    base_url: http://localhost:8000/v1
    api_key: sk-test
    model: qwen
  - name: reviewer
    base_url: http://localhost:8001/v1
    mode: blocking
    max_retries: 2

topology:
  channel_admin: alice
  memory_admin: alice
  allowed_callers: [alice]
  excluded: [judge]
  opening_speech: "Welcome, introduce yourselves."
  rotation_frequency: 50
  generators:
    - id: 1
      agent: judge
      source_channel: general
  agents:
    alice:
      instructions: You run the room.
      endpoint: main
      channels:
        general: [send, receive]
        ops: [send, receive]
    bob:
      instructions: You are curious.
      endpoint: main
      moderator: judge
      channels:
        general: [send, receive]
      regeneration:
        enabled: true
        generator_id: 1
        seed_prompt: Rewrite bob's persona.
    judge:
      instructions: You review messages.
      endpoint: reviewer
      channels:
        general: [receive]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)

	assert.Equal(t, 1*time.Second, cfg.Loop.TurnInterval)
	assert.Equal(t, 5*time.Second, cfg.Loop.IdleBackoff)
	assert.Equal(t, 20, cfg.Loop.HistoryWindow)
	assert.Equal(t, 10, cfg.Loop.MemoryWindow)
	assert.Equal(t, 5000, cfg.Loop.MaxMessageLength)

	assert.Equal(t, 20, cfg.Snapshot.EveryRounds)
	assert.Equal(t, persistence.StoreTypeMemory, cfg.Snapshot.Store.Type)
	assert.Equal(t, 100, cfg.Topology.RotationFrequency)
}

// --- Loader 测试 ---

func TestLoader_LoadFromYAML(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(writeConfig(t, sampleYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Loop.TurnInterval)
	assert.Equal(t, 6, cfg.Loop.MemoryWindow)
	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, 20, cfg.Loop.HistoryWindow)

	assert.Equal(t, persistence.StoreTypeFile, cfg.Snapshot.Store.Type)
	assert.Equal(t, "./snapshots", cfg.Snapshot.Store.BaseDir)

	require.Len(t, cfg.Endpoints, 2)
	primary, ok := cfg.Endpoint("main")
	require.True(t, ok)
	assert.Equal(t, ModeStream, primary.Mode, "mode defaults to stream")
	assert.Equal(t, 2*time.Minute, primary.Timeout)
	reviewer, ok := cfg.Endpoint("reviewer")
	require.True(t, ok)
	assert.Equal(t, ModeBlocking, reviewer.Mode)
	assert.Equal(t, 2, reviewer.MaxRetries)

	assert.Len(t, cfg.Topology.Agents, 3)
	assert.Equal(t, 50, cfg.Topology.RotationFrequency)
	require.NotNil(t, cfg.Topology.Agents["bob"].Regeneration)
	require.NotNil(t, cfg.Topology.Agents["bob"].Regeneration.GeneratorID)
	assert.Equal(t, 1, *cfg.Topology.Agents["bob"].Regeneration.GeneratorID)

	require.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("COSMOSYNTH_LOG_LEVEL", "warn")
	t.Setenv("COSMOSYNTH_LOOP_TURN_INTERVAL", "2s")
	t.Setenv("COSMOSYNTH_LOOP_MAX_ROUNDS", "40")
	t.Setenv("COSMOSYNTH_SNAPSHOT_RESTORE", "true")
	t.Setenv("COSMOSYNTH_TOPOLOGY_EXCLUDED", "judge, bob")
	t.Setenv("COSMOSYNTH_METRICS_ENABLED", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Loop.TurnInterval)
	assert.Equal(t, 40, cfg.Loop.MaxRounds)
	assert.True(t, cfg.Snapshot.Restore)
	assert.Equal(t, []string{"judge", "bob"}, cfg.Topology.Excluded)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	t.Setenv("COSMOSYNTH_LOOP_MEMORY_WINDOW", "3")
	t.Setenv("COSMOSYNTH_TOPOLOGY_OPENING_SPEECH", "from env")

	cfg, err := NewLoader().WithConfigPath(writeConfig(t, sampleYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Loop.MemoryWindow)
	assert.Equal(t, "from env", cfg.Topology.OpeningSpeech)
	// YAML 值保留
	assert.Equal(t, 250*time.Millisecond, cfg.Loop.TurnInterval)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOOP_SEED", "42")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Loop.Seed)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("COSMOSYNTH_LOOP_TURN_INTERVAL", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

func TestLoader_NonExistentFile(t *testing.T) {
	_, err := NewLoader().WithConfigPath("/non/existent/path/config.yaml").Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "loop:\n  turn_interval: [invalid\n  not yaml\n")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

func TestLoader_WithValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(*Config) error { return assert.AnError }).
		Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := LoadAndValidate(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Len(t, cfg.Endpoints, 2)

	_, err = LoadAndValidate(writeConfig(t, "log:\n  level: info\n"))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

// --- 校验测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "invalid permission",
			mutate:  func(c *Config) { c.Topology.Agents["bob"].Channels["general"] = []string{"delete"} },
			wantMsg: `agent "bob" channel "general"`,
		},
		{
			name: "unknown endpoint",
			mutate: func(c *Config) {
				a := c.Topology.Agents["bob"]
				a.Endpoint = "missing"
				c.Topology.Agents["bob"] = a
			},
			wantMsg: `unknown endpoint "missing"`,
		},
		{
			name:    "unknown channel admin",
			mutate:  func(c *Config) { c.Topology.ChannelAdmin = "ghost" },
			wantMsg: `channel_admin "ghost"`,
		},
		{
			name:    "unknown excluded agent",
			mutate:  func(c *Config) { c.Topology.Excluded = []string{"ghost"} },
			wantMsg: `excluded agent "ghost"`,
		},
		{
			name: "unknown moderator",
			mutate: func(c *Config) {
				a := c.Topology.Agents["bob"]
				a.Moderator = "ghost"
				c.Topology.Agents["bob"] = a
			},
			wantMsg: `unknown moderator "ghost"`,
		},
		{
			name: "duplicate generator id",
			mutate: func(c *Config) {
				c.Topology.Generators = append(c.Topology.Generators, GeneratorConfig{ID: 1, Agent: "alice"})
			},
			wantMsg: "duplicate generator id 1",
		},
		{
			name:    "unknown endpoint mode",
			mutate:  func(c *Config) { c.Endpoints[0].Mode = "curl" },
			wantMsg: `unknown mode "curl"`,
		},
		{
			name:    "no agents",
			mutate:  func(c *Config) { c.Topology.Agents = nil },
			wantMsg: "at least one agent is required",
		},
		{
			name:    "zero memory window",
			mutate:  func(c *Config) { c.Loop.MemoryWindow = 0 },
			wantMsg: "memory_window must be positive",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Snapshot.Store.Type = "mongo" },
			wantMsg: `unknown snapshot store type "mongo"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewLoader().WithConfigPath(writeConfig(t, sampleYAML)).Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_BuildTopology(t *testing.T) {
	cfg, err := LoadAndValidate(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	store, err := cfg.BuildTopology()
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "judge"}, store.AgentIDs())
	assert.Equal(t, []string{"general", "ops"}, store.Channels())
	assert.True(t, store.CanSend("alice", "ops"))
	assert.False(t, store.CanSend("judge", "general"))
	assert.True(t, store.CanReceive("judge", "general"))
	assert.True(t, store.IsExcluded("judge"))
	assert.True(t, store.IsAllowedCaller("alice"))

	bob, err := store.Agent("bob")
	require.NoError(t, err)
	assert.Equal(t, "judge", bob.Moderator)
	require.NotNil(t, bob.Regeneration)
	assert.True(t, bob.Regeneration.Enabled)
	assert.Equal(t, topology.NewPermissionSet(topology.PermSend, topology.PermReceive), bob.Channels["general"])

	settings := store.Settings()
	assert.Equal(t, "alice", settings.ChannelAdmin)
	assert.Equal(t, 50, settings.RotationFrequency)
	require.Len(t, settings.Generators, 1)
	assert.Equal(t, "general", settings.Generators[0].SourceChannel)
}
