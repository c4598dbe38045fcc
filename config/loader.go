// =============================================================================
// 📦 CosmoSynth 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("COSMOSYNTH").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/OTFiles/CosmoSynthAI/agent/persistence"
	"github.com/OTFiles/CosmoSynthAI/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 CosmoSynth 的完整配置结构
type Config struct {
	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标服务配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Loop 回合循环配置
	Loop LoopConfig `yaml:"loop" env:"LOOP"`

	// Snapshot 快照配置
	Snapshot SnapshotConfig `yaml:"snapshot" env:"SNAPSHOT"`

	// Endpoints 补全服务端点（仅 YAML）
	Endpoints []EndpointConfig `yaml:"endpoints"`

	// Topology Agent 与频道拓扑
	Topology TopologyConfig `yaml:"topology" env:"TOPOLOGY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LoopConfig 回合循环配置
type LoopConfig struct {
	// 两个回合之间的最小间隔
	TurnInterval time.Duration `yaml:"turn_interval" env:"TURN_INTERVAL"`
	// 没有可发言 Agent 时的等待时间
	IdleBackoff time.Duration `yaml:"idle_backoff" env:"IDLE_BACKOFF"`
	// 最大回合数，0 表示不限
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// 频道历史窗口（重写指令时使用）
	HistoryWindow int `yaml:"history_window" env:"HISTORY_WINDOW"`
	// 发送给补全服务的记忆窗口
	MemoryWindow int `yaml:"memory_window" env:"MEMORY_WINDOW"`
	// 单条 user 消息的最大字符数
	MaxMessageLength int `yaml:"max_message_length" env:"MAX_MESSAGE_LENGTH"`
	// 单次补全请求超时
	CompletionTimeout time.Duration `yaml:"completion_timeout" env:"COMPLETION_TIMEOUT"`
	// 随机种子，0 表示按时间
	Seed int64 `yaml:"seed" env:"SEED"`
}

// SnapshotConfig 快照配置
type SnapshotConfig struct {
	// 每隔多少回合保存一次，0 表示禁用
	EveryRounds int `yaml:"every_rounds" env:"EVERY_ROUNDS"`
	// 启动时是否从最新快照恢复
	Restore bool `yaml:"restore" env:"RESTORE"`
	// 存储后端
	Store persistence.StoreConfig `yaml:"store"`
}

// EndpointConfig 补全服务端点配置
// Mode 取值 stream 或 blocking
type EndpointConfig struct {
	Name       string            `yaml:"name"`
	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	Model      string            `yaml:"model"`
	Mode       string            `yaml:"mode"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
}

// TopologyConfig Agent 拓扑配置
type TopologyConfig struct {
	Agents            map[string]AgentConfig `yaml:"agents"`
	ChannelAdmin      string                 `yaml:"channel_admin" env:"CHANNEL_ADMIN"`
	MemoryAdmin       string                 `yaml:"memory_admin" env:"MEMORY_ADMIN"`
	AllowedCallers    []string               `yaml:"allowed_callers" env:"ALLOWED_CALLERS"`
	Excluded          []string               `yaml:"excluded" env:"EXCLUDED"`
	Generators        []GeneratorConfig      `yaml:"generators"`
	OpeningSpeech     string                 `yaml:"opening_speech" env:"OPENING_SPEECH"`
	RotationFrequency int                    `yaml:"rotation_frequency" env:"ROTATION_FREQUENCY"`
}

// AgentConfig 单个 Agent 配置
type AgentConfig struct {
	Instructions string              `yaml:"instructions"`
	Endpoint     string              `yaml:"endpoint"`
	Channels     map[string][]string `yaml:"channels"` // 频道名 → send / receive
	Moderator    string              `yaml:"moderator"`
	Regeneration *RegenerationConfig `yaml:"regeneration"`
}

// RegenerationConfig 指令重写配置
type RegenerationConfig struct {
	Enabled     bool   `yaml:"enabled"`
	GeneratorID *int   `yaml:"generator_id"`
	SeedPrompt  string `yaml:"seed_prompt"`
}

// GeneratorConfig 生成器 Agent 配置
type GeneratorConfig struct {
	ID            int    `yaml:"id"`
	Agent         string `yaml:"agent"`
	SourceChannel string `yaml:"source_channel"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "COSMOSYNTH",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, types.NewError(types.ErrConfigInvalid, "failed to load config from file").WithCause(err)
		}
		for i := range cfg.Endpoints {
			cfg.Endpoints[i].applyDefaults()
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, types.NewError(types.ErrConfigInvalid, "failed to load config from env").WithCause(err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			if _, ok := types.AsError(err); ok {
				return nil, err
			}
			return nil, types.NewError(types.ErrConfigInvalid, "config validation failed").WithCause(err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
// 与默认值不同，拓扑是必需的，因此文件不存在时直接报错
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadAndValidate 加载配置文件并执行 Validate
func LoadAndValidate(path string) (*Config, error) {
	return NewLoader().
		WithConfigPath(path).
		WithValidator((*Config).Validate).
		Load()
}

// Endpoint 按名称查找端点配置
func (c *Config) Endpoint(name string) (EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EndpointConfig{}, false
}
