package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Manager 配置管理器，封装 viper
type Manager struct {
	v         *viper.Viper
	validate  *validator.Validate
	mu        sync.RWMutex
	callbacks []func()
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{
		v:        viper.New(),
		validate: validator.New(),
	}
}

// LoadFile 加载配置文件（支持 YAML、JSON、TOML 等）
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)

	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return nil
}

// BindEnv 绑定环境变量
// prefix: 环境变量前缀，如 "XGACHA" 会匹配 XGACHA_LEDGER_BACKEND
func (m *Manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Unmarshal 解析整个配置到结构体并校验 validator tag
func (m *Manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := m.validate.Struct(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// UnmarshalKey 解析指定路径的配置到结构体或基本类型
func (m *Manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

// GetString 获取字符串配置
func (m *Manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

// IsSet 检查配置项是否存在
func (m *Manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

// Watch 监听配置文件变化，变化时触发所有回调
func (m *Manager) Watch(callback func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)

	// 只注册一次 viper 的监听
	if len(m.callbacks) == 1 {
		m.v.OnConfigChange(func(_ fsnotify.Event) {
			m.mu.RLock()
			cbs := make([]func(), len(m.callbacks))
			copy(cbs, m.callbacks)
			m.mu.RUnlock()

			for _, cb := range cbs {
				cb()
			}
		})
		m.v.WatchConfig()
	}

	return nil
}
